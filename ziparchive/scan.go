package ziparchive

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// scanChunkSize is the window size used by findSignature. Large enough to
// make scanning a multi-entry archive from EOF fast, small enough to keep a
// single allocation cheap.
const scanChunkSize = 32

// findSignature looks for a 4-byte little-endian signature starting at
// start, scanning backwards (forward=false) or forwards (forward=true) in
// scanChunkSize windows that overlap by 3 bytes so a signature straddling a
// window boundary is never missed. It returns the absolute offset of the
// signature, or -1 if the signature isn't present between 0 and a.size.
func (a *Archive) findSignature(sig uint32, start int64, forward bool) (int64, error) {
	pos := start
	if !forward {
		pos -= scanChunkSize
		if pos < 0 {
			pos = 0
		}
	}

	buf := make([]byte, scanChunkSize)

	for {
		if forward && pos >= a.size {
			return -1, nil
		}
		if !forward && pos < 0 {
			return -1, nil
		}

		chunkSize := int64(scanChunkSize)
		if pos+chunkSize > a.size {
			chunkSize = a.size - pos
		}
		if chunkSize < 4 {
			if forward {
				return -1, nil
			}
			pos -= scanChunkSize - 3
			continue
		}

		n, err := a.store.ReadAt(buf[:chunkSize], pos)
		if err != nil && int64(n) != chunkSize {
			return -1, errors.Wrap(err, "ziparchive: scan read")
		}

		for i := int64(0); i <= chunkSize-4; i++ {
			if binary.LittleEndian.Uint32(buf[i:i+4]) == sig {
				return pos + i, nil
			}
		}

		if forward {
			pos += scanChunkSize - 3
		} else {
			if pos == 0 {
				return -1, nil
			}
			pos -= scanChunkSize - 3
			if pos < 0 {
				pos = 0
			}
		}
	}
}

// readEOCD decodes the EOCD record located at off (the signature's offset)
// and its trailing comment.
func (a *Archive) readEOCD(off int64) error {
	buf := make([]byte, eocdFixedSize)
	if _, err := a.store.ReadAt(buf, off); err != nil {
		return errors.Wrap(err, "ziparchive: read EOCD fixed fields")
	}

	r := &binaryReader{b: buf[4:]} // skip signature
	a.diskNumber = r.u16()
	a.cdStartDisk = r.u16()
	a.cdCountThisDisk = r.u16()
	a.cdCountTotal = r.u16()
	a.cdSize = r.u32()
	a.cdOffset = r.u32()
	commentLen := r.u16()

	if commentLen > 0 {
		comment := make([]byte, commentLen)
		if _, err := a.store.ReadAt(comment, off+eocdFixedSize); err != nil {
			return errors.Wrap(err, "ziparchive: read archive comment")
		}
		a.comment = comment
	}

	return nil
}

// readCentralDirectory iterates the Central Directory starting at cdOffset,
// decoding cdSize bytes worth of file headers, and populates both indexes.
func (a *Archive) readCentralDirectory(cdOffset, cdSize int64) error {
	end := cdOffset + cdSize
	pos := cdOffset

	for pos < end {
		sigOff, err := a.findSignature(cdfhSignature, pos, true)
		if err != nil {
			return err
		}
		if sigOff < 0 || sigOff >= end {
			break
		}

		r, next, err := a.readCentralDirectoryRecord(sigOff + 4)
		if err != nil {
			return err
		}

		a.byName = append(a.byName, r)
		a.byOffset = append(a.byOffset, r)
		pos = next
	}

	sortRecords(a.byName, a.byOffset)

	return nil
}

func (a *Archive) readCentralDirectoryRecord(fieldsOff int64) (*record, int64, error) {
	buf := make([]byte, cdfhFixedSize-4) // signature already consumed
	if _, err := a.store.ReadAt(buf, fieldsOff); err != nil {
		return nil, 0, errors.Wrap(err, "ziparchive: read central directory file header")
	}

	r := &binaryReader{b: buf}
	rec := &record{}
	rec.versionMadeBy = r.u16()
	rec.versionNeeded = r.u16()
	rec.flag = r.u16()
	rec.method = r.u16()
	rec.dosTime = r.u32()
	rec.crc32 = r.u32()
	rec.compressedSize = r.u32()
	rec.uncompressedSize = r.u32()
	nameLen := r.u16()
	extraLen := r.u16()
	commentLen := r.u16()
	rec.diskNumberStart = r.u16()
	rec.internalAttrs = r.u16()
	rec.externalAttrs = r.u32()
	rec.relativeOffset = r.u32()

	varOff := fieldsOff + int64(len(buf))
	total := int(nameLen) + int(extraLen) + int(commentLen)
	varBuf := make([]byte, total)
	if total > 0 {
		if _, err := a.store.ReadAt(varBuf, varOff); err != nil {
			return nil, 0, errors.Wrap(err, "ziparchive: read entry name/extra/comment")
		}
	}

	rec.name = string(varBuf[:nameLen])
	rec.extra = append([]byte(nil), varBuf[nameLen:nameLen+extraLen]...)
	rec.comment = append([]byte(nil), varBuf[nameLen+extraLen:]...)
	rec.refreshAbsoluteOffset()

	return rec, varOff + int64(total), nil
}

func sortRecords(byName, byOffset []*record) {
	sort.Slice(byName, func(i, j int) bool { return byName[i].name < byName[j].name })
	sort.Slice(byOffset, func(i, j int) bool { return byOffset[i].relativeOffset < byOffset[j].relativeOffset })
}
