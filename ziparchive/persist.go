package ziparchive

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Close persists the directory if it was touched since Open — rewriting the
// Central Directory and EOCD record in place, after the last entry's data —
// and releases the backing store, even when persisting fails. While any
// Entry is still open for write, Close returns an error and neither persists
// nor releases anything; callers must close every Entry before Close.
func (a *Archive) Close() error {
	if len(a.openNames) > 0 {
		return errors.New("ziparchive: entries still open for write")
	}

	var err error
	if a.dirty {
		if werr := a.writeDirectory(); werr != nil {
			err = errors.Wrap(werr, "ziparchive: write directory")
		}
	}

	if err == nil {
		if serr := a.store.Sync(); serr != nil {
			err = errors.Wrap(serr, "ziparchive: sync")
		}
	}

	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// writeDirectory rewrites the Central Directory and EOCD record starting
// right after the highest entry's data span, and truncates the store to
// exactly that new length. It does not touch entry payloads, so it's safe
// to call after any mix of Entry writes and Removes.
func (a *Archive) writeDirectory() error {
	cdStart := a.directoryStart()

	off := cdStart
	for _, r := range a.byName {
		buf := encodeCentralDirectoryRecord(r)
		if _, err := a.store.WriteAt(buf, int64(off)); err != nil {
			return errors.Wrap(err, "ziparchive: write central directory record")
		}
		off += uint32(len(buf))
	}
	cdSize := off - cdStart

	eocdBuf := encodeEOCD(0, 0, uint16(len(a.byName)), uint16(len(a.byName)), cdSize, cdStart, a.comment)
	if _, err := a.store.WriteAt(eocdBuf, int64(off)); err != nil {
		return errors.Wrap(err, "ziparchive: write EOCD")
	}

	a.cdOffset = cdStart
	a.cdSize = cdSize
	a.cdCountThisDisk = uint16(len(a.byName))
	a.cdCountTotal = uint16(len(a.byName))
	a.size = int64(off) + int64(len(eocdBuf))

	if err := a.store.Truncate(a.size); err != nil {
		return errors.Wrap(err, "ziparchive: truncate")
	}

	a.dirty = false
	logrus.Debugf("ziparchive: wrote directory at %d, %d entries, size now %d", cdStart, len(a.byName), a.size)

	return nil
}

// directoryStart returns the offset right after the highest entry span
// currently recorded, i.e. where the Central Directory belongs.
func (a *Archive) directoryStart() uint32 {
	var end uint32
	for _, r := range a.byOffset {
		if e := r.spanEnd(); e > end {
			end = e
		}
	}
	return end
}

// Compact defragments the archive: every entry's payload is moved, in
// by-offset order, to eliminate gaps left behind by removed or replaced
// entries, and the directory is rewritten immediately after. Unlike Close,
// Compact always rewrites the payload region, even if nothing is dirty.
func (a *Archive) Compact() error {
	if len(a.openNames) > 0 {
		return errors.New("ziparchive: entries still open for write")
	}

	var cursor uint32
	for _, r := range a.byOffset {
		span := r.spanEnd() - r.relativeOffset
		if r.relativeOffset != cursor {
			if err := a.moveSpan(r, cursor); err != nil {
				return errors.Wrap(err, "ziparchive: compact entry")
			}
		}
		cursor += span
	}

	a.dirty = true
	if err := a.writeDirectory(); err != nil {
		return errors.Wrap(err, "ziparchive: write directory after compact")
	}

	logrus.Debugf("ziparchive: compacted, payload now %d bytes", cursor)

	return nil
}

// moveSpan relocates one entry's Local File Header + payload from its
// current relativeOffset down to dst, copying the header bytes unchanged
// (a Local File Header holds no offset of its own) and updating the
// in-memory record's offsets. byOffset is not re-sorted here; Compact moves
// entries in ascending order, so the ordering already holds.
func (a *Archive) moveSpan(r *record, dst uint32) error {
	span := r.spanEnd() - r.relativeOffset
	buf := make([]byte, span)
	if _, err := a.store.ReadAt(buf, int64(r.relativeOffset)); err != nil {
		return errors.Wrap(err, "ziparchive: read entry span")
	}
	if _, err := a.store.WriteAt(buf, int64(dst)); err != nil {
		return errors.Wrap(err, "ziparchive: write relocated entry span")
	}

	r.relativeOffset = dst
	r.refreshAbsoluteOffset()

	return nil
}
