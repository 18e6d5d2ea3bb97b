package ziparchive

import "encoding/binary"

// encodeLocalFileHeader produces the 30-byte fixed Local File Header plus the
// entry's name and extra field, for the record as it stands right now (CRC
// and sizes may still be placeholders, patched later with the bytes from
// patchLocalFileHeaderFields once they're known).
func encodeLocalFileHeader(r *record) []byte {
	buf := make([]byte, lfhSize+len(r.name)+len(r.extra))

	binary.LittleEndian.PutUint32(buf[0:], lfhSignature)
	binary.LittleEndian.PutUint16(buf[4:], r.versionNeeded)
	binary.LittleEndian.PutUint16(buf[6:], r.flag)
	binary.LittleEndian.PutUint16(buf[8:], r.method)
	binary.LittleEndian.PutUint32(buf[10:], r.dosTime)
	binary.LittleEndian.PutUint32(buf[14:], r.crc32)
	binary.LittleEndian.PutUint32(buf[18:], r.compressedSize)
	binary.LittleEndian.PutUint32(buf[22:], r.uncompressedSize)
	binary.LittleEndian.PutUint16(buf[26:], uint16(len(r.name)))
	binary.LittleEndian.PutUint16(buf[28:], uint16(len(r.extra)))
	copy(buf[lfhSize:], r.name)
	copy(buf[lfhSize+len(r.name):], r.extra)

	return buf
}

// patchLocalFileHeaderFields returns the 12 bytes (CRC-32, compressed size,
// uncompressed size) to rewrite at offset 14 within an already-written Local
// File Header, once those values are known at entry Close.
func patchLocalFileHeaderFields(crc32, compressedSize, uncompressedSize uint32) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], crc32)
	binary.LittleEndian.PutUint32(buf[4:], compressedSize)
	binary.LittleEndian.PutUint32(buf[8:], uncompressedSize)
	return buf
}

// encodeCentralDirectoryRecord produces the 46-byte fixed Central Directory
// File Header plus name, extra, and comment.
func encodeCentralDirectoryRecord(r *record) []byte {
	buf := make([]byte, cdfhFixedSize+len(r.name)+len(r.extra)+len(r.comment))

	binary.LittleEndian.PutUint32(buf[0:], cdfhSignature)
	binary.LittleEndian.PutUint16(buf[4:], r.versionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:], r.versionNeeded)
	binary.LittleEndian.PutUint16(buf[8:], r.flag)
	binary.LittleEndian.PutUint16(buf[10:], r.method)
	binary.LittleEndian.PutUint32(buf[12:], r.dosTime)
	binary.LittleEndian.PutUint32(buf[16:], r.crc32)
	binary.LittleEndian.PutUint32(buf[20:], r.compressedSize)
	binary.LittleEndian.PutUint32(buf[24:], r.uncompressedSize)
	binary.LittleEndian.PutUint16(buf[28:], uint16(len(r.name)))
	binary.LittleEndian.PutUint16(buf[30:], uint16(len(r.extra)))
	binary.LittleEndian.PutUint16(buf[32:], uint16(len(r.comment)))
	binary.LittleEndian.PutUint16(buf[34:], r.diskNumberStart)
	binary.LittleEndian.PutUint16(buf[36:], r.internalAttrs)
	binary.LittleEndian.PutUint32(buf[38:], r.externalAttrs)
	binary.LittleEndian.PutUint32(buf[42:], r.relativeOffset)

	off := cdfhFixedSize
	off += copy(buf[off:], r.name)
	off += copy(buf[off:], r.extra)
	copy(buf[off:], r.comment)

	return buf
}

// encodeEOCD produces the fixed 22-byte EOCD record plus the archive
// comment.
func encodeEOCD(diskNumber, cdStartDisk, cdCountThisDisk, cdCountTotal uint16, cdSize, cdOffset uint32, comment []byte) []byte {
	buf := make([]byte, eocdFixedSize+len(comment))

	binary.LittleEndian.PutUint32(buf[0:], eocdSignature)
	binary.LittleEndian.PutUint16(buf[4:], diskNumber)
	binary.LittleEndian.PutUint16(buf[6:], cdStartDisk)
	binary.LittleEndian.PutUint16(buf[8:], cdCountThisDisk)
	binary.LittleEndian.PutUint16(buf[10:], cdCountTotal)
	binary.LittleEndian.PutUint32(buf[12:], cdSize)
	binary.LittleEndian.PutUint32(buf[16:], cdOffset)
	binary.LittleEndian.PutUint16(buf[20:], uint16(len(comment)))
	copy(buf[eocdFixedSize:], comment)

	return buf
}
