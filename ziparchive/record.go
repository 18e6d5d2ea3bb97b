package ziparchive

import "time"

const (
	// eocdSignature is the End-Of-Central-Directory record signature.
	eocdSignature = 0x06054B50
	// cdfhSignature is the Central Directory File Header signature.
	cdfhSignature = 0x02014B50
	// lfhSignature is the Local File Header signature.
	lfhSignature = 0x04034B50

	// eocdFixedSize is the EOCD record's size before the variable-length
	// comment.
	eocdFixedSize = 22
	// cdfhFixedSize is the Central Directory File Header's size before the
	// variable-length name/extra/comment.
	cdfhFixedSize = 46
	// lfhSize is the Local File Header's fixed size (LFH_SIZE in the
	// original design), before the variable-length name/extra.
	lfhSize = 30

	// MethodDeflate (8) and methodDeflate64 (9) are the only compression
	// methods Entry accepts for reading; an entry stored with MethodStore (0)
	// is rejected with ErrUnsupportedMethod.
	MethodStore     = 0
	MethodDeflate   = 8
	methodDeflate64 = 9
)

// record is one Central Directory entry, kept in both the by-name and
// by-offset indexes.
type record struct {
	versionMadeBy    uint16
	versionNeeded    uint16
	flag             uint16
	method           uint16
	dosTime          uint32 // packed DOS date+time, ground truth on disk
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	diskNumberStart  uint16
	internalAttrs    uint16
	externalAttrs    uint32

	// relativeOffset is the byte position of the Local File Header.
	relativeOffset uint32

	name    string
	extra   []byte
	comment []byte

	// absoluteOffset is derived: relativeOffset + lfhSize + len(name) + len(extra).
	absoluteOffset uint32
}

// refreshAbsoluteOffset recomputes absoluteOffset from relativeOffset, name
// and extra, keeping the derived field consistent per the data-model
// invariant.
func (r *record) refreshAbsoluteOffset() {
	r.absoluteOffset = r.relativeOffset + lfhSize + uint32(len(r.name)) + uint32(len(r.extra))
}

// spanEnd is the canonical end-of-span offset used by the gap allocator and
// the overlap invariant: relativeOffset + LFH + name + extra + compressedSize.
// The original source sometimes used absoluteOffset+compressedSize instead,
// which double counts LFH+name+extra once absoluteOffset already includes
// them; this is the single formula used everywhere in this package.
func (r *record) spanEnd() uint32 {
	return r.relativeOffset + lfhSize + uint32(len(r.name)) + uint32(len(r.extra)) + r.compressedSize
}

func (r *record) modTime() time.Time {
	return DecodeDOSTime(r.dosTime)
}
