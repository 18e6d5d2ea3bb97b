// Package ziparchive implements random-access reading and in-place
// modification of ZIP32 archives whose entries are DEFLATE-compressed. It
// locates and parses the End-Of-Central-Directory record and Central
// Directory, exposes entries by name, and allocates free spans within the
// existing file when writing or replacing an entry, instead of always
// rewriting the whole archive.
package ziparchive

import (
	"encoding/binary"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mode selects whether an Entry is opened for reading or writing. Exactly
// one must be set.
type Mode int

const (
	Read Mode = 1 << iota
	Write
)

// Store is what an Archive needs from its backing file: positional reads and
// writes, sizing, and truncation. *os.File satisfies it.
type Store interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
}

// Archive is an open ZIP32 archive: its Central Directory, indexed by name
// and by offset, plus the backing store it was opened against.
type Archive struct {
	path  string
	store Store
	size  int64

	byName   []*record // sorted by name
	byOffset []*record // sorted by relativeOffset

	openNames map[string]bool

	diskNumber      uint16
	cdStartDisk     uint16
	cdCountThisDisk uint16
	cdCountTotal    uint16
	cdSize          uint32
	cdOffset        uint32
	comment         []byte

	dirty bool
}

// Open opens path for reading and writing and parses its Central Directory.
// It returns ErrCorrupted if no EOCD record can be found.
func Open(path string) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "ziparchive: open %s", path)
	}

	a, err := openStore(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func openStore(store Store, path string) (*Archive, error) {
	size, err := storeSize(store)
	if err != nil {
		return nil, errors.Wrap(err, "ziparchive: stat")
	}

	a := &Archive{
		path:      path,
		store:     store,
		size:      size,
		openNames: map[string]bool{},
	}

	eocdOff, err := a.findSignature(eocdSignature, size, false)
	if err != nil {
		return nil, errors.Wrap(err, "ziparchive: scan for EOCD")
	}
	if eocdOff < 0 {
		return nil, ErrCorrupted
	}

	if err := a.readEOCD(eocdOff); err != nil {
		return nil, errors.Wrap(err, "ziparchive: read EOCD")
	}

	cdOffset, cdSize := a.cdOffset, a.cdSize
	if err := a.readCentralDirectory(int64(cdOffset), int64(cdSize)); err != nil {
		return nil, errors.Wrap(err, "ziparchive: read central directory")
	}

	logrus.Debugf("ziparchive: opened %s: %d entries", path, len(a.byName))

	return a, nil
}

func storeSize(store Store) (int64, error) {
	if f, ok := store.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	}
	if s, ok := store.(interface{ Size() int64 }); ok {
		return s.Size(), nil
	}
	return 0, errors.New("ziparchive: store does not support sizing")
}

// Entries returns every entry name, in lexicographic order.
func (a *Archive) Entries() []string {
	names := make([]string, len(a.byName))
	for i, r := range a.byName {
		names[i] = r.name
	}
	return names
}

// Info is an entry's directory metadata, returned by Stat without paying
// for opening a codec stream.
type Info struct {
	Name             string
	CompressedSize   uint32
	UncompressedSize uint32
	ModTime          time.Time
	IsDir            bool
}

// Stat returns the named entry's directory metadata without opening it for
// read, the way zipfs.FS builds its file tree.
func (a *Archive) Stat(name string) (Info, error) {
	i, found := a.findByName(name)
	if !found {
		return Info{}, ErrNotFound
	}
	r := a.byName[i]
	return Info{
		Name:             r.name,
		CompressedSize:   r.compressedSize,
		UncompressedSize: r.uncompressedSize,
		ModTime:          r.modTime(),
		IsDir:            strings.HasSuffix(r.name, "/"),
	}, nil
}

// Comment returns the archive-level comment recorded in the EOCD record.
func (a *Archive) Comment() []byte { return a.comment }

// SetComment changes the archive-level comment; it takes effect on Close.
func (a *Archive) SetComment(comment []byte) {
	a.comment = comment
	a.dirty = true
}

func (a *Archive) findByName(name string) (int, bool) {
	i := sort.Search(len(a.byName), func(i int) bool { return a.byName[i].name >= name })
	if i < len(a.byName) && a.byName[i].name == name {
		return i, true
	}
	return i, false
}

func (a *Archive) insertRecord(r *record) {
	i := sort.Search(len(a.byName), func(i int) bool { return a.byName[i].name >= r.name })
	a.byName = append(a.byName, nil)
	copy(a.byName[i+1:], a.byName[i:])
	a.byName[i] = r

	j := sort.Search(len(a.byOffset), func(j int) bool { return a.byOffset[j].relativeOffset >= r.relativeOffset })
	a.byOffset = append(a.byOffset, nil)
	copy(a.byOffset[j+1:], a.byOffset[j:])
	a.byOffset[j] = r
}

func (a *Archive) removeRecord(r *record) {
	if i, ok := a.findByName(r.name); ok {
		a.byName = append(a.byName[:i], a.byName[i+1:]...)
	}
	for j, o := range a.byOffset {
		if o == r {
			a.byOffset = append(a.byOffset[:j], a.byOffset[j+1:]...)
			break
		}
	}
}

// Entry opens the named entry in the given mode. size is only used for
// Write: it's the caller's declared upper bound on the entry's compressed
// payload size, used to size the gap allocation; zstream.Bound computes a
// safe value from an uncompressed size.
func (a *Archive) Entry(name string, size uint32, mode Mode) (*Entry, error) {
	switch mode {
	case Read, Write:
	default:
		return nil, ErrBadMode
	}

	i, found := a.findByName(name)

	if mode == Read {
		if !found {
			return nil, ErrNotFound
		}
		r := a.byName[i]
		if r.method != MethodDeflate && r.method != methodDeflate64 {
			return nil, ErrUnsupportedMethod
		}
		return a.openRead(r)
	}

	if a.openNames[name] {
		return nil, ErrAlreadyOpen
	}

	var old *record
	if found {
		old = a.byName[i]
		a.removeRecord(old)
	}

	required := lfhSize + uint32(len(name)) + size
	gapStart := findGap(a.byOffset, required)

	r := &record{
		versionNeeded:    20,
		method:           MethodDeflate,
		dosTime:          EncodeDOSTime(time.Now()),
		relativeOffset:   gapStart,
		name:             name,
		compressedSize:   size,
		uncompressedSize: 0,
	}
	r.refreshAbsoluteOffset()

	if err := a.writeLocalFileHeader(r); err != nil {
		// Put the displaced record back so a failed replace leaves the
		// directory exactly as it was.
		if old != nil {
			a.insertRecord(old)
		}
		return nil, errors.Wrap(err, "ziparchive: write local file header")
	}

	a.insertRecord(r)
	a.openNames[name] = true
	a.dirty = true

	return a.openWrite(r)
}

// Remove deletes the named entry from the directory without opening it,
// persisted on the next Close.
func (a *Archive) Remove(name string) error {
	if _, ok := a.store.(*readOnlyStore); ok {
		return ErrReadOnly
	}
	if a.openNames[name] {
		return ErrAlreadyOpen
	}
	i, found := a.findByName(name)
	if !found {
		return ErrNotFound
	}
	a.removeRecord(a.byName[i])
	a.dirty = true
	return nil
}

func (a *Archive) forgetOpen(name string) {
	delete(a.openNames, name)
}

// binaryReader is a tiny cursor over a fixed-size byte slice, used for
// decoding fixed-width header fields without repeated bounds juggling.
type binaryReader struct {
	b   []byte
	pos int
}

func (r *binaryReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v
}

func (r *binaryReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}
