// Package zstream adapts a block-oriented DEFLATE codec to a byte-count API:
// callers ask for exactly N decompressed bytes, or push exactly N bytes of
// input, and the Stream takes care of the engine's chunked refill/drain loop
// underneath.
//
// The underlying engine is github.com/klauspost/compress/flate, always used
// in raw mode (no zlib or gzip wrapper), which is what ZIP method 8 requires.
package zstream

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Mode selects whether a Stream inflates or deflates. Exactly one of Read or
// Write must be set when opening a Stream.
type Mode int

const (
	// Read opens a Stream for inflation (decompression).
	Read Mode = 1 << iota
	// Write opens a Stream for deflation (compression).
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "invalid"
	}
}

// Options configures a Stream at construction time.
type Options struct {
	// Mode is required: exactly one of Read or Write.
	Mode Mode

	// Raw requests raw DEFLATE (no zlib header/trailer). ZIP entries always
	// require this; the field exists so zstream can, in principle, also
	// front zlib-wrapped data. Reserved for future use: the current
	// implementation is always raw, since that's the only thing a ZIP
	// archive ever needs.
	Raw bool

	// Level is the compression level used in Write mode. Ignored in Read
	// mode. Zero value behaves like flate.DefaultCompression.
	Level int
}

func (o Options) level() int {
	if o.Level == 0 {
		return flate.DefaultCompression
	}
	return o.Level
}

func (o Options) validate() error {
	switch o.Mode {
	case Read, Write:
	default:
		return errors.Wrap(ErrBadConfig, "mode must be exactly Read or Write")
	}
	return nil
}

// Stream is a byte-count-oriented wrapper around a raw DEFLATE reader or
// writer, confined to a fixed-size window over either a caller-owned byte
// slice or a seekable byte store at an absolute offset.
type Stream struct {
	mode Mode

	err    error
	eof    bool
	gcount int
	tcount uint64

	compressedSize   uint32
	uncompressedSize uint32

	// zoffset tracks bytes consumed (read mode) or produced (write mode)
	// within the compressed window.
	zoffsetp *uint64

	fr io.ReadCloser
	fw *flate.Writer
}

// Store is the minimal interface a Stream needs from a backing byte store:
// positional reads and writes, with no shared cursor to race. Any *os.File
// satisfies it.
type Store interface {
	io.ReaderAt
	io.WriterAt
}

// NewMemory opens a Stream over a caller-owned byte slice. In Read mode, the
// first compressedSize bytes of data are treated as the compressed payload.
// In Write mode, compressed output is written into data starting at offset 0,
// and writes past compressedSize fail with ErrBufferOverflow.
func NewMemory(data []byte, compressedSize, uncompressedSize uint32, opts Options) (*Stream, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if uint64(len(data)) < uint64(compressedSize) {
		return nil, errors.Errorf("zstream: buffer length %d smaller than compressed size %d", len(data), compressedSize)
	}

	s := &Stream{
		mode:             opts.Mode,
		compressedSize:   compressedSize,
		uncompressedSize: uncompressedSize,
		zoffsetp:         new(uint64),
	}

	switch opts.Mode {
	case Read:
		src := &countingReader{r: bytes.NewReader(data[:compressedSize]), n: s.zoffsetp}
		s.fr = flate.NewReader(src)
	case Write:
		bw := &boundedWriter{
			max:      uint64(compressedSize),
			zoffsetp: s.zoffsetp,
			writeAt: func(p []byte, at uint64) error {
				copy(data[at:], p)
				return nil
			},
		}
		fw, err := flate.NewWriter(bw, opts.level())
		if err != nil {
			return nil, errors.Wrap(err, "zstream: open deflate writer")
		}
		s.fw = fw
	}

	return s, nil
}

// NewAt opens a Stream over a seekable byte store, confined to the window
// [offset, offset+compressedSize). Unlike the original C-style design, this
// never seeks a shared cursor: reads use io.SectionReader and writes use
// WriteAt, so independent Streams over the same store never interfere with
// each other's position even without external locking.
func NewAt(store Store, offset uint64, compressedSize, uncompressedSize uint32, opts Options) (*Stream, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s := &Stream{
		mode:             opts.Mode,
		compressedSize:   compressedSize,
		uncompressedSize: uncompressedSize,
		zoffsetp:         new(uint64),
	}

	switch opts.Mode {
	case Read:
		sr := io.NewSectionReader(store, int64(offset), int64(compressedSize))
		src := &countingReader{r: sr, n: s.zoffsetp}
		s.fr = flate.NewReader(src)
	case Write:
		bw := &boundedWriter{
			max:      uint64(compressedSize),
			zoffsetp: s.zoffsetp,
			writeAt: func(p []byte, at uint64) error {
				_, err := store.WriteAt(p, int64(offset+at))
				return err
			},
		}
		fw, err := flate.NewWriter(bw, opts.level())
		if err != nil {
			return nil, errors.Wrap(err, "zstream: open deflate writer")
		}
		s.fw = fw
	}

	return s, nil
}

// Read implements io.Reader. It fills p unless the entry ends first, returns
// at most the number of decompressed bytes remaining until uncompressedSize
// is reached, and sets EOF once that threshold is hit.
func (s *Stream) Read(p []byte) (int, error) {
	if s.mode != Read {
		return 0, errors.Wrap(ErrBadConfig, "Read called on a write Stream")
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.eof {
		return 0, io.EOF
	}

	remaining := uint64(s.uncompressedSize) - s.tcount
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	var n int
	var err error
	for n < len(p) && err == nil {
		var m int
		m, err = s.fr.Read(p[n:])
		n += m
	}
	s.gcount = n
	s.tcount += uint64(n)

	if s.tcount >= uint64(s.uncompressedSize) {
		s.eof = true
	}

	if err != nil && err != io.EOF {
		s.err = errors.Wrap(err, "zstream: inflate")
		return n, s.err
	}
	if err == io.EOF {
		s.eof = true
	}

	return n, nil
}

// Write implements io.Writer, feeding p into the underlying DEFLATE encoder.
func (s *Stream) Write(p []byte) (int, error) {
	if s.mode != Write {
		return 0, errors.Wrap(ErrBadConfig, "Write called on a read Stream")
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.eof {
		return 0, errors.New("zstream: write after Flush")
	}

	n, err := s.fw.Write(p)
	s.gcount = n
	s.tcount += uint64(n)
	if err != nil {
		if errors.Is(err, ErrBufferOverflow) {
			s.err = err
		} else {
			s.err = errors.Wrap(err, "zstream: deflate")
		}
		return n, s.err
	}

	return n, nil
}

// Flush finalizes the DEFLATE block sequence and emits any remaining
// buffered output. After Flush, the Stream can no longer be written to.
func (s *Stream) Flush() error {
	if s.mode != Write {
		return errors.Wrap(ErrBadConfig, "Flush called on a read Stream")
	}
	if s.err != nil {
		return s.err
	}
	if s.eof {
		return nil
	}

	if err := s.fw.Close(); err != nil {
		if errors.Is(err, ErrBufferOverflow) {
			s.err = err
		} else {
			s.err = errors.Wrap(err, "zstream: flush")
		}
		return s.err
	}

	s.eof = true
	return nil
}

// Close releases the engine state. In write mode, it flushes first if that
// hasn't happened yet.
func (s *Stream) Close() error {
	if s.mode == Write {
		if err := s.Flush(); err != nil {
			return err
		}
		return nil
	}

	if s.fr != nil {
		return s.fr.Close()
	}
	return nil
}

// EOF reports whether no more decompressed bytes are producible (read mode)
// or the stream has been finalized (write mode).
func (s *Stream) EOF() bool { return s.eof }

// Err returns the first error encountered, or nil.
func (s *Stream) Err() error { return s.err }

// GCount returns the number of bytes produced or consumed by the most recent
// Read/Write call.
func (s *Stream) GCount() int { return s.gcount }

// TCount returns the total number of decompressed bytes produced (read mode)
// or input bytes accepted (write mode) since open.
func (s *Stream) TCount() uint64 { return s.tcount }

// ZOffset returns the compressed-data cursor within the window: bytes pulled
// from the source (read mode) or bytes written to the sink (write mode).
func (s *Stream) ZOffset() uint64 { return *s.zoffsetp }

// Mode returns the mode the Stream was opened in.
func (s *Stream) Mode() Mode { return s.mode }

type countingReader struct {
	r io.Reader
	n *uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += uint64(n)
	return n, err
}

// boundedWriter is the sink for Write mode: it tracks the cumulative
// compressed-byte offset and refuses to write past max, mapping to
// ErrBufferOverflow the way the original design's memory-mode window check
// did — but here the same bound applies uniformly to memory and store-backed
// windows.
type boundedWriter struct {
	max      uint64
	zoffsetp *uint64
	writeAt  func(p []byte, at uint64) error
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	at := *b.zoffsetp
	if at+uint64(len(p)) > b.max {
		return 0, ErrBufferOverflow
	}
	if err := b.writeAt(p, at); err != nil {
		return 0, err
	}
	*b.zoffsetp += uint64(len(p))
	return len(p), nil
}

// Bound returns a safe upper bound on the compressed size of uncompressedSize
// bytes of input, for any compression level. This is the Go analogue of
// zlib's deflateBound/compressBound and lets callers size a gap-allocation
// request before any compression has actually happened.
func Bound(uncompressedSize uint32) uint32 {
	n := uint64(uncompressedSize)
	bound := n + (n >> 12) + (n >> 14) + (n >> 25) + 13
	if bound > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(bound)
}
