package ziparchive

import (
	"hash/crc32"
	"time"

	"github.com/pkg/errors"

	"github.com/CodeJuan/zipstream/zstream"
)

// Entry is an open handle onto one archive member, bound to the
// byte-counting DEFLATE adapter that does the actual transfer.
type Entry struct {
	archive *Archive
	record  *record
	mode    Mode
	stream  *zstream.Stream

	crc    uint32
	closed bool
}

// writeLocalFileHeader writes a provisional Local File Header for r into the
// gap already reserved at r.relativeOffset. CRC-32 and the two size fields
// are placeholders until Entry.Close patches them in.
func (a *Archive) writeLocalFileHeader(r *record) error {
	buf := encodeLocalFileHeader(r)
	if _, err := a.store.WriteAt(buf, int64(r.relativeOffset)); err != nil {
		return errors.Wrap(err, "ziparchive: write local file header")
	}
	return nil
}

func (a *Archive) openRead(r *record) (*Entry, error) {
	s, err := zstream.NewAt(a.store, uint64(r.absoluteOffset), r.compressedSize, r.uncompressedSize, zstream.Options{
		Mode: zstream.Read,
		Raw:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ziparchive: open entry for read")
	}

	return &Entry{
		archive: a,
		record:  r,
		mode:    Read,
		stream:  s,
	}, nil
}

func (a *Archive) openWrite(r *record) (*Entry, error) {
	s, err := zstream.NewAt(a.store, uint64(r.absoluteOffset), r.compressedSize, r.uncompressedSize, zstream.Options{
		Mode: zstream.Write,
		Raw:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ziparchive: open entry for write")
	}

	return &Entry{
		archive: a,
		record:  r,
		mode:    Write,
		stream:  s,
	}, nil
}

// Name returns the entry's path within the archive.
func (e *Entry) Name() string { return e.record.name }

// Comment returns the entry's Central Directory comment.
func (e *Entry) Comment() []byte { return e.record.comment }

// ModTime returns the entry's modification time, decoded from its packed
// DOS timestamp.
func (e *Entry) ModTime() time.Time { return e.record.modTime() }

// CompressedSize returns the entry's compressed size as currently recorded.
// For a write handle still in progress this is the declared upper bound,
// not yet the final size.
func (e *Entry) CompressedSize() uint32 { return e.record.compressedSize }

// UncompressedSize returns the entry's uncompressed size as currently
// recorded.
func (e *Entry) UncompressedSize() uint32 { return e.record.uncompressedSize }

// CRC32 returns the entry's recorded CRC-32 of its uncompressed data.
func (e *Entry) CRC32() uint32 { return e.record.crc32 }

// Mode returns whether the entry is open for Read or Write.
func (e *Entry) Mode() Mode { return e.mode }

// EOF reports whether the last Read reached the entry's declared
// uncompressed size.
func (e *Entry) EOF() bool { return e.stream.EOF() }

// Err returns the first error encountered by the underlying stream, if any.
func (e *Entry) Err() error { return e.stream.Err() }

// GCount returns the byte count transferred by the most recent Read or
// Write call.
func (e *Entry) GCount() int { return e.stream.GCount() }

// TCount returns the cumulative uncompressed byte count transferred over
// the entry's lifetime.
func (e *Entry) TCount() uint64 { return e.stream.TCount() }

// ZOffset returns the compressed-data cursor within the entry's window:
// bytes consumed from its compressed payload (read) or written to it (write).
func (e *Entry) ZOffset() uint64 { return e.stream.ZOffset() }

// Read decompresses up to len(p) bytes of the entry's uncompressed content.
func (e *Entry) Read(p []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if e.mode != Read {
		return 0, ErrBadMode
	}
	return e.stream.Read(p)
}

// Write compresses p into the entry's reserved span. It returns
// ErrBufferOverflow (via the underlying stream) if the entry's declared
// compressed-size bound would be exceeded.
func (e *Entry) Write(p []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if e.mode != Write {
		return 0, ErrBadMode
	}
	e.crc = crc32.Update(e.crc, crc32.IEEETable, p)
	return e.stream.Write(p)
}

// Flush finalizes the entry's DEFLATE stream and writes out its remaining
// output. Later Writes fail; the entry itself stays open until Close.
func (e *Entry) Flush() error {
	if e.closed {
		return ErrClosed
	}
	if e.mode != Write {
		return ErrBadMode
	}
	return e.stream.Flush()
}

// Close finalizes the entry. For a read handle this just releases the
// underlying stream. For a write handle it finishes the DEFLATE stream,
// patches the Local File Header and Central Directory record with the
// final CRC-32 and sizes, and marks the owning archive dirty so the
// directory gets rewritten on Archive.Close.
func (e *Entry) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	streamErr := e.stream.Close()

	if e.mode == Read {
		if streamErr != nil {
			return errors.Wrap(streamErr, "ziparchive: close entry stream")
		}
		return nil
	}

	// Release logic runs even when the stream failed: a write handle that
	// can't finish must still come off the open-entries list, or the
	// archive itself can never be closed.
	e.archive.forgetOpen(e.record.name)
	e.archive.dirty = true

	if streamErr != nil {
		return errors.Wrap(streamErr, "ziparchive: close entry stream")
	}

	r := e.record
	r.crc32 = e.crc
	r.compressedSize = uint32(e.stream.ZOffset())
	r.uncompressedSize = uint32(e.stream.TCount())

	patch := patchLocalFileHeaderFields(r.crc32, r.compressedSize, r.uncompressedSize)
	if _, err := e.archive.store.WriteAt(patch, int64(r.relativeOffset)+14); err != nil {
		return errors.Wrap(err, "ziparchive: patch local file header")
	}

	return nil
}
