package ziparchive

import "github.com/pkg/errors"

var (
	// ErrCorrupted is returned by Open when no EOCD record can be found.
	ErrCorrupted = errors.New("ziparchive: archive corrupted, EOCD signature not found")

	// ErrNotFound is returned by Entry when name isn't present in the
	// directory. Unlike the original design, this is never latched on the
	// Archive itself — it's an ordinary returned error, since the absence
	// of one entry says nothing about the health of the archive.
	ErrNotFound = errors.New("ziparchive: entry not found")

	// ErrUnsupportedMethod is returned when an entry's compression method is
	// neither 8 (Deflate) nor 9 (Deflate64) — this library only reads and
	// writes DEFLATE-compressed entries, per the Non-goals.
	ErrUnsupportedMethod = errors.New("ziparchive: compression method not supported")

	// ErrAlreadyOpen is returned by Entry(name, ..., Write) when an entry
	// with that name already has an open write handle.
	ErrAlreadyOpen = errors.New("ziparchive: entry already open for write")

	// ErrBadMode is returned when Entry is called with neither or both of
	// Read/Write set.
	ErrBadMode = errors.New("ziparchive: mode must be exactly Read or Write")

	// ErrClosed is returned by Entry's Read, Write and Flush once that entry
	// has been closed. Closing the owning Archive does not mark its entries
	// closed: a read entry left open still reads through the backing store.
	ErrClosed = errors.New("ziparchive: entry closed")
)
