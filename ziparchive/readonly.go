package ziparchive

import (
	"io"

	"github.com/pkg/errors"
)

// ErrReadOnly is returned by any mutating operation on an Archive opened
// with OpenReader.
var ErrReadOnly = errors.New("ziparchive: archive opened read-only")

// OpenReader opens an Archive over ra (e.g. a remote.Reader fetching
// over HTTP range requests) without ever needing write access to the
// backing bytes. size must be the exact length of the data ra fronts, since
// it anchors the backward EOCD scan the same way *os.File's Stat does for
// Open. Entry(name, ..., Write), Remove, Compact, and Close's directory
// rewrite all fail with ErrReadOnly.
func OpenReader(ra io.ReaderAt, size int64) (*Archive, error) {
	return openStore(&readOnlyStore{ReaderAt: ra, size: size}, "")
}

// readOnlyStore adapts a plain io.ReaderAt into the ziparchive.Store
// interface, rejecting every mutating call with ErrReadOnly instead of
// panicking on a missing method.
type readOnlyStore struct {
	io.ReaderAt
	size int64
}

func (s *readOnlyStore) Size() int64 { return s.size }

func (s *readOnlyStore) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrReadOnly
}

func (s *readOnlyStore) Truncate(size int64) error { return ErrReadOnly }

func (s *readOnlyStore) Sync() error { return nil }

func (s *readOnlyStore) Close() error {
	if c, ok := s.ReaderAt.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
