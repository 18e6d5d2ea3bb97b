package zstream

import "github.com/pkg/errors"

var (
	// ErrBadConfig is returned when a Stream is opened with an invalid mode
	// (neither or both of Read/Write set).
	ErrBadConfig = errors.New("zstream: bad configuration")

	// ErrBufferOverflow is returned when a write would exceed the window's
	// declared compressed-size bound.
	ErrBufferOverflow = errors.New("zstream: write would overflow compressed-size window")
)
