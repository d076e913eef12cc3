package engine

import "errors"

var (
	// ErrSegmentFull is returned when an allocation cannot find enough free
	// chunks in the segment's slab. This is a capacity error: the engine
	// never grows a slab after construction.
	ErrSegmentFull = errors.New("engine: segment is full")

	// ErrWontFit is returned by UpdateInPlace when the new value exceeds the
	// entry's allocated capacity.
	ErrWontFit = errors.New("engine: value does not fit in place")

	// ErrGuardReleased is returned when a segment guard is released more
	// than once.
	ErrGuardReleased = errors.New("engine: segment guard already released")

	// ErrInvalidRef is returned when an entry reference does not point at a
	// live entry.
	ErrInvalidRef = errors.New("engine: invalid entry reference")
)
