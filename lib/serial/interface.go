package serial

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Codec encodes and decodes values of a single type to and from byte regions
// owned by the storage engine.
//
// Encode may assume len(dst) >= EncodedSize(v) for the same v; it returns the
// number of bytes written. Decode must not retain src - the slice aliases
// lock-protected segment memory and is only valid for the duration of the
// call.
type Codec[T any] interface {
	// Check validates a value before any lock is taken. It returns an error
	// for values the codec cannot represent (e.g. a nil instance for a
	// pointer type). Check is called on the hot path and must not allocate.
	Check(v T) error

	// EncodedSize returns the exact number of bytes Encode will write for v.
	EncodedSize(v T) int

	// Encode writes v into dst and returns the number of bytes written.
	Encode(dst []byte, v T) int

	// Decode materializes a fresh instance from src. The returned value must
	// not alias src.
	Decode(src []byte) T
}

// InPlaceCodec is implemented by codecs whose type supports decoding into a
// caller-supplied mutable instance. This is a requirement for the
// acquire-style map operations, whose contract is to return exactly the
// instance that was passed in.
type InPlaceCodec[T any] interface {
	Codec[T]

	// DecodeInto decodes src into the given instance and returns it. The
	// returned value must be the identical instance that was passed in.
	DecodeInto(src []byte, into T) T

	// Same reports whether a and b are the identical instance. It is used to
	// enforce the acquire contract.
	Same(a, b T) bool
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// CheckError is returned by Codec.Check for values the codec cannot encode.
type CheckError struct {
	Type   string // name of the codec's type
	Reason string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("serial: invalid %s value: %s", e.Type, e.Reason)
}
