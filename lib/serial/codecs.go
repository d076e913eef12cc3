package serial

import "encoding/binary"

// --------------------------------------------------------------------------
// String Codec
// --------------------------------------------------------------------------

// NewStringCodec returns a codec for string keys and values.
func NewStringCodec() Codec[string] {
	return stringCodec{}
}

type stringCodec struct{}

func (stringCodec) Check(string) error { return nil }

func (stringCodec) EncodedSize(v string) int { return len(v) }

func (stringCodec) Encode(dst []byte, v string) int {
	return copy(dst, v)
}

func (stringCodec) Decode(src []byte) string {
	// string conversion copies, the result never aliases segment memory
	return string(src)
}

// --------------------------------------------------------------------------
// Bytes Codec
// --------------------------------------------------------------------------

// NewBytesCodec returns a codec for []byte values. A nil slice is rejected by
// Check so that "no value" stays distinguishable from "empty value".
func NewBytesCodec() Codec[[]byte] {
	return bytesCodec{}
}

type bytesCodec struct{}

func (bytesCodec) Check(v []byte) error {
	if v == nil {
		return &CheckError{Type: "[]byte", Reason: "nil slice"}
	}
	return nil
}

func (bytesCodec) EncodedSize(v []byte) int { return len(v) }

func (bytesCodec) Encode(dst []byte, v []byte) int {
	return copy(dst, v)
}

func (bytesCodec) Decode(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// --------------------------------------------------------------------------
// Uint64 Codec
// --------------------------------------------------------------------------

// NewUint64Codec returns a fixed-size codec for uint64 values.
func NewUint64Codec() Codec[uint64] {
	return uint64Codec{}
}

type uint64Codec struct{}

func (uint64Codec) Check(uint64) error { return nil }

func (uint64Codec) EncodedSize(uint64) int { return 8 }

func (uint64Codec) Encode(dst []byte, v uint64) int {
	binary.LittleEndian.PutUint64(dst, v)
	return 8
}

func (uint64Codec) Decode(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}
