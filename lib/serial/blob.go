package serial

// --------------------------------------------------------------------------
// Blob - a mutable, reusable value holder
// --------------------------------------------------------------------------

// Blob is a mutable byte-carrying value type. Unlike a plain []byte it has a
// stable identity (a *Blob pointer), which makes it usable with the
// acquire/getUsing style of map operations: the map decodes into the caller's
// Blob and hands the very same instance back.
type Blob struct {
	Data []byte
}

// NewBlob returns a Blob holding a copy of data.
func NewBlob(data []byte) *Blob {
	b := &Blob{Data: make([]byte, len(data))}
	copy(b.Data, data)
	return b
}

// SetUint64 replaces the blob's content with the little-endian encoding of v.
func (b *Blob) SetUint64(v uint64) {
	if cap(b.Data) < 8 {
		b.Data = make([]byte, 8)
	}
	b.Data = b.Data[:8]
	for i := 0; i < 8; i++ {
		b.Data[i] = byte(v >> (8 * i))
	}
}

// Uint64 interprets the blob's content as a little-endian uint64.
// Short blobs read as if zero-padded.
func (b *Blob) Uint64() uint64 {
	var v uint64
	for i := 0; i < len(b.Data) && i < 8; i++ {
		v |= uint64(b.Data[i]) << (8 * i)
	}
	return v
}

// --------------------------------------------------------------------------
// Blob Codec
// --------------------------------------------------------------------------

// NewBlobCodec returns an in-place codec for *Blob values.
func NewBlobCodec() InPlaceCodec[*Blob] {
	return blobCodec{}
}

type blobCodec struct{}

func (blobCodec) Check(v *Blob) error {
	if v == nil {
		return &CheckError{Type: "*serial.Blob", Reason: "nil instance"}
	}
	return nil
}

func (blobCodec) EncodedSize(v *Blob) int { return len(v.Data) }

func (blobCodec) Encode(dst []byte, v *Blob) int {
	return copy(dst, v.Data)
}

func (blobCodec) Decode(src []byte) *Blob {
	return NewBlob(src)
}

func (blobCodec) DecodeInto(src []byte, into *Blob) *Blob {
	if cap(into.Data) < len(src) {
		into.Data = make([]byte, len(src))
	}
	into.Data = into.Data[:len(src)]
	copy(into.Data, src)
	return into
}

func (blobCodec) Same(a, b *Blob) bool { return a == b }
