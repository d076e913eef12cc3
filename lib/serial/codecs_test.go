package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringCodecRoundTrip(t *testing.T) {
	codec := NewStringCodec()

	for _, s := range []string{"", "a", "hello world", "data with \x00 bytes"} {
		require.NoError(t, codec.Check(s))

		buf := make([]byte, codec.EncodedSize(s))
		n := codec.Encode(buf, s)
		assert.Equal(t, len(s), n)
		assert.Equal(t, s, codec.Decode(buf))
	}
}

func TestBytesCodecRejectsNil(t *testing.T) {
	codec := NewBytesCodec()
	assert.Error(t, codec.Check(nil))
	assert.NoError(t, codec.Check([]byte{}))
}

func TestBytesCodecDecodeCopies(t *testing.T) {
	codec := NewBytesCodec()

	src := []byte("segment memory")
	out := codec.Decode(src)
	require.Equal(t, src, out)

	// mutating the source must not show through the decoded instance
	src[0] = 'X'
	assert.Equal(t, byte('s'), out[0])
}

func TestUint64Codec(t *testing.T) {
	codec := NewUint64Codec()

	buf := make([]byte, codec.EncodedSize(0))
	for _, v := range []uint64{0, 1, 42, 1<<63 + 7} {
		codec.Encode(buf, v)
		assert.Equal(t, v, codec.Decode(buf))
	}
}

func TestBlobCodecDecodeInto(t *testing.T) {
	codec := NewBlobCodec()

	given := NewBlob(nil)
	got := codec.DecodeInto([]byte("payload"), given)

	require.True(t, codec.Same(given, got), "DecodeInto must return the given instance")
	assert.Equal(t, []byte("payload"), given.Data)

	// a second decode into the same instance reuses its buffer
	got = codec.DecodeInto([]byte("pay"), given)
	assert.Same(t, given, got)
	assert.Equal(t, []byte("pay"), given.Data)
}

func TestBlobUint64(t *testing.T) {
	b := NewBlob(nil)
	b.SetUint64(123456789)
	assert.Equal(t, uint64(123456789), b.Uint64())
}
