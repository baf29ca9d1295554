package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteU8(7))
	require.NoError(t, w.WriteU32(123456))
	require.NoError(t, w.WriteU64(9876543210))
	require.NoError(t, w.WriteRaw([]byte("hello")))

	data := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(data)
	v8, err := r.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), v8)

	v32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(123456), v32)

	v64, err := r.ReadU64()
	require.NoError(t, err)
	require.Equal(t, uint64(9876543210), v64)

	raw, err := r.ReadRaw(5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(raw))
}

func TestReaderDetectsShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadU32()
	require.Error(t, err)
}
