package xhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignDeterministic(t *testing.T) {
	a := Sign([]byte("hello"), 7)
	b := Sign([]byte("hello"), 7)
	require.Equal(t, a, b)

	c := Sign([]byte("hello"), 8)
	require.NotEqual(t, a, c)
}

func TestBucketIDInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sig := Sign([]byte{byte(i), byte(i >> 8)}, 1)
		id := BucketID(sig, 17)
		require.Less(t, id, uint32(17))
	}
}

func TestThreeStartPositionsDistinct(t *testing.T) {
	for i := 0; i < 1000; i++ {
		sig := Sign([]byte{byte(i), byte(i >> 8), byte(i >> 16)}, 3)
		a, b, c := ThreeStartPositions(sig, 42, 101)
		require.Less(t, a, uint32(101))
		require.Less(t, b, uint32(101))
		require.Less(t, c, uint32(101))
		require.NotEqual(t, a, b)
		require.NotEqual(t, a, c)
		require.NotEqual(t, b, c)
	}
}

func TestMulHigh64(t *testing.T) {
	// floor(2^64-1 * 2 / 2^64) == 1
	require.Equal(t, uint64(1), MulHigh64(^uint64(0), 2))
	require.Equal(t, uint64(0), MulHigh64(0, 12345))
}
