package csf

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rpcpool/csf/internal/filter"
	"github.com/rpcpool/csf/internal/valuecodec"
	"github.com/stretchr/testify/require"
)

func zipfKeysValues(n int, numSymbols int, seed int64) ([][]byte, []uint32) {
	r := rand.New(rand.NewSource(seed))
	zipf := rand.NewZipf(r, 2, 1, uint64(numSymbols-1))

	keys := make([][]byte, n)
	values := make([]uint32, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("zipf-key-%d", i))
		values[i] = uint32(zipf.Uint64())
	}
	return keys, values
}

// TestBuildQueryRoundTripsNoFilter covers testable property 1.
func TestBuildQueryRoundTripsNoFilter(t *testing.T) {
	keys, values := zipfKeysValues(2000, 200, 1)

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{BucketSize: 200})
	require.NoError(t, err)

	for i, k := range keys {
		require.Equal(t, values[i], c.Query(k))
	}
}

// TestBuildStats covers the construction-summary diagnostic: bucket and
// variable/bit counts must reflect the buckets actually solved, and a
// filter config must report a nonzero marshaled filter size.
func TestBuildStats(t *testing.T) {
	keys, values := zipfKeysValues(2000, 200, 9)

	c, stats, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{BucketSize: 200})
	require.NoError(t, err)
	require.Equal(t, c.NumBuckets(), stats.NumBuckets)
	require.Greater(t, stats.NumBuckets, 0)
	require.Greater(t, stats.TotalVariables, uint64(0))
	require.Equal(t, stats.TotalVariables, stats.TotalBits)
	require.Equal(t, 0, stats.FilterSize)
	require.GreaterOrEqual(t, stats.WallTime, time.Duration(0))

	_, statsWithFilter, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{
		BucketSize: 200,
		Filter:     filter.Config{Kind: filter.KindXOR, FingerprintBits: 8},
	})
	require.NoError(t, err)
	require.Greater(t, statsWithFilter.FilterSize, 0)
}

// TestBuildQueryRoundTripsWithFilters covers testable property 2, across
// all three filter variants.
func TestBuildQueryRoundTripsWithFilters(t *testing.T) {
	keys, values := zipfKeysValues(2000, 200, 2)

	configs := []filter.Config{
		{Kind: filter.KindBloom, ErrorRate: 0.01},
		{Kind: filter.KindXOR, FingerprintBits: 8},
		{Kind: filter.KindBinaryFuse, FingerprintBits: 8},
	}

	for _, cfg := range configs {
		cfg := cfg
		t.Run(fmt.Sprintf("kind=%d", cfg.Kind), func(t *testing.T) {
			c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{BucketSize: 200, Filter: cfg})
			require.NoError(t, err)

			for i, k := range keys {
				require.Equal(t, values[i], c.Query(k))
			}
		})
	}
}

// TestSaveLoadRoundTrip covers testable property 3 and scenario E6.
func TestSaveLoadRoundTrip(t *testing.T) {
	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := []uint32{1, 2, 3}

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.NoError(t, err)

	data, err := c.Save()
	require.NoError(t, err)

	reloaded, err := Load(data, valuecodec.Uint32{})
	require.NoError(t, err)

	for i, k := range keys {
		require.Equal(t, values[i], reloaded.Query(k))
	}
}

func TestSaveLoadRoundTripWithFilter(t *testing.T) {
	keys, values := zipfKeysValues(1000, 100, 3)

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{
		BucketSize: 200,
		Filter:     filter.Config{Kind: filter.KindXOR, FingerprintBits: 8},
	})
	require.NoError(t, err)

	data, err := c.Save()
	require.NoError(t, err)

	reloaded, err := Load(data, valuecodec.Uint32{})
	require.NoError(t, err)

	for i, k := range keys {
		require.Equal(t, values[i], reloaded.Query(k))
	}
}

// TestLoadRejectsTypeMismatch covers the DeserializationMismatch error
// taxonomy entry.
func TestLoadRejectsTypeMismatch(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b")}
	values := []uint32{1, 2}

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.NoError(t, err)

	data, err := c.Save()
	require.NoError(t, err)

	_, err = Load(data, valuecodec.Uint64{})
	require.Error(t, err)
	var desErr *DeserializationError
	require.True(t, errors.As(err, &desErr))
}

// Scenario E1.
func TestE1ThreeKeyCSF(t *testing.T) {
	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := []uint32{1, 2, 3}

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.NoError(t, err)

	for i, k := range keys {
		require.Equal(t, values[i], c.Query(k))
	}
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	_, _, err := Build[uint32](nil, nil, valuecodec.Uint32{}, BuildOptions{})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBuildRejectsMismatchedLengths(t *testing.T) {
	_, _, err := Build([][]byte{[]byte("a")}, []uint32{1, 2}, valuecodec.Uint32{}, BuildOptions{})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBuildSingleKeyValue(t *testing.T) {
	keys := [][]byte{[]byte("only-key")}
	values := []uint32{42}

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, uint32(42), c.Query(keys[0]))
}

func TestBuildDetectsDuplicateKey(t *testing.T) {
	keys := [][]byte{[]byte("dup"), []byte("dup"), []byte("other")}
	values := []uint32{1, 2, 3}

	_, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBuildAllValuesIdentical(t *testing.T) {
	keys := make([][]byte, 50)
	values := make([]uint32, 50)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("same-value-key-%d", i))
		values[i] = 7
	}

	c, _, err := Build(keys, values, valuecodec.Uint32{}, BuildOptions{})
	require.NoError(t, err)
	for _, k := range keys {
		require.Equal(t, uint32(7), c.Query(k))
	}
}
