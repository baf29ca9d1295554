package huffman

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

// bitReaderFromCode turns a Code into a nextBit() closure reading MSB-first.
func bitReaderFromCode(c Code) func() uint32 {
	i := uint32(0)
	return func() uint32 {
		bit := (c.Bits >> (c.Length - 1 - i)) & 1
		i++
		return uint32(bit)
	}
}

func TestRoundTripSkewed(t *testing.T) {
	symbols := []int{}
	for i := 0; i < 100; i++ {
		symbols = append(symbols, 1) // dominant value
	}
	for i := 0; i < 10; i++ {
		symbols = append(symbols, 2)
	}
	for i := 0; i < 3; i++ {
		symbols = append(symbols, 3)
	}
	symbols = append(symbols, 4, 5)

	table, codes, err := Build(symbols, intLess)
	require.NoError(t, err)

	for _, s := range []int{1, 2, 3, 4, 5} {
		code := codes[s]
		got, err := Decode(table, bitReaderFromCode(code))
		require.NoError(t, err)
		require.Equal(t, s, got)

		got2, err := DecodeFromInt(table, code.Bits<<(table.MaxCodeLength-code.Length))
		require.NoError(t, err)
		require.Equal(t, s, got2)
	}
}

func TestSingleSymbolGetsLengthOne(t *testing.T) {
	symbols := []int{7, 7, 7, 7}
	table, codes, err := Build(symbols, intLess)
	require.NoError(t, err)
	require.Equal(t, uint32(1), codes[7].Length)
	got, err := Decode(table, bitReaderFromCode(codes[7]))
	require.NoError(t, err)
	require.Equal(t, 7, got)
}

func TestEmptyAlphabetErrors(t *testing.T) {
	_, _, err := Build([]int{}, intLess)
	require.Error(t, err)
}

func TestRandomizedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(500)
		alphabet := 1 + rng.Intn(30)
		symbols := make([]int, n)
		for i := range symbols {
			symbols[i] = rng.Intn(alphabet)
		}
		table, codes, err := Build(symbols, intLess)
		require.NoError(t, err)
		for s, code := range codes {
			got, err := Decode(table, bitReaderFromCode(code))
			require.NoError(t, err)
			require.Equal(t, s, got)
		}
	}
}

func TestCodeLengthCountsZeroAtIndexZero(t *testing.T) {
	table, _, err := Build([]int{1, 1, 2, 3}, intLess)
	require.NoError(t, err)
	require.Equal(t, uint32(0), table.CodeLengthCounts[0])
}
