package entropy

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestH0Uniform(t *testing.T) {
	// Four distinct values, each appearing once: entropy = log2(4) = 2.
	h := H0([]int{1, 2, 3, 4})
	require.InDelta(t, 2.0, h, 1e-9)
}

func TestH0SingleValue(t *testing.T) {
	require.Equal(t, 0.0, H0([]int{7, 7, 7}))
}

func rowMultiset(row []int) []int {
	out := append([]int(nil), row...)
	sort.Ints(out)
	return out
}

func totalEntropy(matrix [][]int, numCols int) float64 {
	total := 0.0
	for c := 0; c < numCols; c++ {
		column := make([]int, len(matrix))
		for r, row := range matrix {
			column[r] = row[c]
		}
		total += H0(column)
	}
	return total
}

func TestPermutePreservesRowMultisets(t *testing.T) {
	matrix := [][]int{
		{1, 2, 3},
		{2, 1, 3},
		{1, 1, 2},
		{3, 2, 1},
	}
	before := make([][]int, len(matrix))
	for i, row := range matrix {
		before[i] = rowMultiset(row)
	}

	Permute(matrix)

	for i, row := range matrix {
		require.Equal(t, before[i], rowMultiset(row), "row %d multiset changed", i)
	}
}

func TestPermuteDoesNotIncreaseEntropy(t *testing.T) {
	matrix := [][]int{
		{1, 2, 3, 4},
		{2, 1, 4, 3},
		{1, 3, 2, 4},
		{4, 2, 1, 3},
		{1, 2, 4, 3},
	}
	before := totalEntropy(matrix, 4)

	Permute(matrix)

	after := totalEntropy(matrix, 4)
	require.True(t, after <= before+1e-9, "entropy increased: before=%v after=%v", before, after)
}

func TestPermuteGroupsRepeatedColumnValue(t *testing.T) {
	// Every row holds the value 9 once; a correct greedy permutation
	// should be able to push all of them into one column, zeroing that
	// column's entropy.
	matrix := [][]int{
		{9, 1, 2},
		{5, 9, 3},
		{4, 6, 9},
	}

	Permute(matrix)

	zeroedColumn := -1
	for c := 0; c < 3; c++ {
		allNine := true
		for r := range matrix {
			if matrix[r][c] != 9 {
				allNine = false
				break
			}
		}
		if allNine {
			zeroedColumn = c
		}
	}
	require.NotEqual(t, -1, zeroedColumn, "expected some column to collect every 9")
	require.Equal(t, 0.0, H0(columnOf(matrix, zeroedColumn)))
}

func columnOf(matrix [][]int, c int) []int {
	out := make([]int, len(matrix))
	for r, row := range matrix {
		out[r] = row[c]
	}
	return out
}

func TestH0Uses(t *testing.T) {
	// Sanity: more skewed distribution has lower entropy than uniform.
	skewed := H0([]int{1, 1, 1, 1, 2})
	uniform := H0([]int{1, 2, 3, 4, 5})
	require.Less(t, skewed, uniform)
	require.True(t, math.IsInf(skewed, 0) == false)
}
