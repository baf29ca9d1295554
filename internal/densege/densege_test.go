package densege

import (
	"testing"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/gf2"
	"github.com/stretchr/testify/require"
)

func buildDense(t *testing.T, rows [][]uint32, constants []uint32) (*gf2.Dense, []uint32) {
	t.Helper()
	maxVar := uint32(0)
	for _, r := range rows {
		for _, v := range r {
			if v+1 > maxVar {
				maxVar = v + 1
			}
		}
	}
	dense := gf2.NewDense(maxVar)
	ids := make([]uint32, len(rows))
	for i, r := range rows {
		dense.AddEquation(uint32(i), r, constants[i])
		ids[i] = uint32(i)
	}
	return dense, ids
}

func TestRunSolvesSimpleSystem(t *testing.T) {
	// x0 ^ x1 = 1
	// x1 ^ x2 = 0
	// x0 ^ x2 = 1
	dense, ids := buildDense(t,
		[][]uint32{{0, 1}, {1, 2}, {0, 2}},
		[]uint32{1, 0, 1},
	)

	solution, err := Run(dense, ids)
	require.NoError(t, err)

	for _, eq := range []struct {
		vars []uint32
		c    uint32
	}{
		{[]uint32{0, 1}, 1},
		{[]uint32{1, 2}, 0},
		{[]uint32{0, 2}, 1},
	} {
		row := bitarray.New(3)
		for _, v := range eq.vars {
			row.Set(v)
		}
		require.Equal(t, eq.c, bitarray.ScalarProduct(row, solution))
	}
}

func TestRunDetectsUnsolvable(t *testing.T) {
	// x0 ^ x1 = 0 and x0 ^ x1 = 1 contradict once combined.
	dense, ids := buildDense(t,
		[][]uint32{{0, 1}, {0, 1}},
		[]uint32{0, 1},
	)

	_, err := Run(dense, ids)
	require.Error(t, err)
	var unsolvable *ErrUnsolvable
	require.ErrorAs(t, err, &unsolvable)
}

func TestRunSkipsIdentityRows(t *testing.T) {
	dense, ids := buildDense(t,
		[][]uint32{{0, 1}, {0, 1}, {1}},
		[]uint32{1, 1, 1},
	)
	// Equations 0 and 1 are identical -> XOR produces an identity row.
	solution, err := Run(dense, ids)
	require.NoError(t, err)
	require.Equal(t, uint32(1), solution.Get(1))
}
