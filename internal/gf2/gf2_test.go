package gf2

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupeParity(t *testing.T) {
	out := DedupeParity([]uint32{1, 2, 2, 3, 3, 3})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	require.Equal(t, []uint32{1, 3}, out)
}

func TestDenseXorAndSwap(t *testing.T) {
	d := NewDense(8)
	d.AddEquation(0, []uint32{1, 2}, 1)
	d.AddEquation(1, []uint32{2, 3}, 0)

	d.XorEquations(0, 1)
	row, c := d.Equation(0)
	require.Equal(t, uint32(1), c)
	require.Equal(t, uint32(1), row.Get(1))
	require.Equal(t, uint32(0), row.Get(2)) // 2 XOR 2 cancels
	require.Equal(t, uint32(1), row.Get(3))

	d.SwapEquations(0, 1)
	row0, _ := d.Equation(0)
	require.Equal(t, uint32(1), row0.Get(2))
	require.Equal(t, uint32(1), row0.Get(3))
}

func TestIdentityAndUnsolvable(t *testing.T) {
	d := NewDense(4)
	d.AddEquation(0, nil, 0)
	d.AddEquation(1, nil, 1)
	require.True(t, d.IsIdentity(0))
	require.False(t, d.IsUnsolvable(0))
	require.True(t, d.IsUnsolvable(1))
}

func TestSparseAddAndGet(t *testing.T) {
	s := NewSparse(16)
	id := s.AddEquation([]uint32{1, 2, 3}, 1)
	vars, c := s.Equation(id)
	require.Equal(t, []uint32{1, 2, 3}, vars)
	require.Equal(t, uint32(1), c)
	require.Equal(t, 1, s.NumEquations())
}
