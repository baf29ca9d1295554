package peel

import (
	"testing"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/gf2"
	"github.com/stretchr/testify/require"
)

func TestPeelFullyPeelableChain(t *testing.T) {
	// Equation 0: vars {0,1,2}; equation 1: vars {2,3,4}; equation 2: vars {4,5,6}.
	// Variable 0 has degree 1 -> peels eq0, which drops variable 2 to
	// degree 1 and peels eq1, which in turn drops variable 4 and peels eq2.
	// Each peeled equation contributes one (variable, equation) pair.
	sparse := gf2.NewSparse(7)
	sparse.AddEquation([]uint32{0, 1, 2}, 1)
	sparse.AddEquation([]uint32{2, 3, 4}, 0)
	sparse.AddEquation([]uint32{4, 5, 6}, 1)

	result := Peel(sparse, []uint32{0, 1, 2})
	require.Empty(t, result.UnpeeledEquationIDs)
	require.Len(t, result.VariableOrder, 3)
	require.Len(t, result.EquationOrder, 3)
}

func TestPeelLeavesCoreWhenNoDegreeOne(t *testing.T) {
	// A 3-cycle over 3 equations sharing all variables at degree >= 2:
	// no variable ever reaches degree 1, so nothing peels.
	sparse := gf2.NewSparse(3)
	sparse.AddEquation([]uint32{0, 1}, 0)
	sparse.AddEquation([]uint32{1, 2}, 0)
	sparse.AddEquation([]uint32{0, 2}, 1)

	result := Peel(sparse, []uint32{0, 1, 2})
	require.ElementsMatch(t, []uint32{0, 1, 2}, result.UnpeeledEquationIDs)
	require.Empty(t, result.VariableOrder)
}

// TestPeelBacksubstitutionConsistent checks invariant 6 from spec.md §8:
// each peeled equation uses exactly one variable not used by any
// later-peeled equation, so reversing the order yields a valid
// back-substitution order that reproduces the original equations.
func TestPeelBacksubstitutionConsistent(t *testing.T) {
	sparse := gf2.NewSparse(7)
	sparse.AddEquation([]uint32{0, 1, 2}, 1)
	sparse.AddEquation([]uint32{2, 3, 4}, 0)
	sparse.AddEquation([]uint32{4, 5, 6}, 1)

	result := Peel(sparse, []uint32{0, 1, 2})

	solution := bitarray.New(7)
	for i, eqID := range result.EquationOrder {
		v := result.VariableOrder[i]
		vars, constant := sparse.Equation(eqID)
		row := bitarray.New(7)
		for _, vv := range vars {
			row.Set(vv)
		}
		row.Clear(v)
		if constant^bitarray.ScalarProduct(row, solution) == 1 {
			solution.Set(v)
		}
	}

	// Verify every original equation is satisfied.
	for eqID := uint32(0); eqID < 3; eqID++ {
		vars, constant := sparse.Equation(eqID)
		row := bitarray.New(7)
		for _, vv := range vars {
			row.Set(vv)
		}
		require.Equal(t, constant, bitarray.ScalarProduct(row, solution))
	}
}
