// Package densege implements dense Gaussian elimination over the small
// residual system that hypergraph peeling and lazy Gaussian elimination
// leave behind (spec.md §4.8): a pairwise first-variable elimination pass
// followed by back-substitution.
package densege

import (
	"fmt"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/gf2"
)

// ErrUnsolvable is returned when an equation reduces to 0 = 1.
type ErrUnsolvable struct {
	EquationID uint32
}

func (e *ErrUnsolvable) Error() string {
	return fmt.Sprintf("equation %d has all coefficients = 0 but constant is 1", e.EquationID)
}

// Run eliminates relevantEquationIDs within dense and returns a solution
// BitArray over dense.SolutionSize() variables.
//
// For each pair (top, bot) with top before bot in relevantEquationIDs: if
// their first (lowest-index) set variables coincide, bot is XORed with
// top to eliminate it. Unlike a naive port of the textbook pairwise
// elimination, the post-XOR unsolvability check below looks at bot (the
// row that was just modified), not top — checking the unmodified row
// would never catch a 0 = 1 contradiction introduced by the XOR.
func Run(dense *gf2.Dense, relevantEquationIDs []uint32) (*bitarray.BitArray, error) {
	firstVars := make(map[uint32]uint32, len(relevantEquationIDs))
	for _, id := range relevantEquationIDs {
		v, ok := dense.FirstVar(id)
		if !ok {
			v = dense.SolutionSize() // sentinel: no set bit, sorts last
		}
		firstVars[id] = v
	}

	n := len(relevantEquationIDs)
	for topIdx := 0; topIdx < n-1; topIdx++ {
		for botIdx := topIdx + 1; botIdx < n; botIdx++ {
			topID := relevantEquationIDs[topIdx]
			botID := relevantEquationIDs[botIdx]

			if firstVars[topID] == firstVars[botID] {
				dense.XorEquations(botID, topID)

				if dense.IsUnsolvable(botID) {
					return nil, &ErrUnsolvable{EquationID: botID}
				}

				if v, ok := dense.FirstVar(botID); ok {
					firstVars[botID] = v
				} else {
					firstVars[botID] = dense.SolutionSize()
				}
			}

			if firstVars[topID] > firstVars[botID] {
				dense.SwapEquations(topID, botID)
				firstVars[topID], firstVars[botID] = firstVars[botID], firstVars[topID]
			}
		}
	}

	solution := bitarray.New(dense.SolutionSize())
	for i := n - 1; i >= 0; i-- {
		equationID := relevantEquationIDs[i]
		if dense.IsIdentity(equationID) {
			continue
		}

		row, constant := dense.Equation(equationID)
		if constant^bitarray.ScalarProduct(row, solution) == 1 {
			solution.Set(firstVars[equationID])
		}
	}

	return solution, nil
}
