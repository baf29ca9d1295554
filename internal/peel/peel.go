// Package peel implements hypergraph peeling over a sparse GF(2) system
// (spec.md §4.6): greedily removing degree-1 variables and the unique
// equation on each, until no more can be removed.
package peel

import "github.com/rpcpool/csf/internal/gf2"

// Result is the output of peeling: the solution order (variables, and the
// equation that defines each, in the order they should be solved via
// back-substitution) plus the ids of equations that were not peeled and
// must be handed to lazy Gaussian elimination.
type Result struct {
	// UnpeeledEquationIDs are the equations that remain after peeling.
	UnpeeledEquationIDs []uint32
	// VariableOrder[i] is solved by EquationOrder[i], and this is already
	// reversed so that back-substitution can run last-peeled-first.
	VariableOrder []uint32
	EquationOrder []uint32
}

// Peel runs the peeling algorithm over equationIDs within sparse.
func Peel(sparse *gf2.Sparse, equationIDs []uint32) Result {
	numVariables := sparse.SolutionSize()
	numEquations := sparse.NumEquations()

	degree := make([]uint32, numVariables)
	equationIsPeeled := make([]bool, numEquations)
	// equationIDXors[v] is the XOR of the ids of unpeeled equations
	// containing v; with degree[v] == 1, that XOR equals the single
	// remaining equation id.
	equationIDXors := make([]uint32, numVariables)

	for _, eqID := range equationIDs {
		vars, _ := sparse.Equation(eqID)
		for _, v := range vars {
			degree[v]++
			equationIDXors[v] ^= eqID
		}
	}

	var vertexStack []uint32
	var varsToPeel []uint32

	for v := uint32(0); v < numVariables; v++ {
		if degree[v] != 1 {
			continue
		}
		varsToPeel = varsToPeel[:0]
		varsToPeel = append(varsToPeel, v)
		processed := 0
		for processed < len(varsToPeel) {
			varToPeel := varsToPeel[processed]
			processed++
			if degree[varToPeel] != 1 {
				continue // already peeled via another path
			}
			vertexStack = append(vertexStack, varToPeel)
			peeledEquationID := equationIDXors[varToPeel]
			equationIsPeeled[peeledEquationID] = true

			varsToUpdate, _ := sparse.Equation(peeledEquationID)
			for _, w := range varsToUpdate {
				degree[w]--
				if w != varToPeel {
					equationIDXors[w] ^= peeledEquationID
				}
			}

			// De-dupe, since varsToUpdate may repeat a variable (wraparound
			// collisions in the three start positions).
			seen := make(map[uint32]bool, len(varsToUpdate))
			for _, w := range varsToUpdate {
				if seen[w] {
					continue
				}
				seen[w] = true
				if degree[w] == 1 {
					varsToPeel = append(varsToPeel, w)
				}
			}
		}
	}

	unpeeled := make([]uint32, 0, len(equationIDs))
	for _, eqID := range equationIDs {
		if !equationIsPeeled[eqID] {
			unpeeled = append(unpeeled, eqID)
		}
	}

	// Reverse: back-substitution runs last-peeled-first.
	for i, j := 0, len(vertexStack)-1; i < j; i, j = i+1, j-1 {
		vertexStack[i], vertexStack[j] = vertexStack[j], vertexStack[i]
	}

	equationOrder := make([]uint32, len(vertexStack))
	for i, v := range vertexStack {
		equationOrder[i] = equationIDXors[v]
	}

	return Result{
		UnpeeledEquationIDs: unpeeled,
		VariableOrder:       vertexStack,
		EquationOrder:       equationOrder,
	}
}
