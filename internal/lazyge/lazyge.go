// Package lazyge implements lazy Gaussian elimination over the equations
// that hypergraph peeling left behind (spec.md §4.7): variables are kept
// "idle" as long as possible, equations are classified by how many idle
// variables they still reference, and only the equations that end up
// referencing solely active variables are handed to dense Gaussian
// elimination.
package lazyge

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

// Result is the output of lazy Gaussian elimination.
type Result struct {
	// DenseEquationIDs are equations whose variables are all active; these
	// are handed to dense Gaussian elimination.
	DenseEquationIDs []uint32
	// SolvedEquationIDs[i] defines SolvedVariableIDs[i] in terms of
	// whatever active variables remain in the dense system at that point.
	SolvedEquationIDs []uint32
	SolvedVariableIDs []uint32
	Dense             *gf2.Dense
}

// constructDenseSystem builds the dense (deduplicated) equation set from
// sparse, along with variable weight (number of equations referencing a
// variable) and equation priority (number of idle, i.e. all, variables
// currently in that equation — shrinks as variables go active or solved).
func constructDenseSystem(sparse *gf2.Sparse, equationIDs []uint32) (
	varToEquations map[uint32][]uint32,
	equationPriority []uint32,
	variableWeight []uint32,
	dense *gf2.Dense,
) {
	numEquations := sparse.NumEquations()
	numVariables := sparse.SolutionSize()

	variableWeight = make([]uint32, numVariables)
	equationPriority = make([]uint32, numEquations)
	dense = gf2.NewDense(numVariables)
	varToEquations = make(map[uint32][]uint32)

	for _, eqID := range equationIDs {
		vars, constant := sparse.Equation(eqID)
		deduped := gf2.DedupeParity(vars)
		dense.AddEquation(eqID, deduped, constant)
		for _, v := range deduped {
			variableWeight[v]++
			equationPriority[eqID]++
			varToEquations[v] = append(varToEquations[v], eqID)
		}
	}

	return varToEquations, equationPriority, variableWeight, dense
}

// countsortVariableIds sorts variable ids in ascending weight order in
// O(numVariables + numEquations) time via counting sort, since weight is
// bounded by the number of equations.
func countsortVariableIds(variableWeight []uint32, numVariables, numEquations uint32) []uint32 {
	sorted := make([]uint32, numVariables)
	for i := range sorted {
		sorted[i] = uint32(i)
	}
	counts := make([]uint32, numEquations+1)
	for v := uint32(0); v < numVariables; v++ {
		counts[variableWeight[v]]++
	}
	cumulated := uint32(0)
	for i := range counts {
		cumulated += counts[i]
		counts[i] = cumulated
	}
	for v := int64(numVariables) - 1; v >= 0; v-- {
		countIdx := variableWeight[v]
		counts[countIdx]--
		sorted[counts[countIdx]] = uint32(v)
	}
	return sorted
}

// Run performs lazy Gaussian elimination over equationIDs within sparse.
func Run(sparse *gf2.Sparse, equationIDs []uint32) (Result, error) {
	numEquations := uint32(sparse.NumEquations())
	numVariables := sparse.SolutionSize()

	varToEquations, equationPriority, variableWeight, dense := constructDenseSystem(sparse, equationIDs)

	// Equations with priority 0 or 1 are ready to resolve immediately.
	var sparseEquationIDs []uint32
	for _, id := range equationIDs {
		if equationPriority[id] <= 1 {
			sparseEquationIDs = append(sparseEquationIDs, id)
		}
	}

	var denseEquationIDs, solvedEquationIDs, solvedVariableIDs []uint32

	idleVariables := bitarray.New(numVariables)
	idleVariables.SetAll()

	sortedVariableIDs := countsortVariableIds(variableWeight, numVariables, numEquations)

	numRemainingEquations := len(equationIDs)

	for numRemainingEquations > 0 {
		if len(sparseEquationIDs) == 0 {
			// No priority-0/1 equation is available: activate the
			// lowest-weight remaining idle variable and re-check.
			var variableID uint32
			for {
				variableID = sortedVariableIDs[0]
				sortedVariableIDs = sortedVariableIDs[1:]
				if variableWeight[variableID] != 0 {
					break
				}
			}
			idleVariables.Clear(variableID)

			for _, eqID := range varToEquations[variableID] {
				equationPriority[eqID]--
				if equationPriority[eqID] == 1 {
					sparseEquationIDs = append(sparseEquationIDs, eqID)
				}
			}
			continue
		}

		numRemainingEquations--
		equationID := sparseEquationIDs[len(sparseEquationIDs)-1]
		sparseEquationIDs = sparseEquationIDs[:len(sparseEquationIDs)-1]

		switch equationPriority[equationID] {
		case 0:
			row, constant := dense.Equation(equationID)
			if row.Any() {
				denseEquationIDs = append(denseEquationIDs, equationID)
			} else if constant != 0 {
				return Result{}, &ErrUnsolvable{EquationID: equationID}
			}
			// Else: identity equation, safely dropped.
		case 1:
			row, _ := dense.Equation(equationID)
			masked := bitarray.New(numVariables)
			masked.XorAssign(row)
			masked.AndAssign(idleVariables)
			variableID, ok := masked.FindFirstSet()
			if !ok {
				return Result{}, fmt.Errorf("equation %d has priority 1 but no idle variable", equationID)
			}

			solvedVariableIDs = append(solvedVariableIDs, variableID)
			solvedEquationIDs = append(solvedEquationIDs, equationID)
			variableWeight[variableID] = 0

			for _, otherID := range varToEquations[variableID] {
				if otherID == equationID {
					continue
				}
				equationPriority[otherID]--
				if equationPriority[otherID] == 1 {
					sparseEquationIDs = append(sparseEquationIDs, otherID)
				}
				dense.XorEquations(otherID, equationID)
			}
		}
	}

	return Result{
		DenseEquationIDs:  denseEquationIDs,
		SolvedEquationIDs: solvedEquationIDs,
		SolvedVariableIDs: solvedVariableIDs,
		Dense:             dense,
	}, nil
}
