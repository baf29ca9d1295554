package csf

import (
	"fmt"
	"math"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/densege"
	"github.com/rpcpool/csf/internal/gf2"
	"github.com/rpcpool/csf/internal/huffman"
	"github.com/rpcpool/csf/internal/lazyge"
	"github.com/rpcpool/csf/internal/peel"
	"github.com/rpcpool/csf/internal/xhash"
)

// maxBucketSeedRetries bounds the bucket_seed retry loop on Unsolvable
// (spec.md §4.5 "Retry policy").
const maxBucketSeedRetries = 10

// solutionDensity is δ in V = ceil(δ·E) (spec.md §4.5).
const solutionDensity = 1.10

// bucketSolution is the solved GF(2) system for one bucket, plus the
// bucket_seed that produced it.
type bucketSolution struct {
	solution   *bitarray.BitArray
	bucketSeed uint64
}

// solveBucket builds the sparse GF(2) system for a bucket's (signature,
// code) pairs and runs it through peel -> lazy GE -> dense GE, retrying
// with a new bucket_seed on Unsolvable up to maxBucketSeedRetries times.
func solveBucket[T comparable](bucketID int, signatures []xhash.Signature, codes []huffman.Code, maxCodeLength uint32) (bucketSolution, error) {
	totalBits := 0
	for _, c := range codes {
		totalBits += int(c.Length)
	}
	numVariables := uint32(math.Ceil(float64(totalBits) * solutionDensity))
	// Three distinct start positions need at least three variables, and a
	// very small bucket needs spare ones to be solvable at all (two one-bit
	// keys in V = 3 share all three positions), so V is at least
	// totalBits + 3. Buckets of 30 or more bits are unaffected.
	if minVariables := uint32(totalBits) + 3; numVariables < minVariables {
		numVariables = minVariables
	}

	for attempt := 0; attempt < maxBucketSeedRetries; attempt++ {
		bucketSeed := uint64(attempt)
		sparse := buildSparseSystem(signatures, codes, bucketSeed, numVariables)

		solution, err := solveSparseSystem(sparse)
		if err == nil {
			return bucketSolution{solution: solution, bucketSeed: bucketSeed}, nil
		}
	}

	return bucketSolution{}, &UnsolvableBucketError{BucketID: bucketID, Attempts: maxBucketSeedRetries}
}

// buildSparseSystem lays out one equation per (key, bit offset) pair per
// spec.md §4.5: participating variables are (p_a+j, p_b+j, p_c+j) mod V
// for the key's three start positions, constant is bit j of its code.
func buildSparseSystem(signatures []xhash.Signature, codes []huffman.Code, bucketSeed uint64, numVariables uint32) *gf2.Sparse {
	sparse := gf2.NewSparse(numVariables)
	for i, sig := range signatures {
		pa, pb, pc := xhash.ThreeStartPositions(sig, bucketSeed, numVariables)
		code := codes[i]
		for j := uint32(0); j < code.Length; j++ {
			variables := []uint32{
				(pa + j) % numVariables,
				(pb + j) % numVariables,
				(pc + j) % numVariables,
			}
			constant := uint32((code.Bits >> (code.Length - 1 - j)) & 1)
			// pa, pb, pc are pairwise distinct and shifted by the same j,
			// so they stay pairwise distinct here; no dedup needed yet.
			sparse.AddEquation(variables, constant)
		}
	}
	return sparse
}

// solveSparseSystem runs the three-stage solver and reassembles a single
// solution BitArray satisfying every equation (spec.md §4.6-§4.8).
func solveSparseSystem(sparse *gf2.Sparse) (*bitarray.BitArray, error) {
	numEquations := sparse.NumEquations()
	equationIDs := make([]uint32, numEquations)
	for i := range equationIDs {
		equationIDs[i] = uint32(i)
	}

	peeled := peel.Peel(sparse, equationIDs)

	lazy, err := lazyge.Run(sparse, peeled.UnpeeledEquationIDs)
	if err != nil {
		return nil, fmt.Errorf("lazy gaussian elimination: %w", err)
	}

	solution, err := densege.Run(lazy.Dense, lazy.DenseEquationIDs)
	if err != nil {
		return nil, fmt.Errorf("dense gaussian elimination: %w", err)
	}

	// Fold lazy-GE solved rows back in, last-solved-first.
	for i := len(lazy.SolvedEquationIDs) - 1; i >= 0; i-- {
		eqID := lazy.SolvedEquationIDs[i]
		v := lazy.SolvedVariableIDs[i]
		row, constant := lazy.Dense.Equation(eqID)
		if constant^bitarray.ScalarProduct(row, solution) == 1 {
			solution.Set(v)
		}
	}

	// Fold the peeler's output back in; Peel already returns its order
	// last-peeled-first, so iterate forward.
	for i, eqID := range peeled.EquationOrder {
		v := peeled.VariableOrder[i]
		vars, constant := sparse.Equation(eqID)
		row := bitarray.New(sparse.SolutionSize())
		for _, vv := range vars {
			row.Set(vv)
		}
		if constant^bitarray.ScalarProduct(row, solution) == 1 {
			solution.Set(v)
		}
	}

	return solution, nil
}

// extractCode reads the encoded L-bit integer for signature sig from a
// bucket's solution: XOR of three circularly-wrapped L-bit windows
// starting at the three start positions (spec.md §4.10 step 5).
func extractCode(solution *bitarray.BitArray, sig xhash.Signature, bucketSeed uint64, maxCodeLength uint32) uint64 {
	v := solution.Len()
	pa, pb, pc := xhash.ThreeStartPositions(sig, bucketSeed, v)

	var out uint64
	for _, p := range []uint32{pa, pb, pc} {
		out ^= readCircularWindow(solution, p, maxCodeLength)
	}
	return out
}

// readCircularWindow extracts length bits starting at position start,
// most-significant bit first, wrapping around at v-1 back to index 0.
func readCircularWindow(b *bitarray.BitArray, start, length uint32) uint64 {
	v := b.Len()
	var out uint64
	for i := uint32(0); i < length; i++ {
		pos := (start + i) % v
		out = (out << 1) | uint64(b.Get(pos))
	}
	return out
}
