// Package gf2 implements the sparse and dense modulo-2 linear system
// representations used by the peeler and the two Gaussian-elimination
// stages (spec.md §4.5, §3 "Sparse GF(2) system", "Dense subsystem").
package gf2

import "github.com/rpcpool/csf/internal/bitarray"

// Sparse is a set of equations over GF(2). Each equation has a list of
// participating variable indices and a constant bit. Equations are indexed
// by a dense equation id [0, NumEquations).
type Sparse struct {
	solutionSize uint32
	variables    [][]uint32 // equation id -> participating variable ids (may contain dupes)
	constants    []uint32   // equation id -> constant bit
}

// NewSparse creates an empty sparse system over a solution space of the
// given size (the number of GF(2) variables).
func NewSparse(solutionSize uint32) *Sparse {
	return &Sparse{solutionSize: solutionSize}
}

// SolutionSize returns the number of variables (V in spec.md §4.5).
func (s *Sparse) SolutionSize() uint32 { return s.solutionSize }

// NumEquations returns the number of equations added so far.
func (s *Sparse) NumEquations() int { return len(s.variables) }

// AddEquation appends a new equation, returning its id.
func (s *Sparse) AddEquation(variables []uint32, constant uint32) uint32 {
	id := uint32(len(s.variables))
	s.variables = append(s.variables, variables)
	s.constants = append(s.constants, constant&1)
	return id
}

// Equation returns the participating variables and constant for an
// equation id.
func (s *Sparse) Equation(id uint32) ([]uint32, uint32) {
	return s.variables[id], s.constants[id]
}

// Dense is a set of equations, each a full-width BitArray over
// [0, solutionSize) plus a constant bit. Used for the lazy-GE dense
// subsystem and the final dense Gaussian elimination pass.
type Dense struct {
	solutionSize uint32
	equations    map[uint32]*bitarray.BitArray
	constants    map[uint32]uint32
}

// NewDense creates an empty dense system.
func NewDense(solutionSize uint32) *Dense {
	return &Dense{
		solutionSize: solutionSize,
		equations:    make(map[uint32]*bitarray.BitArray),
		constants:    make(map[uint32]uint32),
	}
}

func (d *Dense) SolutionSize() uint32 { return d.solutionSize }

// AddEquation installs equation id as a dense row from the given
// (deduplicated) variable list and constant.
func (d *Dense) AddEquation(id uint32, variables []uint32, constant uint32) {
	row := bitarray.New(d.solutionSize)
	for _, v := range variables {
		row.Set(v)
	}
	d.equations[id] = row
	d.constants[id] = constant & 1
}

// Equation returns the row and constant for equation id.
func (d *Dense) Equation(id uint32) (*bitarray.BitArray, uint32) {
	return d.equations[id], d.constants[id]
}

// Has reports whether equation id exists in the system.
func (d *Dense) Has(id uint32) bool {
	_, ok := d.equations[id]
	return ok
}

// IsIdentity reports whether equation id's row is all-zero (a trivial
// 0 = 0 row, safely skipped during back-substitution).
func (d *Dense) IsIdentity(id uint32) bool {
	row, _ := d.Equation(id)
	return !row.Any()
}

// IsUnsolvable reports whether equation id's row is all-zero but its
// constant is 1 (0 = 1, contradictory).
func (d *Dense) IsUnsolvable(id uint32) bool {
	row, c := d.Equation(id)
	return !row.Any() && c == 1
}

// FirstVar returns the least-index set variable in equation id's row, or
// (0, false) if the row is all-zero.
func (d *Dense) FirstVar(id uint32) (uint32, bool) {
	row, _ := d.Equation(id)
	return row.FindFirstSet()
}

// XorEquations XORs equation src into equation dst in place (both row and
// constant).
func (d *Dense) XorEquations(dst, src uint32) {
	dstRow, dstC := d.Equation(dst)
	srcRow, srcC := d.Equation(src)
	dstRow.XorAssign(srcRow)
	d.constants[dst] = dstC ^ srcC
}

// SwapEquations exchanges the rows (and constants) bound to ids a and b.
func (d *Dense) SwapEquations(a, b uint32) {
	d.equations[a], d.equations[b] = d.equations[b], d.equations[a]
	d.constants[a], d.constants[b] = d.constants[b], d.constants[a]
}

// DedupeParity reduces a (possibly repeating) variable list by parity: a
// variable appearing an even number of times is dropped, odd is kept once.
// Required because start positions can collide after the mod-V wraparound
// (spec.md §4.5).
func DedupeParity(variables []uint32) []uint32 {
	seen := make(map[uint32]bool, len(variables))
	for _, v := range variables {
		seen[v] = !seen[v]
	}
	out := make([]uint32, 0, len(seen))
	for v, present := range seen {
		if present {
			out = append(out, v)
		}
	}
	return out
}
