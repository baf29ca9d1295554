// Package huffman implements canonical minimum-redundancy (Huffman) coding
// over an arbitrary comparable symbol type, following the in-place
// Moffat-Katajainen length algorithm and canonical code assignment of
// spec.md §4.3.
package huffman

import (
	"fmt"
	"sort"
)

// MaxCodeLength is the hard cap on codeword length required by the query
// fast path (spec.md §4.3).
const MaxCodeLength = 64

// Table is a canonical Huffman code table: (code_length_counts,
// ordered_symbols, max_code_length). Decoding uses only these two arrays,
// per spec.md §3.
type Table[T comparable] struct {
	// CodeLengthCounts[l] is the number of codewords of length l.
	// CodeLengthCounts[0] is always 0.
	CodeLengthCounts []uint32
	// OrderedSymbols lists symbols in canonical code order (increasing
	// length, ties broken by symbol order via the caller-supplied Less).
	OrderedSymbols []T
	MaxCodeLength  uint32
}

// Code is a single codeword: its bit pattern, right-aligned in an integer,
// and its length in bits.
type Code struct {
	Bits   uint64
	Length uint32
}

type symbolFreq[T comparable] struct {
	symbol T
	freq   uint32
}

// Build computes the canonical Huffman table for the given symbol
// multiset, plus a lookup from symbol to codeword. less must impose a
// total order on T to break ties deterministically between equal
// frequencies, matching the order the decoder will reconstruct.
func Build[T comparable](symbols []T, less func(a, b T) bool) (*Table[T], map[T]Code, error) {
	if len(symbols) == 0 {
		return nil, nil, fmt.Errorf("huffman: empty symbol set")
	}

	freqs := make(map[T]uint32, len(symbols))
	for _, s := range symbols {
		freqs[s]++
	}

	pairs := make([]symbolFreq[T], 0, len(freqs))
	for s, f := range freqs {
		pairs = append(pairs, symbolFreq[T]{symbol: s, freq: f})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].freq != pairs[j].freq {
			return pairs[i].freq < pairs[j].freq
		}
		return less(pairs[i].symbol, pairs[j].symbol)
	})

	lengths := make([]uint32, len(pairs))
	for i, p := range pairs {
		lengths[i] = p.freq
	}
	minRedundancyLengths(lengths)

	// Single-symbol alphabets: force length 1, not the algorithm's 0, so
	// invariant 5 (decode(encode(s)) == s) holds for a one-bit code.
	if len(lengths) == 1 {
		lengths[0] = 1
	}

	for _, l := range lengths {
		if l > MaxCodeLength {
			return nil, nil, fmt.Errorf("huffman: code length %d exceeds max %d", l, MaxCodeLength)
		}
	}

	// pairs is sorted by ascending frequency, so lengths is non-increasing.
	// Canonical codes are assigned in non-decreasing length order, ties
	// broken by symbol order, so walk the pairs in that order instead.
	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		if lengths[order[x]] != lengths[order[y]] {
			return lengths[order[x]] < lengths[order[y]]
		}
		return less(pairs[order[x]].symbol, pairs[order[y]].symbol)
	})

	codeLengthCounts := make([]uint32, lengths[order[len(order)-1]]+1)
	var code uint64
	codeDict := make(map[T]Code, len(pairs))
	orderedSymbols := make([]T, len(pairs))
	for k, i := range order {
		p := pairs[i]
		length := lengths[i]
		codeDict[p.symbol] = Code{Bits: code, Length: length}
		codeLengthCounts[length]++
		orderedSymbols[k] = p.symbol
		if k+1 < len(order) {
			code++
			code <<= lengths[order[k+1]] - length
		}
	}

	table := &Table[T]{
		CodeLengthCounts: codeLengthCounts,
		OrderedSymbols:   orderedSymbols,
		MaxCodeLength:    uint32(len(codeLengthCounts) - 1),
	}
	return table, codeDict, nil
}

// minRedundancyLengths computes minimum-redundancy codeword lengths
// in-place, given frequencies sorted in non-decreasing order. This is the
// classic three-pass Moffat-Katajainen algorithm (spec.md §4.3).
func minRedundancyLengths(a []uint32) {
	n := len(a)
	if n == 0 {
		return
	}
	if n == 1 {
		a[0] = 0 // corrected to 1 by the caller for single-symbol alphabets
		return
	}

	// First pass, left to right: set parent pointers.
	a[0] += a[1]
	root := 0
	leaf := 2
	var next int
	for next = 1; next < n-1; next++ {
		if leaf >= n || a[root] < a[leaf] {
			a[next] = a[root]
			a[root] = uint32(next)
			root++
		} else {
			a[next] = a[leaf]
			leaf++
		}

		if leaf >= n || (root < next && a[root] < a[leaf]) {
			a[next] += a[root]
			a[root] = uint32(next)
			root++
		} else {
			a[next] += a[leaf]
			leaf++
		}
	}

	// Second pass, right to left: convert parent pointers to internal depths.
	a[n-2] = 0
	for next = n - 3; next >= 0; next-- {
		a[next] = a[a[next]] + 1
	}

	// Third pass, right to left: fill leaf depths by descending depth counts.
	avbl := 1
	used := 0
	depth := uint32(0)
	root = n - 2
	next = n - 1
	for avbl > 0 {
		for root >= 0 && a[root] == depth {
			used++
			root--
		}
		for avbl > used {
			a[next] = depth
			next--
			avbl--
		}
		avbl = 2 * used
		depth++
		used = 0
	}
}

// Decode walks the canonical table bit-by-bit using nextBit to produce one
// symbol, per spec.md §4.3.
func Decode[T comparable](table *Table[T], nextBit func() uint32) (T, error) {
	var code, first, index int
	for l := uint32(1); l < uint32(len(table.CodeLengthCounts)); l++ {
		code |= int(nextBit())
		count := int(table.CodeLengthCounts[l])
		if code-count < first {
			return table.OrderedSymbols[index+(code-first)], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	var zero T
	return zero, fmt.Errorf("huffman: invalid code")
}

// DecodeFromInt decodes a right-aligned integer of length table.MaxCodeLength
// bits, per spec.md §4.3.
func DecodeFromInt[T comparable](table *Table[T], encoded uint64) (T, error) {
	maxLen := table.MaxCodeLength
	i := uint32(0)
	return Decode(table, func() uint32 {
		i++
		return uint32((encoded >> (maxLen - i)) & 1)
	})
}
