package csf

import (
	"fmt"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/filter"
	"github.com/rpcpool/csf/internal/huffman"
	"github.com/rpcpool/csf/internal/valuecodec"
	"github.com/rpcpool/csf/internal/wire"
)

// Save serializes c into the binary layout of spec.md §6: type_id, then
// the CSF payload (buckets, Huffman table, hash-store seed, optional
// filter blob, most-common value).
func (c *CSF[T]) Save() ([]byte, error) {
	w := wire.NewWriter()

	if err := w.WriteU32(uint32(c.codec.TypeID())); err != nil {
		w.Release()
		return nil, err
	}
	if err := writeCSFPayload(w, c); err != nil {
		w.Release()
		return nil, err
	}

	out := append([]byte(nil), w.Bytes()...)
	w.Release()
	return out, nil
}

// writeCSFPayload writes everything after the type_id header: buckets,
// Huffman table, hash-store seed, optional filter blob, most-common
// value. Shared with MultisetCSF.Save, which writes one payload per
// column under a single multiset-tagged header.
func writeCSFPayload[T comparable](w *wire.Writer, c *CSF[T]) error {
	if err := writeBuckets(w, c.buckets); err != nil {
		return err
	}
	if err := writeHuffmanTable(w, c.huffman, c.codec); err != nil {
		return err
	}
	if err := w.WriteU64(c.hashStoreSeed); err != nil {
		return err
	}
	if err := writeFilter(w, c.hasFilter, c.filterMembership); err != nil {
		return err
	}
	if !c.hasFilter {
		return nil
	}
	return w.WriteRaw(c.codec.Encode(c.mostCommonValue))
}

// Load deserializes a CSF previously produced by Save. codec must match
// the value type the artifact was built with; a mismatched type_id is
// reported as a DeserializationError.
func Load[T comparable](data []byte, codec valuecodec.Codec[T]) (*CSF[T], error) {
	r := wire.NewReader(data)

	typeID, err := r.ReadU32()
	if err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if valuecodec.TypeID(typeID) != codec.TypeID() {
		return nil, &DeserializationError{Err: fmt.Errorf("csf: on-disk type_id %d does not match requested codec type_id %d", typeID, codec.TypeID())}
	}

	c, err := readCSFPayload(r, codec)
	if err != nil {
		return nil, &DeserializationError{Err: err}
	}
	return c, nil
}

func readCSFPayload[T comparable](r *wire.Reader, codec valuecodec.Codec[T]) (*CSF[T], error) {
	buckets, err := readBuckets(r)
	if err != nil {
		return nil, err
	}

	table, err := readHuffmanTable(r, codec)
	if err != nil {
		return nil, err
	}

	hashStoreSeed, err := r.ReadU64()
	if err != nil {
		return nil, err
	}

	hasFilter, membership, err := readFilter(r)
	if err != nil {
		return nil, err
	}

	var mostCommon T
	if hasFilter {
		var n int
		mostCommon, n, err = codec.Decode(r.Remaining())
		if err != nil {
			return nil, err
		}
		if _, err := r.ReadRaw(n); err != nil {
			return nil, err
		}
	}

	return &CSF[T]{
		buckets:          buckets,
		huffman:          table,
		hashStoreSeed:    hashStoreSeed,
		codec:            codec,
		hasFilter:        hasFilter,
		mostCommonValue:  mostCommon,
		filterMembership: membership,
	}, nil
}

func writeBuckets(w *wire.Writer, buckets []bucketSolution) error {
	if err := w.WriteU32(uint32(len(buckets))); err != nil {
		return err
	}
	for _, b := range buckets {
		if err := w.WriteU32(b.solution.Len()); err != nil {
			return err
		}
		if err := w.WriteRaw(b.solution.MarshalBinary()); err != nil {
			return err
		}
		if err := w.WriteU64(b.bucketSeed); err != nil {
			return err
		}
	}
	return nil
}

func readBuckets(r *wire.Reader) ([]bucketSolution, error) {
	numBuckets, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	buckets := make([]bucketSolution, numBuckets)
	for i := range buckets {
		numBits, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadRaw(int((numBits + 7) / 8))
		if err != nil {
			return nil, err
		}
		solution, err := bitarray.Unmarshal(numBits, raw)
		if err != nil {
			return nil, err
		}
		bucketSeed, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		buckets[i] = bucketSolution{solution: solution, bucketSeed: bucketSeed}
	}
	return buckets, nil
}

func writeHuffmanTable[T comparable](w *wire.Writer, table *huffman.Table[T], codec valuecodec.Codec[T]) error {
	if err := w.WriteU32(uint32(len(table.CodeLengthCounts))); err != nil {
		return err
	}
	for _, c := range table.CodeLengthCounts {
		if err := w.WriteU32(c); err != nil {
			return err
		}
	}
	if err := w.WriteU32(uint32(len(table.OrderedSymbols))); err != nil {
		return err
	}
	for _, s := range table.OrderedSymbols {
		if err := w.WriteRaw(codec.Encode(s)); err != nil {
			return err
		}
	}
	return nil
}

func readHuffmanTable[T comparable](r *wire.Reader, codec valuecodec.Codec[T]) (*huffman.Table[T], error) {
	nLengths, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	codeLengthCounts := make([]uint32, nLengths)
	for i := range codeLengthCounts {
		v, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		codeLengthCounts[i] = v
	}

	nSymbols, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	orderedSymbols := make([]T, nSymbols)
	for i := range orderedSymbols {
		s, n, err := codec.Decode(r.Remaining())
		if err != nil {
			return nil, err
		}
		if _, err := r.ReadRaw(n); err != nil {
			return nil, err
		}
		orderedSymbols[i] = s
	}

	var maxCodeLength uint32
	if nLengths > 0 {
		maxCodeLength = nLengths - 1
	}

	return &huffman.Table[T]{
		CodeLengthCounts: codeLengthCounts,
		OrderedSymbols:   orderedSymbols,
		MaxCodeLength:    maxCodeLength,
	}, nil
}

func writeFilter(w *wire.Writer, hasFilter bool, membership filter.Membership) error {
	if !hasFilter {
		return w.WriteU8(0)
	}
	if err := w.WriteU8(1); err != nil {
		return err
	}
	blob, err := filter.Marshal(membership)
	if err != nil {
		return err
	}
	return w.WriteRaw(blob)
}

func readFilter(r *wire.Reader) (bool, filter.Membership, error) {
	hasFilter, err := r.ReadU8()
	if err != nil {
		return false, nil, err
	}
	if hasFilter == 0 {
		return false, nil, nil
	}
	membership, consumed, err := filter.Unmarshal(r.Remaining())
	if err != nil {
		return false, nil, err
	}
	if _, err := r.ReadRaw(consumed); err != nil {
		return false, nil, err
	}
	return true, membership, nil
}
