package csf

import (
	"fmt"

	"github.com/rpcpool/csf/internal/valuecodec"
	"github.com/rpcpool/csf/internal/wire"
)

// Save serializes m into the binary layout of spec.md §6: a multiset-
// tagged type_id, the column count, then one CSF payload per column
// (buckets, Huffman table, hash-store seed, optional filter blob,
// most-common value), in column order.
func (m *MultisetCSF[T]) Save() ([]byte, error) {
	if len(m.columns) == 0 {
		return nil, fmt.Errorf("csf: cannot save a MultisetCSF with no columns")
	}
	codec := m.columns[0].codec

	w := wire.NewWriter()
	if err := w.WriteU32(uint32(codec.TypeID().Multiset())); err != nil {
		w.Release()
		return nil, err
	}
	if err := w.WriteU32(uint32(len(m.columns))); err != nil {
		w.Release()
		return nil, err
	}
	for _, col := range m.columns {
		if err := writeCSFPayload(w, col); err != nil {
			w.Release()
			return nil, err
		}
	}

	out := append([]byte(nil), w.Bytes()...)
	w.Release()
	return out, nil
}

// LoadMultiset deserializes a MultisetCSF previously produced by Save.
// codec must match the value type the artifact was built with; a
// mismatched or non-multiset type_id is reported as a
// DeserializationError.
func LoadMultiset[T comparable](data []byte, codec valuecodec.Codec[T]) (*MultisetCSF[T], error) {
	r := wire.NewReader(data)

	typeID, err := r.ReadU32()
	if err != nil {
		return nil, &DeserializationError{Err: err}
	}
	tid := valuecodec.TypeID(typeID)
	if !tid.IsMultiset() {
		return nil, &DeserializationError{Err: fmt.Errorf("csf: on-disk type_id %d is not a multiset artifact", typeID)}
	}
	if tid.Base() != codec.TypeID() {
		return nil, &DeserializationError{Err: fmt.Errorf("csf: on-disk value type_id %d does not match requested codec type_id %d", tid.Base(), codec.TypeID())}
	}

	numColumns, err := r.ReadU32()
	if err != nil {
		return nil, &DeserializationError{Err: err}
	}

	columns := make([]*CSF[T], numColumns)
	for i := range columns {
		col, err := readCSFPayload(r, codec)
		if err != nil {
			return nil, &DeserializationError{Err: err}
		}
		columns[i] = col
	}

	return &MultisetCSF[T]{columns: columns}, nil
}
