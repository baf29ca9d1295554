// Package valuecodec implements the value-type dispatch boundary (spec.md
// §3 "Value", §9 "Polymorphism over value type"): the CSF pipeline is
// generic over any value type offering {hashable, equality, ordered,
// canonically encodable to bytes}, and this package supplies that
// capability set for the four value-type variants the spec names.
package valuecodec

import (
	"encoding/binary"
	"fmt"
)

// TypeID tags a value type (and, in the high bit, the single/multiset
// variant) for the persisted artifact header (spec.md §6).
type TypeID uint32

const (
	TypeUint32 TypeID = iota
	TypeUint64
	TypeFixedBytes
	TypeVarBytes

	multisetFlag TypeID = 1 << 16
)

// Multiset returns id tagged as a MultisetCSF variant.
func (id TypeID) Multiset() TypeID { return id | multisetFlag }

// IsMultiset reports whether id carries the multiset tag.
func (id TypeID) IsMultiset() bool { return id&multisetFlag != 0 }

// Base strips the multiset tag, returning the underlying value type id.
func (id TypeID) Base() TypeID { return id &^ multisetFlag }

// Codec is the capability set the construction and query pipelines need
// from a value type: ordering (for Huffman's frequency-tie-break sort)
// and canonical byte encoding (for the persisted symbol table).
type Codec[T comparable] interface {
	TypeID() TypeID
	Less(a, b T) bool
	Encode(v T) []byte
	// Decode consumes a value from the front of b, returning the decoded
	// value and the number of bytes consumed.
	Decode(b []byte) (T, int, error)
}

// Uint32 codes values as 4-byte little-endian integers.
type Uint32 struct{}

func (Uint32) TypeID() TypeID       { return TypeUint32 }
func (Uint32) Less(a, b uint32) bool { return a < b }
func (Uint32) Encode(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}
func (Uint32) Decode(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, fmt.Errorf("valuecodec: short buffer for uint32")
	}
	return binary.LittleEndian.Uint32(b), 4, nil
}

// Uint64 codes values as 8-byte little-endian integers.
type Uint64 struct{}

func (Uint64) TypeID() TypeID       { return TypeUint64 }
func (Uint64) Less(a, b uint64) bool { return a < b }
func (Uint64) Encode(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
func (Uint64) Decode(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, fmt.Errorf("valuecodec: short buffer for uint64")
	}
	return binary.LittleEndian.Uint64(b), 8, nil
}

// FixedBytes codes values as exactly Width raw bytes (spec.md's 10- or
// 12-byte value type). T is represented as a Go string since []byte
// isn't comparable and can't key a Huffman symbol map.
type FixedBytes struct {
	Width int
}

func (FixedBytes) TypeID() TypeID { return TypeFixedBytes }
func (FixedBytes) Less(a, b string) bool { return a < b }
func (f FixedBytes) Encode(v string) []byte {
	if len(v) != f.Width {
		panic(fmt.Sprintf("valuecodec: fixed-width value has length %d, want %d", len(v), f.Width))
	}
	return []byte(v)
}
func (f FixedBytes) Decode(b []byte) (string, int, error) {
	if len(b) < f.Width {
		return "", 0, fmt.Errorf("valuecodec: short buffer for fixed-width value")
	}
	return string(b[:f.Width]), f.Width, nil
}

// VarBytes codes values as a u32 length prefix followed by the raw
// bytes, for the variable-length byte string value type.
type VarBytes struct{}

func (VarBytes) TypeID() TypeID      { return TypeVarBytes }
func (VarBytes) Less(a, b string) bool { return a < b }
func (VarBytes) Encode(v string) []byte {
	buf := make([]byte, 4+len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	copy(buf[4:], v)
	return buf
}
func (VarBytes) Decode(b []byte) (string, int, error) {
	if len(b) < 4 {
		return "", 0, fmt.Errorf("valuecodec: short buffer for var-bytes length")
	}
	n := int(binary.LittleEndian.Uint32(b))
	if len(b) < 4+n {
		return "", 0, fmt.Errorf("valuecodec: short buffer for var-bytes payload")
	}
	return string(b[4 : 4+n]), 4 + n, nil
}
