// Package filter implements the approximate-membership pre-filters used
// to absorb a majority value before Huffman/CSF construction (spec.md
// §4.11): Bloom, 3-wise XOR, and 4-wise Binary-Fuse, plus the bit-packed
// fingerprint store they share.
package filter

import "fmt"

// Membership is the common contract every pre-filter variant satisfies:
// Contains reports "maybe" (true) or "definitely not" (false).
type Membership interface {
	Contains(key []byte) bool
}

// Kind tags which filter variant (if any) an artifact carries.
type Kind uint8

const (
	KindNone Kind = iota
	KindBloom
	KindXOR
	KindBinaryFuse
)

// Config selects and parameterizes a pre-filter variant for construction
// (spec.md §4.9 step 2). A zero Config (Kind: KindNone) disables
// pre-filtering entirely.
type Config struct {
	Kind Kind

	// Bloom parameters. If FixedSize is nonzero, a fixed Bloom filter of
	// FixedSize bits and FixedHashes hashes is built (FixedBloom). Else, if
	// FixedHashes is nonzero, ErrorRate autotunes the size and the hash
	// count is pinned to FixedHashes (AutotunedFixedKBloom). Otherwise
	// ErrorRate drives both (AutotunedBloom).
	ErrorRate   float64
	FixedHashes uint32
	FixedSize   uint32

	// FingerprintBits sizes XOR/Binary-Fuse fingerprint slots (spec.md
	// §4.11: b in [1, 32]).
	FingerprintBits uint32
}

// Build constructs the filter described by c over keys. KindNone returns
// (nil, nil): construction should simply skip pre-filtering.
func (c Config) Build(keys [][]byte) (Membership, error) {
	switch c.Kind {
	case KindNone:
		return nil, nil
	case KindBloom:
		var bloom *Bloom
		switch {
		case c.FixedSize != 0:
			bloom = FixedBloom(c.FixedSize, c.FixedHashes)
		case c.FixedHashes != 0:
			bloom = AutotunedFixedKBloom(len(keys), c.ErrorRate, c.FixedHashes)
		default:
			bloom = AutotunedBloom(len(keys), c.ErrorRate)
		}
		for _, k := range keys {
			bloom.Add(k)
		}
		return bloom, nil
	case KindXOR:
		return BuildXOR(keys, c.FingerprintBits)
	case KindBinaryFuse:
		return BuildBinaryFuse(keys, c.FingerprintBits)
	default:
		return nil, nil
	}
}

// Blob tags (spec.md §6 filter blob leading byte).
const (
	blobTagBloom      = 0
	blobTagXOR        = 1
	blobTagBinaryFuse = 2
)

// Marshal encodes m as a tagged filter blob: a leading tag byte followed
// by the variant's own binary encoding.
func Marshal(m Membership) ([]byte, error) {
	switch f := m.(type) {
	case *Bloom:
		return append([]byte{blobTagBloom}, f.MarshalBinary()...), nil
	case *XOR:
		return append([]byte{blobTagXOR}, f.MarshalBinary()...), nil
	case *BinaryFuse:
		return append([]byte{blobTagBinaryFuse}, f.MarshalBinary()...), nil
	default:
		return nil, fmt.Errorf("filter: unknown membership implementation %T", m)
	}
}

// Unmarshal decodes a tagged filter blob previously produced by Marshal,
// returning the filter and the total number of bytes consumed (including
// the leading tag byte).
func Unmarshal(data []byte) (Membership, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("filter: empty filter blob")
	}
	switch data[0] {
	case blobTagBloom:
		m, n, err := UnmarshalBloom(data[1:])
		return m, n + 1, err
	case blobTagXOR:
		m, n, err := UnmarshalXOR(data[1:])
		return m, n + 1, err
	case blobTagBinaryFuse:
		m, n, err := UnmarshalBinaryFuse(data[1:])
		return m, n + 1, err
	default:
		return nil, 0, fmt.Errorf("filter: unknown filter blob tag %d", data[0])
	}
}
