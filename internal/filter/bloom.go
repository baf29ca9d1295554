package filter

import (
	"math"

	"github.com/rpcpool/csf/internal/bitarray"
	"github.com/rpcpool/csf/internal/xhash"
)

// Bloom is a classic counting-free Bloom filter: numHashes keyed hashes,
// each reduced mod the bit array size (spec.md §4.11).
type Bloom struct {
	bits      *bitarray.BitArray
	numHashes uint32
}

// AutotunedBloom sizes a Bloom filter for numElements items at the given
// target false-positive rate, per spec.md §4.11:
// size = ceil((log2 e)^2 * log2(1/errorRate) * n), k = round((size/n) * ln 2).
func AutotunedBloom(numElements int, errorRate float64) *Bloom {
	log2e := math.Log2(math.E)
	size := uint32(math.Ceil(log2e * log2e * math.Log2(1/errorRate) * float64(numElements)))
	if size == 0 {
		size = 1
	}
	optimalHashes := (float64(size) * math.Ln2) / float64(numElements)
	return &Bloom{
		bits:      bitarray.New(size),
		numHashes: uint32(math.Round(optimalHashes)),
	}
}

// AutotunedFixedKBloom sizes a Bloom filter the same way as AutotunedBloom
// but pins the number of hashes instead of deriving it.
func AutotunedFixedKBloom(numElements int, errorRate float64, numHashes uint32) *Bloom {
	log2e := math.Log2(math.E)
	size := uint32(math.Ceil(log2e * log2e * math.Log2(1/errorRate) * float64(numElements)))
	if size == 0 {
		size = 1
	}
	return &Bloom{
		bits:      bitarray.New(size),
		numHashes: numHashes,
	}
}

// FixedBloom builds a Bloom filter with an exact bit array size and hash
// count, bypassing any autotuning.
func FixedBloom(bitArraySize uint32, numHashes uint32) *Bloom {
	return &Bloom{
		bits:      bitarray.New(bitArraySize),
		numHashes: numHashes,
	}
}

func (b *Bloom) hashPositions(key []byte) []uint32 {
	positions := make([]uint32, b.numHashes)
	size := uint64(b.bits.Len())
	for i := uint32(0); i < b.numHashes; i++ {
		h := xhash.Keyed64(key, uint64(i))
		positions[i] = uint32(h % size)
	}
	return positions
}

// Add sets key's bits.
func (b *Bloom) Add(key []byte) {
	for _, pos := range b.hashPositions(key) {
		b.bits.Set(pos)
	}
}

// Contains reports whether key may have been added (false means
// definitely not; true means maybe).
func (b *Bloom) Contains(key []byte) bool {
	for _, pos := range b.hashPositions(key) {
		if b.bits.Get(pos) == 0 {
			return false
		}
	}
	return true
}

// Size returns the bit array size.
func (b *Bloom) Size() uint32 { return b.bits.Len() }

// NumHashes returns the number of hash functions used per key.
func (b *Bloom) NumHashes() uint32 { return b.numHashes }

// MarshalBinary encodes the filter as u64 num_bits, raw bit array bytes,
// u64 num_hashes (spec.md §6).
func (b *Bloom) MarshalBinary() []byte {
	data := b.bits.MarshalBinary()
	out := make([]byte, 8+len(data)+8)
	putU64(out[0:8], uint64(b.bits.Len()))
	copy(out[8:8+len(data)], data)
	putU64(out[8+len(data):], uint64(b.numHashes))
	return out
}

// UnmarshalBloom decodes a Bloom filter previously produced by
// MarshalBinary, returning the filter and the number of bytes consumed.
func UnmarshalBloom(data []byte) (*Bloom, int, error) {
	numBits := uint32(getU64(data[0:8]))
	rawLen := int((numBits + 7) / 8)
	bits, err := bitarray.Unmarshal(numBits, data[8:8+rawLen])
	if err != nil {
		return nil, 0, err
	}
	numHashes := uint32(getU64(data[8+rawLen : 8+rawLen+8]))
	consumed := 8 + rawLen + 8
	return &Bloom{bits: bits, numHashes: numHashes}, consumed, nil
}
