package filter

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/rpcpool/csf/internal/xhash"
)

// ErrFilterConstructionFailed is returned when a peel-based filter fails
// to find a valid assignment within its reseed budget.
var ErrFilterConstructionFailed = errors.New("filter: construction did not converge within reseed budget")

const xorMaxReseeds = 10

// XOR is a 3-wise XOR filter (spec.md §4.11): every inserted key's
// b-bit fingerprint equals the XOR of the three bit-packed fingerprint
// slots its three hash positions land on.
type XOR struct {
	fingerprints *fingerprintStore
	size         uint32 // number of keys inserted
	blockLength  uint32
	seed         uint64
}

// xorPositions reduces the low 32 bits of h and of its 21- and 42-bit
// rotations into each block by multiply-high, so the three positions come
// from different bit windows of h.
func xorPositions(h uint64, blockLength uint32) [3]uint32 {
	reduce := func(x uint64) uint32 {
		return uint32((uint64(uint32(x)) * uint64(blockLength)) >> 32)
	}
	return [3]uint32{
		reduce(h),
		blockLength + reduce(bits.RotateLeft64(h, 21)),
		2*blockLength + reduce(bits.RotateLeft64(h, 42)),
	}
}

func xorFingerprint(h uint64, width uint32) uint64 {
	mask := uint64(1)<<width - 1
	return (h >> 32) & mask
}

// BuildXOR constructs a 3-wise XOR filter over keys with fingerprintBits
// bits per slot (spec.md: arrayLength = 32 + floor(1.23*n), 3 equal
// blocks; construction retries with hash seeds 0..9).
func BuildXOR(keys [][]byte, fingerprintBits uint32) (*XOR, error) {
	n := uint32(len(keys))
	arrayLength := uint32(32 + (123*uint64(n))/100)
	blockLength := (arrayLength + 2) / 3
	arrayLength = blockLength * 3

	for seed := uint64(0); seed < xorMaxReseeds; seed++ {
		hashes := make([]uint64, n)
		for i, k := range keys {
			hashes[i] = xhash.Keyed64(k, seed)
		}

		order, ok := peelXor(hashes, blockLength)
		if !ok {
			continue
		}

		store := newFingerprintStore(arrayLength, fingerprintBits)
		for i := len(order) - 1; i >= 0; i-- {
			keyIdx, pos := order[i].keyIndex, order[i].position
			positions := xorPositions(hashes[keyIdx], blockLength)
			var xorOther uint64
			for _, p := range positions {
				if p != pos {
					xorOther ^= store.get(p)
				}
			}
			store.set(pos, xorFingerprint(hashes[keyIdx], fingerprintBits)^xorOther)
		}

		return &XOR{fingerprints: store, size: n, blockLength: blockLength, seed: seed}, nil
	}

	return nil, ErrFilterConstructionFailed
}

type peelStep struct {
	keyIndex uint32
	position uint32
}

// peelXor runs the count-and-XOR peeling algorithm: repeatedly finds a
// position touched by exactly one remaining key and removes that key from
// its other two positions, recording the (key, position) pair so
// fingerprints can be back-assigned in reverse order.
func peelXor(hashes []uint64, blockLength uint32) ([]peelStep, bool) {
	arrayLength := blockLength * 3
	count := make([]uint32, arrayLength)
	xorKeyIdx := make([]uint32, arrayLength)

	for i, h := range hashes {
		for _, p := range xorPositions(h, blockLength) {
			count[p]++
			xorKeyIdx[p] ^= uint32(i)
		}
	}

	var queue []uint32
	for p := uint32(0); p < arrayLength; p++ {
		if count[p] == 1 {
			queue = append(queue, p)
		}
	}

	order := make([]peelStep, 0, len(hashes))
	processed := 0
	for processed < len(queue) {
		pos := queue[processed]
		processed++
		if count[pos] != 1 {
			continue
		}
		keyIdx := xorKeyIdx[pos]
		order = append(order, peelStep{keyIndex: keyIdx, position: pos})

		for _, p := range xorPositions(hashes[keyIdx], blockLength) {
			count[p]--
			xorKeyIdx[p] ^= keyIdx
			if count[p] == 1 {
				queue = append(queue, p)
			}
		}
	}

	return order, len(order) == len(hashes)
}

// Contains reports whether key may have been added.
func (x *XOR) Contains(key []byte) bool {
	h := xhash.Keyed64(key, x.seed)
	positions := xorPositions(h, x.blockLength)
	var xorred uint64
	for _, p := range positions {
		xorred ^= x.fingerprints.get(p)
	}
	return xorred == xorFingerprint(h, x.fingerprints.width)
}

// MarshalBinary encodes the filter per spec.md §6's XOR filter blob
// (size, arrayLength, blockLength, bits_per_fingerprint, num_words,
// fingerprint words, hash_index).
func (x *XOR) MarshalBinary() []byte {
	arrayLength := x.fingerprints.n
	numWords := x.fingerprints.numWords()
	words := x.fingerprints.marshalWords()

	out := make([]byte, 8+8+8+1+8+len(words)+8)
	i := 0
	putU64(out[i:], uint64(x.size))
	i += 8
	putU64(out[i:], uint64(arrayLength))
	i += 8
	putU64(out[i:], uint64(x.blockLength))
	i += 8
	out[i] = byte(x.fingerprints.width)
	i++
	putU64(out[i:], numWords)
	i += 8
	copy(out[i:], words)
	i += len(words)
	putU64(out[i:], x.seed)
	return out
}

// UnmarshalXOR decodes a filter blob previously produced by MarshalBinary,
// returning the filter and the number of bytes consumed.
func UnmarshalXOR(data []byte) (*XOR, int, error) {
	if len(data) < 8+8+8+1+8 {
		return nil, 0, fmt.Errorf("filter: short buffer for XOR filter header")
	}
	i := 0
	size := uint32(getU64(data[i:]))
	i += 8
	arrayLength := uint32(getU64(data[i:]))
	i += 8
	blockLength := uint32(getU64(data[i:]))
	i += 8
	width := uint32(data[i])
	i++
	numWords := getU64(data[i:])
	i += 8

	store, err := unmarshalFingerprintStore(arrayLength, width, numWords, data[i:])
	if err != nil {
		return nil, 0, err
	}
	i += int(8 * numWords)

	if len(data) < i+8 {
		return nil, 0, fmt.Errorf("filter: short buffer for XOR filter seed")
	}
	seed := getU64(data[i:])
	i += 8

	return &XOR{fingerprints: store, size: size, blockLength: blockLength, seed: seed}, i, nil
}
