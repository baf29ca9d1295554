package filter

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/rpcpool/csf/internal/xhash"
)

const binaryFuseArity = 4

// BinaryFuse is a 4-wise, segment-based filter (spec.md §4.11): a space
// improvement over the 3-wise XOR filter that spreads each key's four
// hash positions across four consecutive, overlapping segments instead
// of three independent blocks, giving a lower false-positive rate per
// bit at the cost of a slightly trickier construction.
type BinaryFuse struct {
	fingerprints      *fingerprintStore
	size              uint32 // number of keys inserted
	segmentLength     uint32
	segmentLengthMask uint32
	segmentCount      uint32
	seed              uint64
}

func binaryFuseSegmentLength(size uint32) uint32 {
	if size <= 1 {
		return 4
	}
	l := uint32(1) << uint(math.Floor(math.Log(float64(size))/math.Log(2.91)+0.5))
	if l > 262144 {
		l = 262144
	}
	return l
}

func binaryFuseSizeFactor(size uint32) float64 {
	return math.Max(1.075, 0.77+0.305*math.Log(600000)/math.Log(float64(size)))
}

// binaryFuseLayout derives segmentLength/segmentCount/arrayLength for n
// keys, per spec.md's segment-based sizing formulas.
func binaryFuseLayout(n uint32) (segmentLength, segmentCount, arrayLength uint32) {
	if n < 2 {
		n = 2
	}
	segmentLength = binaryFuseSegmentLength(n)
	sizeFactor := binaryFuseSizeFactor(n)
	capacity := uint32(float64(n) * sizeFactor)

	segmentCount = (capacity + segmentLength - 1) / segmentLength
	if segmentCount < binaryFuseArity-1 {
		segmentCount = 1
	} else {
		segmentCount -= binaryFuseArity - 1
	}
	arrayLength = (segmentCount + binaryFuseArity - 1) * segmentLength
	return segmentLength, segmentCount, arrayLength
}

func binaryFusePositions(h uint64, segmentCount, segmentLength, segmentLengthMask uint32) [binaryFuseArity]uint32 {
	start := uint32(xhash.MulHigh64(h, uint64(segmentCount)))
	var positions [binaryFuseArity]uint32
	for i := 0; i < binaryFuseArity; i++ {
		offset := uint32(bits.RotateLeft64(h, 16*(i+1))) & segmentLengthMask
		positions[i] = (start+uint32(i))*segmentLength + offset
	}
	return positions
}

// BuildBinaryFuse constructs a 4-wise Binary-Fuse filter over keys with
// fingerprintBits bits per slot.
func BuildBinaryFuse(keys [][]byte, fingerprintBits uint32) (*BinaryFuse, error) {
	n := uint32(len(keys))
	segmentLength, segmentCount, arrayLength := binaryFuseLayout(n)
	segmentLengthMask := segmentLength - 1

	for seed := uint64(0); seed < xorMaxReseeds; seed++ {
		hashes := make([]uint64, n)
		for i, k := range keys {
			hashes[i] = xhash.Keyed64(k, seed)
		}

		order, ok := peelBinaryFuse(hashes, segmentCount, segmentLength, segmentLengthMask, arrayLength)
		if !ok {
			continue
		}

		store := newFingerprintStore(arrayLength, fingerprintBits)
		for i := len(order) - 1; i >= 0; i-- {
			keyIdx, pos := order[i].keyIndex, order[i].position
			positions := binaryFusePositions(hashes[keyIdx], segmentCount, segmentLength, segmentLengthMask)
			var xorOther uint64
			for _, p := range positions {
				if p != pos {
					xorOther ^= store.get(p)
				}
			}
			store.set(pos, xorFingerprint(hashes[keyIdx], fingerprintBits)^xorOther)
		}

		return &BinaryFuse{
			fingerprints:      store,
			size:              n,
			segmentLength:     segmentLength,
			segmentLengthMask: segmentLengthMask,
			segmentCount:      segmentCount,
			seed:              seed,
		}, nil
	}

	return nil, ErrFilterConstructionFailed
}

func peelBinaryFuse(hashes []uint64, segmentCount, segmentLength, segmentLengthMask, arrayLength uint32) ([]peelStep, bool) {
	count := make([]uint32, arrayLength)
	xorKeyIdx := make([]uint32, arrayLength)

	for i, h := range hashes {
		for _, p := range binaryFusePositions(h, segmentCount, segmentLength, segmentLengthMask) {
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

		for _, p := range binaryFusePositions(hashes[keyIdx], segmentCount, segmentLength, segmentLengthMask) {
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
func (f *BinaryFuse) Contains(key []byte) bool {
	h := xhash.Keyed64(key, f.seed)
	positions := binaryFusePositions(h, f.segmentCount, f.segmentLength, f.segmentLengthMask)
	var xorred uint64
	for _, p := range positions {
		xorred ^= f.fingerprints.get(p)
	}
	return xorred == xorFingerprint(h, f.fingerprints.width)
}

// MarshalBinary encodes the filter per spec.md §6's Binary-Fuse filter
// blob (size, arrayLength, segmentCount, segmentCountLength,
// segmentLength, segmentLengthMask, bits_per_fingerprint, num_words,
// fingerprint words, hash_index).
func (f *BinaryFuse) MarshalBinary() []byte {
	arrayLength := f.fingerprints.n
	numWords := f.fingerprints.numWords()
	words := f.fingerprints.marshalWords()
	segmentCountLength := (f.segmentCount + binaryFuseArity - 1) * f.segmentLength

	out := make([]byte, 8*8+1+len(words))
	i := 0
	putU64(out[i:], uint64(f.size))
	i += 8
	putU64(out[i:], uint64(arrayLength))
	i += 8
	putU64(out[i:], uint64(f.segmentCount))
	i += 8
	putU64(out[i:], uint64(segmentCountLength))
	i += 8
	putU64(out[i:], uint64(f.segmentLength))
	i += 8
	putU64(out[i:], uint64(f.segmentLengthMask))
	i += 8
	out[i] = byte(f.fingerprints.width)
	i++
	putU64(out[i:], numWords)
	i += 8
	copy(out[i:], words)
	i += len(words)
	putU64(out[i:], f.seed)
	return out
}

// UnmarshalBinaryFuse decodes a filter blob previously produced by
// MarshalBinary, returning the filter and the number of bytes consumed.
func UnmarshalBinaryFuse(data []byte) (*BinaryFuse, int, error) {
	if len(data) < 8*6+1+8 {
		return nil, 0, fmt.Errorf("filter: short buffer for binary-fuse filter header")
	}
	i := 0
	size := uint32(getU64(data[i:]))
	i += 8
	arrayLength := uint32(getU64(data[i:]))
	i += 8
	segmentCount := uint32(getU64(data[i:]))
	i += 8
	i += 8 // segmentCountLength, derivable, not needed to reconstruct state
	segmentLength := uint32(getU64(data[i:]))
	i += 8
	segmentLengthMask := uint32(getU64(data[i:]))
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
		return nil, 0, fmt.Errorf("filter: short buffer for binary-fuse filter seed")
	}
	seed := getU64(data[i:])
	i += 8

	return &BinaryFuse{
		fingerprints:      store,
		size:              size,
		segmentLength:     segmentLength,
		segmentLengthMask: segmentLengthMask,
		segmentCount:      segmentCount,
		seed:              seed,
	}, i, nil
}
