// Package xhash provides the keyed string hashes used to derive key
// signatures, bucket ids and per-bucket variable start positions.
//
// Any fast high-quality keyed hash works for this purpose (spec.md §9); we
// use two independent families — xxhash for the first 64-bit lane, xxh3 for
// the second — so the 128-bit signature doesn't depend on calling one hash
// twice with different seeds.
package xhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// Signature is a 128-bit key signature (h1, h2). Two keys collide iff their
// signatures collide.
type Signature struct {
	H1 uint64
	H2 uint64
}

// Sign computes the 128-bit signature of key under the given seed.
func Sign(key []byte, seed uint64) Signature {
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], seed)

	d := xxhash.New()
	d.Write(seedBuf[:])
	d.Write(key)
	h1 := d.Sum64()

	h2 := xxh3.HashSeed(key, seed)

	return Signature{H1: h1, H2: h2}
}

// Keyed64 returns a 64-bit keyed hash of key under the given seed,
// independent of Sign's lanes. Used to derive the pre-filters' hash
// families.
func Keyed64(key []byte, seed uint64) uint64 {
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], seed)
	d := xxhash.New()
	d.Write(seedBuf[:])
	d.Write([]byte{0xc5}) // domain-separate from Sign's h1 lane
	d.Write(key)
	return d.Sum64()
}

// HashUint64 mixes a 64-bit seed and a 64-bit counter into a single 64-bit
// value, used to derive a deterministic sequence of pseudo-random indices
// from (signature, bucket seed, i).
func HashUint64(a, b uint64) uint64 {
	x := a ^ (b + 0x9e3779b97f4a7c15 + (a << 6) + (a >> 2))
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// MulHigh64 returns floor(a*b / 2^64), the high 64 bits of the full 128-bit
// product. Used for bias-free modular reduction into [0, n) without a
// division.
func MulHigh64(a, b uint64) uint64 {
	hi, _ := mul64(a, b)
	return hi
}

func mul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 1<<32 - 1
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}

// BucketID maps a signature to a bucket in [0, numBuckets) using the
// multiply-high reduction of spec.md §4.2: floor(((h1>>1) * 2*numBuckets) / 2^64).
func BucketID(sig Signature, numBuckets uint32) uint32 {
	if numBuckets == 0 {
		panic("xhash: numBuckets must be > 0")
	}
	return uint32(MulHigh64(sig.H1>>1, uint64(numBuckets)<<1))
}

// ThreeStartPositions derives three distinct indices in [0, V) from
// (signature, bucket seed), per spec.md §4.2. It iteratively hashes
// (sig.H1, seed+i) for i = 0, 1, 2, ..., reducing into [0, V) by
// multiply-high (MulHigh64), and rejects
// duplicates until three distinct indices have accumulated.
func ThreeStartPositions(sig Signature, bucketSeed uint64, numVariables uint32) (a, b, c uint32) {
	if numVariables == 0 {
		panic("xhash: numVariables must be > 0")
	}
	var out [3]uint32
	count := 0
	for i := uint64(0); count < 3; i++ {
		h := HashUint64(sig.H1, bucketSeed+i)
		idx := uint32(MulHigh64(h, uint64(numVariables)))
		dup := false
		for j := 0; j < count; j++ {
			if out[j] == idx {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out[count] = idx
		count++
	}
	return out[0], out[1], out[2]
}
