// Package csf implements the Compressed Static Function: an immutable,
// space-efficient map from a fixed key set to values, built to
// approach the zero-order empirical entropy of the value sequence.
package csf

import (
	"github.com/rpcpool/csf/internal/filter"
	"github.com/rpcpool/csf/internal/huffman"
	"github.com/rpcpool/csf/internal/valuecodec"
	"github.com/rpcpool/csf/internal/xhash"
)

// CSF is an immutable compressed static function over keys of type []byte
// and values of type T.
type CSF[T comparable] struct {
	buckets       []bucketSolution
	huffman       *huffman.Table[T]
	hashStoreSeed uint64
	codec         valuecodec.Codec[T]

	hasFilter        bool
	mostCommonValue  T
	filterConfig     filter.Config
	filterMembership filter.Membership
}

// Query returns the value associated with key (spec.md §4.10).
func (c *CSF[T]) Query(key []byte) T {
	if c.hasFilter && !c.filterMembership.Contains(key) {
		return c.mostCommonValue
	}

	sig := xhash.Sign(key, c.hashStoreSeed)
	bucketID := xhash.BucketID(sig, uint32(len(c.buckets)))
	bucket := c.buckets[bucketID]

	encoded := extractCode(bucket.solution, sig, bucket.bucketSeed, c.huffman.MaxCodeLength)

	value, err := huffman.DecodeFromInt(c.huffman, encoded)
	if err != nil {
		// A corrupt or mis-sized solution can't decode; returning the
		// zero value matches "the CSF stores no entry" semantics rather
		// than panicking a read path.
		var zero T
		return zero
	}
	return value
}

// NumBuckets returns the number of hash-store buckets the artifact was
// partitioned into.
func (c *CSF[T]) NumBuckets() int { return len(c.buckets) }

// FilterConfig returns the pre-filter configuration the artifact was
// built with (Kind: filter.KindNone if no pre-filter is in use). The
// configuration is not persisted: on an artifact returned by Load or
// LoadMultiset it is the zero Config (Kind: filter.KindNone), whether or
// not the artifact carries a pre-filter.
func (c *CSF[T]) FilterConfig() filter.Config { return c.filterConfig }
