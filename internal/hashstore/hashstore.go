// Package hashstore implements BucketedHashStore (spec.md §4.4): it
// partitions (key, value) pairs into roughly equal-size buckets by hash,
// retrying with fresh seeds if any bucket contains a signature collision.
package hashstore

import (
	"fmt"

	"github.com/rpcpool/csf/internal/xhash"
)

// MaxRetries bounds the number of hash-store seeds tried before giving up
// (spec.md §4.4, §7).
const MaxRetries = 3

// ErrDuplicateKey indicates two input keys hashed to the same 128-bit
// signature under every seed tried, which at maximum retries almost
// certainly means a literal duplicate key in the input.
var ErrDuplicateKey = fmt.Errorf("hashstore: duplicate key (signature collision) after %d seeds", MaxRetries)

// Bucket holds the signatures and values routed to one bucket, in input
// order.
type Bucket[V any] struct {
	Signatures []xhash.Signature
	Values     []V
}

// Store is the result of partitioning keys into buckets: per-bucket
// signature/value lists and the seed that produced a collision-free
// partition.
type Store[V any] struct {
	Buckets []Bucket[V]
	Seed    uint64
}

// NumBuckets returns the number of buckets a Build call would use for n
// items at the given target bucket size, per spec.md §4.4:
// B = 1 + floor(n / bucketSize).
func NumBuckets(n int, bucketSize int) int {
	return 1 + n/bucketSize
}

// Build partitions keys/values into NumBuckets(len(keys), bucketSize)
// buckets, trying seeds 0, 1, 2, ... until no bucket contains a duplicate
// signature, or MaxRetries is exhausted.
func Build[V any](keys [][]byte, values []V, bucketSize int) (*Store[V], error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("hashstore: len(keys)=%d != len(values)=%d", len(keys), len(values))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("hashstore: empty key set")
	}
	if bucketSize <= 0 {
		return nil, fmt.Errorf("hashstore: bucketSize must be > 0")
	}

	numBuckets := NumBuckets(len(keys), bucketSize)

	var lastErr error
	for seed := uint64(0); seed < MaxRetries; seed++ {
		store, err := tryPartition(keys, values, numBuckets, seed)
		if err == nil {
			return store, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w (last error: %v)", ErrDuplicateKey, lastErr)
}

func tryPartition[V any](keys [][]byte, values []V, numBuckets int, seed uint64) (*Store[V], error) {
	buckets := make([]Bucket[V], numBuckets)

	for i, key := range keys {
		sig := xhash.Sign(key, seed)
		bucketID := xhash.BucketID(sig, uint32(numBuckets))
		b := &buckets[bucketID]
		for _, existing := range b.Signatures {
			if existing == sig {
				return nil, fmt.Errorf("hashstore: signature collision in bucket %d under seed %d", bucketID, seed)
			}
		}
		b.Signatures = append(b.Signatures, sig)
		b.Values = append(b.Values, values[i])
	}

	return &Store[V]{Buckets: buckets, Seed: seed}, nil
}
