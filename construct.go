package csf

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rpcpool/csf/internal/filter"
	"github.com/rpcpool/csf/internal/hashstore"
	"github.com/rpcpool/csf/internal/huffman"
	"github.com/rpcpool/csf/internal/valuecodec"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// defaultBucketSize keeps each bucket's dense residual around the few
// thousand bits where the peeler/lazy-GE pipeline works best (spec.md §5
// "Memory": V tuned to ~4000 bits per bucket).
const defaultBucketSize = 2000

// BuildOptions configures a Build call. The zero value picks sane
// defaults: no pre-filter, the default bucket size, unbounded solve
// concurrency.
type BuildOptions struct {
	Filter      filter.Config
	BucketSize  int
	Concurrency int // 0 means unbounded
	Verbose     bool
}

// BuildStats is a diagnostic construction summary (CaramelDB's
// CsfStats), returned alongside the artifact. It never affects the
// artifact's bytes or query semantics.
type BuildStats struct {
	NumBuckets     int
	TotalVariables uint64
	TotalBits      uint64
	FilterSize     int // marshaled filter blob size in bytes, 0 if no filter
	WallTime       time.Duration
}

// Build constructs a CSF mapping each key to its value (spec.md §4.9).
// Keys must be unique and len(keys) == len(values).
func Build[T comparable](keys [][]byte, values []T, codec valuecodec.Codec[T], opts BuildOptions) (*CSF[T], BuildStats, error) {
	start := time.Now()

	if len(keys) == 0 || len(keys) != len(values) {
		return nil, BuildStats{}, ErrShapeMismatch
	}

	bucketSize := opts.BucketSize
	if bucketSize <= 0 {
		bucketSize = defaultBucketSize
	}

	buildID := uuid.New().String()

	workKeys, workValues, hasFilter, mostCommon, membership, err := applyPrefilter(keys, values, opts.Filter)
	if err != nil {
		return nil, BuildStats{}, err
	}

	if opts.Verbose {
		klog.Infof("csf[%s]: building over %d keys (%d after pre-filter)", buildID, len(keys), len(workKeys))
	}

	table, codeMap, err := huffman.Build(workValues, codec.Less)
	if err != nil {
		return nil, BuildStats{}, err
	}

	store, err := hashstore.Build(workKeys, workValues, bucketSize)
	if err != nil {
		if errors.Is(err, hashstore.ErrDuplicateKey) {
			return nil, BuildStats{}, ErrDuplicateKey
		}
		return nil, BuildStats{}, err
	}

	buckets, err := solveBucketsParallel(store.Buckets, codeMap, table.MaxCodeLength, opts.Concurrency)
	if err != nil {
		return nil, BuildStats{}, err
	}

	if opts.Verbose {
		klog.Infof("csf[%s]: solved %d buckets", buildID, len(buckets))
	}

	var filterSize int
	if hasFilter {
		if blob, ferr := filter.Marshal(membership); ferr == nil {
			filterSize = len(blob)
		}
	}

	var totalBits uint64
	for _, b := range buckets {
		totalBits += uint64(b.solution.Len())
	}

	stats := BuildStats{
		NumBuckets:     len(buckets),
		TotalVariables: totalBits,
		TotalBits:      totalBits,
		FilterSize:     filterSize,
		WallTime:       time.Since(start),
	}

	if opts.Verbose {
		klog.V(1).Infof("csf[%s]: stats buckets=%d variables=%d bits=%d filter_bytes=%d wall=%s",
			buildID, stats.NumBuckets, stats.TotalVariables, stats.TotalBits, stats.FilterSize, stats.WallTime)
	}

	return &CSF[T]{
		buckets:          buckets,
		huffman:          table,
		hashStoreSeed:    store.Seed,
		codec:            codec,
		hasFilter:        hasFilter,
		mostCommonValue:  mostCommon,
		filterConfig:     opts.Filter,
		filterMembership: membership,
	}, stats, nil
}

// applyPrefilter absorbs the most common value into a pre-filter, per
// spec.md §4.9 step 2: the filter is built over keys whose value isn't
// the majority value, and only keys the filter answers "maybe" for are
// retained for the CSF proper (this includes false positives among
// majority-value keys - dropping them would make the CSF answer wrong).
func applyPrefilter[T comparable](keys [][]byte, values []T, cfg filter.Config) ([][]byte, []T, bool, T, filter.Membership, error) {
	var zero T
	if cfg.Kind == filter.KindNone {
		return keys, values, false, zero, nil, nil
	}

	mostCommon := majorityValue(values)

	var nonMajorityKeys [][]byte
	for i, v := range values {
		if v != mostCommon {
			nonMajorityKeys = append(nonMajorityKeys, keys[i])
		}
	}

	membership, err := cfg.Build(nonMajorityKeys)
	if err != nil {
		return nil, nil, false, zero, nil, &FilterConstructionError{Err: err}
	}

	var retainedKeys [][]byte
	var retainedValues []T
	for i, k := range keys {
		if membership.Contains(k) {
			retainedKeys = append(retainedKeys, k)
			retainedValues = append(retainedValues, values[i])
		}
	}

	return retainedKeys, retainedValues, true, mostCommon, membership, nil
}

func majorityValue[T comparable](values []T) T {
	counts := make(map[T]int, len(values))
	var best T
	bestCount := -1
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			bestCount = counts[v]
			best = v
		}
	}
	return best
}

// solveBucketsParallel dispatches one solve task per bucket, bounded by
// concurrency (0 = no limit), capturing the first error and cancelling the
// rest (spec.md §5 "Cancellation"): tasks that have not started by then
// return without solving their bucket.
func solveBucketsParallel[T comparable](buckets []hashstore.Bucket[T], codeMap map[T]huffman.Code, maxCodeLength uint32, concurrency int) ([]bucketSolution, error) {
	solutions := make([]bucketSolution, len(buckets))

	g, ctx := errgroup.WithContext(context.Background())
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for bucketID := range buckets {
		bucketID := bucketID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bucket := buckets[bucketID]
			codes := make([]huffman.Code, len(bucket.Values))
			for i, v := range bucket.Values {
				codes[i] = codeMap[v]
			}
			solution, err := solveBucket[T](bucketID, bucket.Signatures, codes, maxCodeLength)
			if err != nil {
				return err
			}
			solutions[bucketID] = solution
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return solutions, nil
}
