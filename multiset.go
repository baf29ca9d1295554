package csf

import (
	"context"
	"time"

	"github.com/rpcpool/csf/internal/entropy"
	"github.com/rpcpool/csf/internal/filter"
	"github.com/rpcpool/csf/internal/valuecodec"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// MultisetCSF is a vector of per-column CSFs over a shared key set, one
// column per component of a fixed-width value vector (spec.md §4.9,
// "MultisetCSF").
type MultisetCSF[T comparable] struct {
	columns []*CSF[T]
}

// BuildMultisetOptions configures BuildMultiset.
type BuildMultisetOptions struct {
	Filter      filter.Config
	BucketSize  int
	Concurrency int
	Verbose     bool
	// Permute applies the entropy-minimizing column permutation of
	// spec.md §4.12 before construction, preserving each row's multiset.
	Permute bool
}

// BuildMultiset constructs a MultisetCSF over keys and a value matrix
// (one row per key, one column per component); every row must have the
// same length. Build runs independently per column.
func BuildMultiset[T comparable](keys [][]byte, valuesMatrix [][]T, codec valuecodec.Codec[T], opts BuildMultisetOptions) (*MultisetCSF[T], BuildStats, error) {
	start := time.Now()

	if len(keys) == 0 || len(valuesMatrix) != len(keys) {
		return nil, BuildStats{}, ErrShapeMismatch
	}
	numCols := 0
	if len(valuesMatrix) > 0 {
		numCols = len(valuesMatrix[0])
	}
	for _, row := range valuesMatrix {
		if len(row) != numCols {
			return nil, BuildStats{}, ErrShapeMismatch
		}
	}
	if numCols == 0 {
		return nil, BuildStats{}, ErrShapeMismatch
	}

	if opts.Permute {
		entropy.Permute(valuesMatrix)
	}

	columns := make([][]T, numCols)
	for c := range columns {
		columns[c] = make([]T, len(valuesMatrix))
		for r, row := range valuesMatrix {
			columns[c][r] = row[c]
		}
	}

	buildOpts := BuildOptions{
		Filter:      opts.Filter,
		BucketSize:  opts.BucketSize,
		Concurrency: opts.Concurrency,
		Verbose:     opts.Verbose,
	}

	csfs := make([]*CSF[T], numCols)
	colStats := make([]BuildStats, numCols)
	g, _ := errgroup.WithContext(context.Background())
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for c := range columns {
		c := c
		g.Go(func() error {
			csf, stats, err := Build(keys, columns[c], codec, buildOpts)
			if err != nil {
				return err
			}
			csfs[c] = csf
			colStats[c] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BuildStats{}, err
	}

	var stats BuildStats
	for _, cs := range colStats {
		stats.NumBuckets += cs.NumBuckets
		stats.TotalVariables += cs.TotalVariables
		stats.TotalBits += cs.TotalBits
		stats.FilterSize += cs.FilterSize
	}
	stats.WallTime = time.Since(start)

	if opts.Verbose {
		klog.V(1).Infof("csf: multiset stats columns=%d buckets=%d variables=%d bits=%d filter_bytes=%d wall=%s",
			numCols, stats.NumBuckets, stats.TotalVariables, stats.TotalBits, stats.FilterSize, stats.WallTime)
	}

	return &MultisetCSF[T]{columns: csfs}, stats, nil
}

// Query returns the value vector for key, one value per column. If
// parallel is true, per-column queries (each independent) run
// concurrently (spec.md §4.10 step 7).
func (m *MultisetCSF[T]) Query(key []byte, parallel bool) []T {
	out := make([]T, len(m.columns))
	if !parallel {
		for c, csf := range m.columns {
			out[c] = csf.Query(key)
		}
		return out
	}

	var g errgroup.Group
	for c, csf := range m.columns {
		c, csf := c, csf
		g.Go(func() error {
			out[c] = csf.Query(key)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// NumColumns returns the number of per-column CSFs in the artifact.
func (m *MultisetCSF[T]) NumColumns() int { return len(m.columns) }
