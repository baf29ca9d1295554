package csf

import "fmt"

// ErrShapeMismatch is returned when construction input shapes are
// invalid: |keys| != |values|, a multiset matrix with unequal row
// lengths, empty input, or a code-length overflow beyond 64 bits.
var ErrShapeMismatch = fmt.Errorf("csf: shape mismatch")

// ErrDuplicateKey is returned when the hash store exhausts its retry
// budget while routing keys into buckets (spec.md §7).
var ErrDuplicateKey = fmt.Errorf("csf: duplicate key")

// UnsolvableBucketError reports that a bucket's GF(2) system had no
// solution after exhausting its seed retry budget.
type UnsolvableBucketError struct {
	BucketID int
	Attempts int
}

func (e *UnsolvableBucketError) Error() string {
	return fmt.Sprintf("csf: bucket %d unsolvable after %d seed attempts", e.BucketID, e.Attempts)
}

// FilterConstructionError reports that a pre-filter's peel-based
// construction (XOR or Binary-Fuse) failed to converge.
type FilterConstructionError struct {
	Err error
}

func (e *FilterConstructionError) Error() string {
	return fmt.Sprintf("csf: pre-filter construction failed: %v", e.Err)
}

func (e *FilterConstructionError) Unwrap() error { return e.Err }

// DeserializationError reports that a persisted artifact's header does
// not match the requested value-type variant, or is otherwise malformed.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("csf: deserialization failed: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
