package hashstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPartitionsAllItems(t *testing.T) {
	keys := make([][]byte, 0, 500)
	values := make([]int, 0, 500)
	for i := 0; i < 500; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
		values = append(values, i)
	}

	store, err := Build(keys, values, 50)
	require.NoError(t, err)
	require.Equal(t, NumBuckets(500, 50), len(store.Buckets))

	total := 0
	for _, b := range store.Buckets {
		require.Equal(t, len(b.Signatures), len(b.Values))
		total += len(b.Signatures)
	}
	require.Equal(t, 500, total)
}

func TestBuildRejectsMismatchedLengths(t *testing.T) {
	_, err := Build([][]byte{[]byte("a")}, []int{1, 2}, 10)
	require.Error(t, err)
}

func TestBuildRejectsEmpty(t *testing.T) {
	_, err := Build([][]byte{}, []int{}, 10)
	require.Error(t, err)
}

func TestBuildDetectsDuplicateKey(t *testing.T) {
	keys := [][]byte{[]byte("same"), []byte("same")}
	values := []int{1, 2}
	_, err := Build(keys, values, 10)
	require.ErrorIs(t, err, ErrDuplicateKey)
}
