package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEmbeddingLookup(t *testing.T) {
	emb := NewEmbedding(5, 3, 1, newTestRNG())

	out, err := emb.Lookup([]int{0, 2, 4})
	require.NoError(t, err)
	rows, cols := out.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)

	for i, idx := range []int{0, 2, 4} {
		assert.Equal(t, emb.GetWeight(idx), out.RawRowView(i))
	}

	// Lookups are copies; mutating them must not touch the table.
	out.Set(0, 0, 42)
	assert.NotEqual(t, 42.0, emb.GetWeight(0)[0])
}

func TestEmbeddingPaddingRowIsZero(t *testing.T) {
	emb := NewEmbedding(5, 3, 1, newTestRNG())
	assert.Equal(t, []float64{0, 0, 0}, emb.GetWeight(1))
	assert.Equal(t, 1, emb.PaddingIdx())
}

func TestEmbeddingLookupOutOfRange(t *testing.T) {
	emb := NewEmbedding(5, 3, 1, newTestRNG())

	_, err := emb.Lookup([]int{5})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = emb.Lookup([]int{-1})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = emb.Lookup(nil)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestEmbeddingBackward(t *testing.T) {
	emb := NewEmbedding(5, 3, 1, newTestRNG())

	ones := mat.NewDense(4, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	emb.Backward([]int{0, 2, 2, 1}, ones)

	assert.Equal(t, []float64{1, 1, 1}, emb.Weight.Grad[0:3])
	// Padding row never receives gradient.
	assert.Equal(t, []float64{0, 0, 0}, emb.Weight.Grad[3:6])
	// Repeated indices accumulate.
	assert.Equal(t, []float64{2, 2, 2}, emb.Weight.Grad[6:9])
	assert.Equal(t, []float64{0, 0, 0}, emb.Weight.Grad[12:15])
}

func TestEmbeddingCopyFromAndZeroRow(t *testing.T) {
	emb := NewEmbedding(2, 2, -1, newTestRNG())

	require.NoError(t, emb.CopyFrom([]float64{1, 2, 3, 4}))
	assert.Equal(t, []float64{3, 4}, emb.GetWeight(1))

	emb.ZeroRow(0)
	assert.Equal(t, []float64{0, 0}, emb.GetWeight(0))

	assert.Error(t, emb.CopyFrom([]float64{1}))
}
