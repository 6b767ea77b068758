package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchPadsAndSorts(t *testing.T) {
	seqs := [][]int{{2, 3}, {4, 5, 6, 7}, {8}}
	labels := []float64{1, 0, 1}

	b, err := NewBatch(seqs, labels, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Size())
	assert.Equal(t, 4, b.SeqLen())
	assert.Equal(t, []int{4, 2, 1}, b.Lengths)
	assert.Equal(t, []float64{0, 1, 1}, b.Labels)
	assert.Equal(t, [][]int{
		{4, 2, 8},
		{5, 3, 1},
		{6, 1, 1},
		{7, 1, 1},
	}, b.Tokens)

	assert.Equal(t, []int{4, 5, 6, 7}, b.Column(0))
	assert.Equal(t, []int{2, 3}, b.Column(1))
	assert.Equal(t, []int{8}, b.Column(2))
}

func TestNewBatchRejectsEmptySequence(t *testing.T) {
	_, err := NewBatch([][]int{{2}, {}}, []float64{1, 0}, 1)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestNewBatchLabelMismatch(t *testing.T) {
	_, err := NewBatch([][]int{{2}}, []float64{1, 0}, 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBatchValidate(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
		want  error
	}{
		{
			name:  "valid",
			batch: Batch{Tokens: [][]int{{1, 2}, {3, 0}}, Lengths: []int{2, 1}, Labels: []float64{0, 1}},
		},
		{
			name:  "unsorted",
			batch: Batch{Tokens: [][]int{{1, 2}, {3, 4}}, Lengths: []int{1, 2}, Labels: []float64{0, 1}},
			want:  ErrUnsortedLengths,
		},
		{
			name:  "overflow",
			batch: Batch{Tokens: [][]int{{1}}, Lengths: []int{2}, Labels: []float64{0}},
			want:  ErrLengthOverflow,
		},
		{
			name:  "zero length",
			batch: Batch{Tokens: [][]int{{1}}, Lengths: []int{0}, Labels: []float64{0}},
			want:  ErrEmptySequence,
		},
		{
			name:  "ragged row",
			batch: Batch{Tokens: [][]int{{1, 2}, {3}}, Lengths: []int{2, 1}, Labels: []float64{0, 1}},
			want:  ErrShapeMismatch,
		},
		{
			name:  "labels mismatch",
			batch: Batch{Tokens: [][]int{{1}}, Lengths: []int{1}, Labels: []float64{0, 1}},
			want:  ErrShapeMismatch,
		},
		{
			name:  "empty",
			batch: Batch{},
			want:  ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
