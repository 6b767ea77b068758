package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference values computed with torch.nn.BCEWithLogitsLoss(reduction='mean').
func TestBCEWithLogitsForward(t *testing.T) {
	b := BCEWithLogitsLoss{}

	tests := []struct {
		name  string
		yPred []float64
		yTrue []float64
		want  float64
	}{
		{"mixed", []float64{0.5, -1, 2}, []float64{1, 0, 1}, 0.3047555609137674},
		{"zero logit", []float64{0}, []float64{1}, math.Ln2},
		{"zero logit negative", []float64{0}, []float64{0}, math.Ln2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Forward(tt.yPred, tt.yTrue)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestBCEWithLogitsForwardIsStable(t *testing.T) {
	b := BCEWithLogitsLoss{}

	got, err := b.Forward([]float64{1000, -1000}, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-12)

	got, err = b.Forward([]float64{-1000}, []float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1000, got, 1e-9)
	assert.False(t, math.IsInf(got, 0))
}

func TestBCEWithLogitsBackward(t *testing.T) {
	b := BCEWithLogitsLoss{}

	grad, err := b.Backward([]float64{0.5, -1, 2}, []float64{1, 0, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-0.1258468895993818, 0.08964714045666504, -0.0397343073407059}, grad, 1e-12)
}

func TestBCEWithLogitsBackwardMatchesFiniteDifferences(t *testing.T) {
	b := BCEWithLogitsLoss{}
	yPred := []float64{0.3, -2.1, 1.7, 0}
	yTrue := []float64{1, 0, 0, 1}

	grad, err := b.Backward(yPred, yTrue)
	require.NoError(t, err)

	const eps = 1e-6
	for i := range yPred {
		orig := yPred[i]
		yPred[i] = orig + eps
		plus, _ := b.Forward(yPred, yTrue)
		yPred[i] = orig - eps
		minus, _ := b.Forward(yPred, yTrue)
		yPred[i] = orig
		assert.InDelta(t, (plus-minus)/(2*eps), grad[i], 1e-8)
	}
}

func TestBCEWithLogitsSizeMismatch(t *testing.T) {
	b := BCEWithLogitsLoss{}

	_, err := b.Forward([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = b.Backward([]float64{1}, []float64{1, 0})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = b.Forward(nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBinaryAccuracy(t *testing.T) {
	tests := []struct {
		name   string
		logits []float64
		labels []float64
		want   float64
	}{
		{"all correct", []float64{3, -3}, []float64{1, 0}, 1},
		{"all wrong", []float64{3, -3}, []float64{0, 1}, 0},
		{"eight of ten", []float64{1, 1, 1, 1, -1, -1, -1, -1, 1, -1}, []float64{1, 1, 1, 1, 0, 0, 0, 0, 0, 1}, 0.8},
		{"zero logit rounds down", []float64{0}, []float64{0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryAccuracy(tt.logits, tt.labels)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	_, err := BinaryAccuracy([]float64{1}, []float64{1, 0})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
