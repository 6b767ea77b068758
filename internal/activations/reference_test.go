package activations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Reference values computed with torch.sigmoid and torch.tanh in float64.
func TestAgainstTorchReference(t *testing.T) {
	tests := []struct {
		x       float64
		sigmoid float64
		dsig    float64
		tanh    float64
		dtanh   float64
	}{
		{-2, 0.11920292202211755, 0.10499358540350658, -0.9640275800758169, 0.07065082484702827},
		{-1, 0.2689414213699951, 0.19661193324148185, -0.7615941559557649, 0.4199743416140261},
		{-0.5, 0.3775406687981454, 0.2350037122015942, -0.46211715726000974, 0.7864477325343538},
		{0, 0.5, 0.25, 0, 1},
		{0.5, 0.6224593312018546, 0.2350037122015942, 0.46211715726000974, 0.7864477325343538},
		{1, 0.7310585786300049, 0.19661193324148185, 0.7615941559557649, 0.4199743416140261},
		{2, 0.8807970779778823, 0.10499358540350658, 0.9640275800758169, 0.07065082484702827},
	}

	s, th := Sigmoid{}, Tanh{}
	for _, tt := range tests {
		assert.InDelta(t, tt.sigmoid, s.Activate(tt.x), 1e-10, "sigmoid(%v)", tt.x)
		assert.InDelta(t, tt.dsig, s.Derivative(tt.x), 1e-10, "sigmoid'(%v)", tt.x)
		assert.InDelta(t, tt.tanh, th.Activate(tt.x), 1e-10, "tanh(%v)", tt.x)
		assert.InDelta(t, tt.dtanh, th.Derivative(tt.x), 1e-9, "tanh'(%v)", tt.x)
	}
}

func TestSymmetry(t *testing.T) {
	s, th := Sigmoid{}, Tanh{}
	for _, x := range []float64{-3, -1, -0.5, 0.5, 1, 3} {
		assert.InDelta(t, 1, s.Activate(x)+s.Activate(-x), 1e-12, "sigmoid(%v)+sigmoid(-%v)", x, x)
		assert.InDelta(t, 0, th.Activate(x)+th.Activate(-x), 1e-12, "tanh(%v)+tanh(-%v)", x, x)
	}
}
