package layer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Dropout implements inverted dropout regularization.
// During training each element is zeroed with probability p and the survivors
// are scaled by 1/(1-p). During inference inputs pass through unchanged.
type Dropout struct {
	p float64
}

// NewDropout creates a new dropout layer.
// p is the probability of dropping an element.
func NewDropout(p float64) Dropout {
	return Dropout{p: p}
}

// P returns the drop probability.
func (d Dropout) P() float64 {
	return d.p
}

// Forward returns the masked copy of x and the mask needed by Backward.
// With rng == nil (inference) or p == 0 the mask is nil and x is copied as is.
func (d Dropout) Forward(x []float64, rng *rand.Rand) ([]float64, []float64) {
	out := make([]float64, len(x))
	if rng == nil || d.p <= 0 {
		copy(out, x)
		return out, nil
	}

	mask := make([]float64, len(x))
	if d.p >= 1 {
		return out, mask
	}

	scale := 1 / (1 - d.p)
	for i := range x {
		if rng.Float64() >= d.p {
			mask[i] = scale
			out[i] = x[i] * scale
		}
	}
	return out, mask
}

// Backward applies the mask produced by Forward to grad.
func (d Dropout) Backward(grad, mask []float64) []float64 {
	out := make([]float64, len(grad))
	if mask == nil {
		copy(out, grad)
		return out
	}
	for i := range grad {
		out[i] = grad[i] * mask[i]
	}
	return out
}

// ForwardDense applies Forward to every element of m.
func (d Dropout) ForwardDense(m *mat.Dense, rng *rand.Rand) (*mat.Dense, []float64) {
	r, c := m.Dims()
	out, mask := d.Forward(mat.DenseCopyOf(m).RawMatrix().Data, rng)
	return mat.NewDense(r, c, out), mask
}

// BackwardDense applies the mask produced by ForwardDense to grad.
func (d Dropout) BackwardDense(grad *mat.Dense, mask []float64) *mat.Dense {
	r, c := grad.Dims()
	return mat.NewDense(r, c, d.Backward(mat.DenseCopyOf(grad).RawMatrix().Data, mask))
}
