// Package opt provides optimization algorithms.
package opt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Optimizer updates network parameters based on gradients.
//
// Parameters are addressed by slot: callers pass the same slot for the same
// tensor on every step so stateful optimizers can keep per-tensor moments.
type Optimizer interface {
	// StepInPlace updates params in-place from gradients.
	StepInPlace(slot int, params, gradients []float64)
}

// Adjustable is an optimizer whose learning rate a scheduler can drive.
type Adjustable interface {
	Optimizer
	RateSetter
}

// ErrUnknownOptimizer is returned by ByName for unsupported names.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// ByName builds the optimizer called name ("adam" or "sgd") with learning rate lr.
func ByName(name string, lr float64) (Adjustable, error) {
	switch name {
	case "adam":
		return NewAdam(lr), nil
	case "sgd":
		return &SGD{LearningRate: lr}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, name)
	}
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s SGD) StepInPlace(_ int, params, gradients []float64) {
	floats.AddScaled(params, -s.LearningRate, gradients)
}

// LR returns the learning rate.
func (s *SGD) LR() float64 { return s.LearningRate }

// SetLR sets the learning rate.
func (s *SGD) SetLR(lr float64) { s.LearningRate = lr }

// Adam optimizer with bias-corrected first and second moments.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	state map[int]*adamState
}

type adamState struct {
	m, v []float64
	t    int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		state:        make(map[int]*adamState),
	}
}

// StepInPlace applies one Adam update:
//
//	m = b1*m + (1-b1)*g
//	v = b2*v + (1-b2)*g^2
//	p -= lr * mhat / (sqrt(vhat) + eps)
func (a *Adam) StepInPlace(slot int, params, gradients []float64) {
	if a.state == nil {
		a.state = make(map[int]*adamState)
	}
	st, ok := a.state[slot]
	if !ok || len(st.m) != len(params) {
		st = &adamState{m: make([]float64, len(params)), v: make([]float64, len(params))}
		a.state[slot] = st
	}
	st.t++

	c1 := 1 / (1 - math.Pow(a.Beta1, float64(st.t)))
	c2 := 1 / (1 - math.Pow(a.Beta2, float64(st.t)))
	for i, g := range gradients {
		st.m[i] = a.Beta1*st.m[i] + (1-a.Beta1)*g
		st.v[i] = a.Beta2*st.v[i] + (1-a.Beta2)*g*g
		mhat := st.m[i] * c1
		vhat := st.v[i] * c2
		params[i] -= a.LearningRate * mhat / (math.Sqrt(vhat) + a.Epsilon)
	}
}

// LR returns the learning rate.
func (a *Adam) LR() float64 { return a.LearningRate }

// SetLR sets the learning rate used by later steps; moments are kept.
func (a *Adam) SetLR(lr float64) { a.LearningRate = lr }

// Steps returns how many updates have been applied to slot.
func (a *Adam) Steps(slot int) int {
	if st, ok := a.state[slot]; ok {
		return st.t
	}
	return 0
}

// ClipGradNorm rescales all gradients in place so that their joint L2 norm does
// not exceed maxNorm, and returns the norm before clipping. maxNorm <= 0 only
// measures.
func ClipGradNorm(gradients [][]float64, maxNorm float64) float64 {
	sumSq := 0.0
	for _, g := range gradients {
		n := floats.Norm(g, 2)
		sumSq += n * n
	}
	norm := math.Sqrt(sumSq)

	if maxNorm > 0 && norm > maxNorm {
		scale := maxNorm / (norm + 1e-6)
		for _, g := range gradients {
			floats.Scale(scale, g)
		}
	}
	return norm
}
