// Package activations provides the scalar activation functions used by the recurrent cells
// and by the sentiment head.
package activations

import "math"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// Sigmoid activation function.
type Sigmoid struct{}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return Logistic(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := Logistic(x)
	return sigma * (1 - sigma)
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	th := math.Tanh(x)
	return 1 - th*th
}

// Linear is the identity activation used by the output projection.
type Linear struct{}

// Activate returns x unchanged.
func (l Linear) Activate(x float64) float64 {
	return x
}

// Derivative always returns 1.
func (l Linear) Derivative(x float64) float64 {
	return 1
}

// Logistic is a numerically stable sigmoid. For large negative x the naive
// form overflows exp(-x); this branch keeps the result finite.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
