// Package layer provides the neural network layers of the sentiment model.
package layer

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoSentiment/internal/activations"
)

// Parameter is a named, trainable tensor stored row-major in a contiguous slice,
// together with its accumulated gradient.
type Parameter struct {
	Name  string
	Rows  int
	Cols  int
	Value []float64
	Grad  []float64
}

// NewParameter allocates a zeroed rows x cols parameter.
func NewParameter(name string, rows, cols int) *Parameter {
	return &Parameter{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		Value: make([]float64, rows*cols),
		Grad:  make([]float64, rows*cols),
	}
}

// Len returns the number of scalars held by the parameter.
func (p *Parameter) Len() int {
	return len(p.Value)
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	clear(p.Grad)
}

// Matrix returns a gonum view over Value. The view shares memory with the parameter.
func (p *Parameter) Matrix() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Value)
}

// GradMatrix returns a gonum view over Grad.
func (p *Parameter) GradMatrix() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Grad)
}

// Row returns row i of Value without copying.
func (p *Parameter) Row(i int) []float64 {
	return p.Value[i*p.Cols : (i+1)*p.Cols]
}

// fillUniform initializes the parameter from U(-bound, bound).
func (p *Parameter) fillUniform(rng *rand.Rand, bound float64) {
	for i := range p.Value {
		p.Value[i] = rng.Float64()*2*bound - bound
	}
}

// Layer is anything that owns trainable parameters.
type Layer interface {
	Parameters() []*Parameter
}

// Linear is a fully connected layer y = act(xW^T + b) applied to a batch of
// row vectors. Weights are stored row-major with shape [out, in].
type Linear struct {
	Weight *Parameter
	Bias   *Parameter

	act     activations.Activation
	inSize  int
	outSize int
}

// NewLinear creates an identity-activated layer initialized from
// U(-1/sqrt(in), 1/sqrt(in)), the default used for fully connected layers by
// common frameworks.
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		Weight:  NewParameter(name+".weight", out, in),
		Bias:    NewParameter(name+".bias", out, 1),
		act:     activations.Linear{},
		inSize:  in,
		outSize: out,
	}
	bound := 1 / math.Sqrt(float64(in))
	l.Weight.fillUniform(rng, bound)
	l.Bias.fillUniform(rng, bound)
	return l
}

// preActivation computes xW^T + b for a [batch, in] input.
func (l *Linear) preActivation(x *mat.Dense) *mat.Dense {
	var pre mat.Dense
	pre.Mul(x, l.Weight.Matrix().T())
	r, _ := pre.Dims()
	for i := 0; i < r; i++ {
		floats.Add(pre.RawRowView(i), l.Bias.Value)
	}
	return &pre
}

// Forward maps a [batch, in] input to a [batch, out] output.
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	out := l.preActivation(x)
	out.Apply(func(_, _ int, v float64) float64 { return l.act.Activate(v) }, out)
	return out
}

// Backward accumulates dW += g^T x and db += column sums of g, where g is grad
// scaled by the activation derivative, and returns gW, the gradient w.r.t. x.
// x must be the input that produced the output being differentiated.
func (l *Linear) Backward(x, grad *mat.Dense) *mat.Dense {
	var g mat.Dense
	g.Apply(func(i, j int, v float64) float64 { return grad.At(i, j) * l.act.Derivative(v) }, l.preActivation(x))

	var gw mat.Dense
	gw.Mul(g.T(), x)
	wg := l.Weight.GradMatrix()
	wg.Add(wg, &gw)
	r, _ := g.Dims()
	for i := 0; i < r; i++ {
		floats.Add(l.Bias.Grad, g.RawRowView(i))
	}

	var dx mat.Dense
	dx.Mul(&g, l.Weight.Matrix())
	return &dx
}

// Parameters returns the weight and bias.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.Weight, l.Bias}
}

// InSize returns the input size of the layer.
func (l *Linear) InSize() int {
	return l.inSize
}

// OutSize returns the output size of the layer.
func (l *Linear) OutSize() int {
	return l.outSize
}
