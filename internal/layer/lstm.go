package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoSentiment/internal/activations"
)

// LSTM is a single-direction Long Short-Term Memory layer that consumes a
// packed batch of sequences, one matrix product per time step.
//
// Gate layout inside every weight and bias block is [input, forget, cell, output],
// each block hiddenSize rows tall:
//
//	i = sigmoid(W_ii x + b_ii + W_hi h + b_hi)
//	f = sigmoid(W_if x + b_if + W_hf h + b_hf)
//	g = tanh(W_ig x + b_ig + W_hg h + b_hg)
//	o = sigmoid(W_io x + b_io + W_ho h + b_ho)
//	c' = f*c + i*g
//	h' = o*tanh(c')
//
// A reverse LSTM walks every item from its own last real position back to the
// first. At processing step s only the items longer than s take part, which
// is what packing means here: padding never reaches the state.
type LSTM struct {
	WeightIH *Parameter // [4H, in]
	WeightHH *Parameter // [4H, H]
	BiasIH   *Parameter // [4H]
	BiasHH   *Parameter // [4H]

	// Activation functions for each gate; cellAct also squashes the cell state.
	inputAct  activations.Activation
	forgetAct activations.Activation
	cellAct   activations.Activation
	outputAct activations.Activation

	inSize     int
	hiddenSize int
	reverse    bool
}

// lstmStep holds one processing step of a batch, rows in item order.
type lstmStep struct {
	x     *mat.Dense // [n, in]
	pre   *mat.Dense // [n, 4H] gate pre-activations
	gates *mat.Dense // [n, 4H] activated [i f g o]
	cPrev *mat.Dense // [n, H]
	hPrev *mat.Dense // [n, H]
	c     *mat.Dense // [n, H]
}

// LSTMTrace holds what one forward pass needs to be differentiated.
type LSTMTrace struct {
	lengths []int
	steps   []lstmStep
	final   *mat.Dense
}

// Final returns the [batch, H] hidden state of every item after its last real position.
func (tr *LSTMTrace) Final() *mat.Dense {
	return tr.final
}

// Steps returns the number of processing steps.
func (tr *LSTMTrace) Steps() int {
	return len(tr.steps)
}

// NewLSTM creates an LSTM layer with weights drawn from U(-1/sqrt(H), 1/sqrt(H)).
func NewLSTM(name string, inSize, hiddenSize int, reverse bool, rng *rand.Rand) *LSTM {
	l := &LSTM{
		WeightIH:   NewParameter(name+".weight_ih", 4*hiddenSize, inSize),
		WeightHH:   NewParameter(name+".weight_hh", 4*hiddenSize, hiddenSize),
		BiasIH:     NewParameter(name+".bias_ih", 4*hiddenSize, 1),
		BiasHH:     NewParameter(name+".bias_hh", 4*hiddenSize, 1),
		inputAct:   activations.Sigmoid{},
		forgetAct:  activations.Sigmoid{},
		cellAct:    activations.Tanh{},
		outputAct:  activations.Sigmoid{},
		inSize:     inSize,
		hiddenSize: hiddenSize,
		reverse:    reverse,
	}
	bound := 1 / math.Sqrt(float64(hiddenSize))
	for _, p := range l.Parameters() {
		p.fillUniform(rng, bound)
	}
	return l
}

// position maps processing step s of an item of the given length to the
// sequence position it reads.
func (l *LSTM) position(s, length int) int {
	if l.reverse {
		return length - 1 - s
	}
	return s
}

// gather collects the rows each active item reads at processing step s.
func (l *LSTM) gather(in *Packed, s, n int) *mat.Dense {
	if !l.reverse {
		return in.Steps[s]
	}
	x := mat.NewDense(n, in.Width(), nil)
	for i := 0; i < n; i++ {
		x.SetRow(i, in.Steps[l.position(s, in.Lengths[i])].RawRowView(i))
	}
	return x
}

// Forward runs the cell over the packed batch in and returns the hidden state
// of every item at every real position, aligned with in, plus the trace for
// Backward.
func (l *LSTM) Forward(in *Packed) (*Packed, *LSTMTrace, error) {
	if in == nil {
		return nil, nil, fmt.Errorf("lstm %s: empty batch", l.WeightIH.Name)
	}
	if err := in.check(l.inSize); err != nil {
		return nil, nil, fmt.Errorf("lstm %s: %w", l.WeightIH.Name, err)
	}

	H := l.hiddenSize
	B := in.BatchSize()
	wih := l.WeightIH.Matrix()
	whh := l.WeightHH.Matrix()
	bias := make([]float64, 4*H)
	floats.AddTo(bias, l.BiasIH.Value, l.BiasHH.Value)

	out, err := NewPacked(in.Lengths, H)
	if err != nil {
		return nil, nil, err
	}
	tr := &LSTMTrace{lengths: in.Lengths, steps: make([]lstmStep, len(in.Steps))}
	h := mat.NewDense(B, H, nil)
	c := mat.NewDense(B, H, nil)

	for s := range in.Steps {
		n := in.Active(s)
		x := l.gather(in, s, n)
		hPrev := mat.DenseCopyOf(h.Slice(0, n, 0, H))
		cPrev := mat.DenseCopyOf(c.Slice(0, n, 0, H))

		pre := mat.NewDense(n, 4*H, nil)
		pre.Mul(x, wih.T())
		var rec mat.Dense
		rec.Mul(hPrev, whh.T())
		pre.Add(pre, &rec)

		gates := mat.NewDense(n, 4*H, nil)
		for i := 0; i < n; i++ {
			p := pre.RawRowView(i)
			floats.Add(p, bias)
			g := gates.RawRowView(i)
			cp := cPrev.RawRowView(i)
			cRow := c.RawRowView(i)
			hRow := h.RawRowView(i)
			for j := 0; j < H; j++ {
				g[j] = l.inputAct.Activate(p[j])
				g[H+j] = l.forgetAct.Activate(p[H+j])
				g[2*H+j] = l.cellAct.Activate(p[2*H+j])
				g[3*H+j] = l.outputAct.Activate(p[3*H+j])

				cRow[j] = g[H+j]*cp[j] + g[j]*g[2*H+j]
				hRow[j] = g[3*H+j] * l.cellAct.Activate(cRow[j])
			}
			out.Steps[l.position(s, in.Lengths[i])].SetRow(i, hRow)
		}

		tr.steps[s] = lstmStep{
			x:     x,
			pre:   pre,
			gates: gates,
			cPrev: cPrev,
			hPrev: hPrev,
			c:     mat.DenseCopyOf(c.Slice(0, n, 0, H)),
		}
	}

	tr.final = h
	return out, tr, nil
}

// Backward runs backpropagation through time. dOut is aligned with the Forward
// output and may be nil or hold nil steps; dFinal is the [batch, H] gradient
// w.r.t. the final states and may be nil. Parameter gradients are accumulated
// and the gradient w.r.t. the input is returned.
func (l *LSTM) Backward(tr *LSTMTrace, dOut *Packed, dFinal *mat.Dense) *Packed {
	H := l.hiddenSize
	B := len(tr.lengths)
	wih := l.WeightIH.Matrix()
	whh := l.WeightHH.Matrix()
	gwih := l.WeightIH.GradMatrix()
	gwhh := l.WeightHH.GradMatrix()

	// lengths were validated by Forward
	dIn, _ := NewPacked(tr.lengths, l.inSize)
	dh := mat.NewDense(B, H, nil)
	dc := mat.NewDense(B, H, nil)
	if dFinal != nil {
		dh.Copy(dFinal)
	}

	for s := len(tr.steps) - 1; s >= 0; s-- {
		st := tr.steps[s]
		n, _ := st.pre.Dims()

		dpre := mat.NewDense(n, 4*H, nil)
		for i := 0; i < n; i++ {
			pos := l.position(s, tr.lengths[i])
			dhRow := dh.RawRowView(i)
			if dOut != nil && dOut.Steps[pos] != nil {
				floats.Add(dhRow, dOut.Steps[pos].RawRowView(i))
			}

			p := st.pre.RawRowView(i)
			g := st.gates.RawRowView(i)
			c := st.c.RawRowView(i)
			cPrev := st.cPrev.RawRowView(i)
			dcRow := dc.RawRowView(i)
			dp := dpre.RawRowView(i)
			for j := 0; j < H; j++ {
				ig, fg, cg, og := g[j], g[H+j], g[2*H+j], g[3*H+j]
				dcj := dcRow[j] + dhRow[j]*og*l.cellAct.Derivative(c[j])

				dp[j] = dcj * cg * l.inputAct.Derivative(p[j])
				dp[H+j] = dcj * cPrev[j] * l.forgetAct.Derivative(p[H+j])
				dp[2*H+j] = dcj * ig * l.cellAct.Derivative(p[2*H+j])
				dp[3*H+j] = dhRow[j] * l.cellAct.Activate(c[j]) * l.outputAct.Derivative(p[3*H+j])

				dcRow[j] = dcj * fg
			}
			floats.Add(l.BiasIH.Grad, dp)
			floats.Add(l.BiasHH.Grad, dp)
		}

		var gw mat.Dense
		gw.Mul(dpre.T(), st.x)
		gwih.Add(gwih, &gw)
		var gr mat.Dense
		gr.Mul(dpre.T(), st.hPrev)
		gwhh.Add(gwhh, &gr)

		var dx mat.Dense
		dx.Mul(dpre, wih)
		var dhPrev mat.Dense
		dhPrev.Mul(dpre, whh)
		for i := 0; i < n; i++ {
			dIn.Steps[l.position(s, tr.lengths[i])].SetRow(i, dx.RawRowView(i))
			copy(dh.RawRowView(i), dhPrev.RawRowView(i))
		}
	}

	return dIn
}

// Parameters returns the four LSTM tensors.
func (l *LSTM) Parameters() []*Parameter {
	return []*Parameter{l.WeightIH, l.WeightHH, l.BiasIH, l.BiasHH}
}

// InSize returns the input size of the LSTM.
func (l *LSTM) InSize() int {
	return l.inSize
}

// HiddenSize returns the width of the hidden state.
func (l *LSTM) HiddenSize() int {
	return l.hiddenSize
}

// Reverse reports whether the layer walks the sequence backwards.
func (l *LSTM) Reverse() bool {
	return l.reverse
}
