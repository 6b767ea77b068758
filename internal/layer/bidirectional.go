package layer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Encoder is a stack of recurrent layers. With bidirectional set, each layer
// runs a forward and a reverse LSTM over the same input and concatenates their
// outputs position by position; the next layer reads that concatenation.
// Dropout is applied between layers, never after the last one.
type Encoder struct {
	Layers [][]*LSTM // Layers[l][0] forward, Layers[l][1] reverse

	inSize        int
	hiddenSize    int
	bidirectional bool
	dropout       Dropout
}

// EncoderTrace keeps per-layer traces and inter-layer dropout masks.
type EncoderTrace struct {
	traces  [][]*LSTMTrace
	masks   [][][]float64 // masks[l][t] applied to step t of the input of layer l, l >= 1
	lengths []int
}

// NewEncoder builds numLayers recurrent layers. Parameter names follow the
// usual l{layer} / _reverse convention so checkpoints read naturally.
func NewEncoder(inSize, hiddenSize, numLayers int, bidirectional bool, dropout float64, rng *rand.Rand) *Encoder {
	e := &Encoder{
		Layers:        make([][]*LSTM, numLayers),
		inSize:        inSize,
		hiddenSize:    hiddenSize,
		bidirectional: bidirectional,
		dropout:       NewDropout(dropout),
	}
	layerIn := inSize
	for l := 0; l < numLayers; l++ {
		name := fmt.Sprintf("rnn.l%d", l)
		e.Layers[l] = []*LSTM{NewLSTM(name, layerIn, hiddenSize, false, rng)}
		if bidirectional {
			e.Layers[l] = append(e.Layers[l], NewLSTM(name+"_reverse", layerIn, hiddenSize, true, rng))
		}
		layerIn = hiddenSize * e.NumDirections()
	}
	return e
}

// NumDirections returns 2 for a bidirectional encoder, 1 otherwise.
func (e *Encoder) NumDirections() int {
	if e.bidirectional {
		return 2
	}
	return 1
}

// OutSize returns the width of the concatenated final state.
func (e *Encoder) OutSize() int {
	return e.hiddenSize * e.NumDirections()
}

// Forward encodes a packed batch and returns the last layer's final states as
// a [batch, OutSize] matrix: forward direction first, reverse direction second.
// rng enables inter-layer dropout; pass nil for inference.
func (e *Encoder) Forward(in *Packed, rng *rand.Rand) (*mat.Dense, *EncoderTrace, error) {
	if in == nil || len(in.Steps) == 0 {
		return nil, nil, fmt.Errorf("encoder: empty batch")
	}

	tr := &EncoderTrace{
		traces:  make([][]*LSTMTrace, len(e.Layers)),
		masks:   make([][][]float64, len(e.Layers)),
		lengths: in.Lengths,
	}

	input := in
	for l, dirs := range e.Layers {
		if l > 0 {
			dropped := &Packed{Steps: make([]*mat.Dense, len(input.Steps)), Lengths: input.Lengths}
			tr.masks[l] = make([][]float64, len(input.Steps))
			for t, step := range input.Steps {
				dropped.Steps[t], tr.masks[l][t] = e.dropout.ForwardDense(step, rng)
			}
			input = dropped
		}

		outs := make([]*Packed, len(dirs))
		tr.traces[l] = make([]*LSTMTrace, len(dirs))
		for d, cell := range dirs {
			o, t, err := cell.Forward(input)
			if err != nil {
				return nil, nil, err
			}
			outs[d], tr.traces[l][d] = o, t
		}
		input = concatPacked(outs)
	}

	B := in.BatchSize()
	H := e.hiddenSize
	final := mat.NewDense(B, e.OutSize(), nil)
	for d, t := range tr.traces[len(tr.traces)-1] {
		final.Slice(0, B, d*H, (d+1)*H).(*mat.Dense).Copy(t.Final())
	}
	return final, tr, nil
}

// Backward propagates dFinal (gradient w.r.t. the concatenated final states)
// through every layer and returns the gradient w.r.t. the packed input.
func (e *Encoder) Backward(tr *EncoderTrace, dFinal *mat.Dense) *Packed {
	H := e.hiddenSize
	B := len(tr.lengths)
	last := len(e.Layers) - 1

	// Gradient w.r.t. the concatenated outputs of the layer being processed;
	// nil for the last layer, which only receives gradient at its final states.
	var dOut *Packed
	var dIn *Packed

	for l := last; l >= 0; l-- {
		dIn = nil
		for d, cell := range e.Layers[l] {
			var dDir *Packed
			if dOut != nil {
				dDir = dOut.columns(d*H, (d+1)*H)
			}
			var dLast *mat.Dense
			if l == last {
				dLast = mat.DenseCopyOf(dFinal.Slice(0, B, d*H, (d+1)*H))
			}

			dx := cell.Backward(tr.traces[l][d], dDir, dLast)
			if dIn == nil {
				dIn = dx
				continue
			}
			dIn.add(dx)
		}

		if l > 0 {
			for t, step := range dIn.Steps {
				dIn.Steps[t] = e.dropout.BackwardDense(step, tr.masks[l][t])
			}
		}
		dOut = dIn
	}
	return dIn
}

// Parameters returns all recurrent tensors, layer by layer, forward before reverse.
func (e *Encoder) Parameters() []*Parameter {
	var params []*Parameter
	for _, dirs := range e.Layers {
		for _, cell := range dirs {
			params = append(params, cell.Parameters()...)
		}
	}
	return params
}

// InSize returns the width of the first layer's input.
func (e *Encoder) InSize() int {
	return e.inSize
}

// HiddenSize returns the per-direction hidden width.
func (e *Encoder) HiddenSize() int {
	return e.hiddenSize
}
