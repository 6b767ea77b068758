package layer

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrIndexOutOfRange is returned when a token index falls outside the table.
var ErrIndexOutOfRange = errors.New("embedding index out of range")

// Embedding maps token indices to dense vectors.
// The row at padIdx is initialised to zero and never receives gradient,
// so it stays zero for the whole training run.
type Embedding struct {
	Weight *Parameter

	numEmbeddings int
	embeddingDim  int
	padIdx        int
}

// NewEmbedding creates an embedding table initialised from N(0, 1).
// padIdx < 0 disables the padding row.
func NewEmbedding(numEmbeddings, embeddingDim, padIdx int, rng *rand.Rand) *Embedding {
	e := &Embedding{
		Weight:        NewParameter("embedding.weight", numEmbeddings, embeddingDim),
		numEmbeddings: numEmbeddings,
		embeddingDim:  embeddingDim,
		padIdx:        padIdx,
	}
	for i := range e.Weight.Value {
		e.Weight.Value[i] = rng.NormFloat64()
	}
	if padIdx >= 0 && padIdx < numEmbeddings {
		clear(e.Weight.Row(padIdx))
	}
	return e
}

// Lookup gathers the vectors for idx into a [len(idx), dim] matrix. The rows
// are copies of the table.
func (e *Embedding) Lookup(idx []int) (*mat.Dense, error) {
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: no indices", ErrIndexOutOfRange)
	}
	out := mat.NewDense(len(idx), e.embeddingDim, nil)
	for r, i := range idx {
		if i < 0 || i >= e.numEmbeddings {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, e.numEmbeddings)
		}
		out.SetRow(r, e.Weight.Row(i))
	}
	return out, nil
}

// Backward accumulates row r of grad into the table row of idx[r]. Gradients
// are sparse: only rows that were looked up change, and the padding row is skipped.
func (e *Embedding) Backward(idx []int, grad *mat.Dense) {
	for r, i := range idx {
		if i == e.padIdx {
			continue
		}
		floats.Add(e.Weight.Grad[i*e.embeddingDim:(i+1)*e.embeddingDim], grad.RawRowView(r))
	}
}

// CopyFrom overwrites the whole table, e.g. with pretrained vectors.
// weights must be numEmbeddings*embeddingDim long.
func (e *Embedding) CopyFrom(weights []float64) error {
	if len(weights) != len(e.Weight.Value) {
		return fmt.Errorf("embedding: got %d values, want %d", len(weights), len(e.Weight.Value))
	}
	copy(e.Weight.Value, weights)
	return nil
}

// ZeroRow sets the vector at idx to zero.
func (e *Embedding) ZeroRow(idx int) {
	if idx < 0 || idx >= e.numEmbeddings {
		return
	}
	clear(e.Weight.Row(idx))
}

// GetWeight returns the embedding vector for a specific index without copying.
func (e *Embedding) GetWeight(idx int) []float64 {
	return e.Weight.Row(idx)
}

// Parameters returns the embedding table.
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.Weight}
}

// NumEmbeddings returns the vocabulary size.
func (e *Embedding) NumEmbeddings() int {
	return e.numEmbeddings
}

// EmbeddingDim returns the width of each vector.
func (e *Embedding) EmbeddingDim() int {
	return e.embeddingDim
}

// PaddingIdx returns the frozen padding row, or -1.
func (e *Embedding) PaddingIdx() int {
	return e.padIdx
}
