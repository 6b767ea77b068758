package net

import (
	"errors"

	"github.com/FlavioCFOliveira/GoSentiment/internal/activations"
	"github.com/FlavioCFOliveira/GoSentiment/internal/data"
)

// ErrEmptyInput is returned for text that yields no tokens.
var ErrEmptyInput = errors.New("input has no tokens")

// Predictor scores free text with a trained model.
type Predictor struct {
	Model     *Model
	Vocab     *data.Vocabulary
	Tokenizer data.Tokenizer
}

// NewPredictor returns a predictor using the word tokenizer.
func NewPredictor(m *Model, vocab *data.Vocabulary) *Predictor {
	return &Predictor{Model: m, Vocab: vocab, Tokenizer: data.WordTokenizer{}}
}

// PredictSentiment returns the probability that text is positive.
// Tokens missing from the vocabulary map to the unknown index.
func (p *Predictor) PredictSentiment(text string) (float64, error) {
	tokens := p.Tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return 0, ErrEmptyInput
	}

	b, err := data.NewBatch([][]int{p.Vocab.Numericalize(tokens)}, []float64{0}, p.Vocab.PadIndex())
	if err != nil {
		return 0, err
	}
	logits, err := p.Model.Forward(EvalContext(p.Model.Device()), b)
	if err != nil {
		return 0, err
	}
	return activations.Logistic(logits[0]), nil
}
