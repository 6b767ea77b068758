// Package loss provides the binary classification loss and metric.
package loss

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoSentiment/internal/activations"
)

// ErrSizeMismatch is returned when predictions and targets differ in length.
var ErrSizeMismatch = errors.New("prediction and target must have same length")

// ErrEmpty is returned for an empty batch.
var ErrEmpty = errors.New("empty batch")

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) (float64, error)

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue []float64) ([]float64, error)
}

func checkSizes(name string, yPred, yTrue []float64) error {
	if len(yPred) != len(yTrue) {
		return fmt.Errorf("%s: %w (%d vs %d)", name, ErrSizeMismatch, len(yPred), len(yTrue))
	}
	if len(yPred) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	return nil
}

// BCEWithLogitsLoss combines a sigmoid with binary cross entropy, averaged over the batch.
type BCEWithLogitsLoss struct{}

// Forward computes BCE loss with sigmoid applied internally for stability.
func (b BCEWithLogitsLoss) Forward(yPred, yTrue []float64) (float64, error) {
	if err := checkSizes("BCEWithLogitsLoss", yPred, yTrue); err != nil {
		return 0, err
	}

	terms := make([]float64, len(yPred))
	for i, x := range yPred {
		// max(x, 0) - x*y + log(1 + exp(-|x|))
		terms[i] = math.Max(x, 0) - x*yTrue[i] + math.Log1p(math.Exp(-math.Abs(x)))
	}
	return floats.Sum(terms) / float64(len(terms)), nil
}

// Backward computes gradient for BCEWithLogitsLoss.
// Gradient is: (sigmoid(x) - y) / n
func (b BCEWithLogitsLoss) Backward(yPred, yTrue []float64) ([]float64, error) {
	if err := checkSizes("BCEWithLogitsLoss", yPred, yTrue); err != nil {
		return nil, err
	}

	n := float64(len(yPred))
	grad := make([]float64, len(yPred))
	for i, x := range yPred {
		grad[i] = (activations.Logistic(x) - yTrue[i]) / n
	}
	return grad, nil
}

// BinaryAccuracy returns the fraction of items whose rounded sigmoid equals
// the label, e.g. 8 correct out of 10 gives 0.8. Rounding is half-to-even,
// so a logit of exactly zero predicts the negative class.
func BinaryAccuracy(logits, labels []float64) (float64, error) {
	if err := checkSizes("BinaryAccuracy", logits, labels); err != nil {
		return 0, err
	}

	correct := 0
	for i, z := range logits {
		if math.RoundToEven(activations.Logistic(z)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(logits)), nil
}
