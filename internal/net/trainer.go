package net

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/FlavioCFOliveira/GoSentiment/internal/data"
	"github.com/FlavioCFOliveira/GoSentiment/internal/loss"
	"github.com/FlavioCFOliveira/GoSentiment/internal/opt"
)

// ErrNoBatches is returned when a provider yields nothing to train or evaluate on.
var ErrNoBatches = errors.New("batch provider is empty")

// Result is the mean loss and mean accuracy over the batches of one pass.
type Result struct {
	Loss     float64
	Accuracy float64
}

// EpochStats is what callbacks see at the end of every epoch.
type EpochStats struct {
	Epoch    int // 1-based
	Train    Result
	Valid    Result
	Duration time.Duration
}

// Trainer runs the training, evaluation and epoch loops of a Model.
type Trainer struct {
	Model     *Model
	Optimizer opt.Optimizer
	Loss      loss.Loss
	Rand      *rand.Rand
	// GradClip bounds the global gradient norm; 0 disables clipping.
	GradClip float64
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// NewTrainer returns a trainer using BCE-with-logits loss and the wall clock.
// rng drives dropout.
func NewTrainer(model *Model, optimizer opt.Optimizer, rng *rand.Rand) *Trainer {
	return &Trainer{
		Model:     model,
		Optimizer: optimizer,
		Loss:      loss.BCEWithLogitsLoss{},
		Rand:      rng,
		Clock:     clockwork.NewRealClock(),
		Logger:    slog.Default(),
	}
}

// Train runs one pass over it, stepping the optimizer after every batch.
// Each batch contributes its mean loss and accuracy with equal weight.
func (t *Trainer) Train(ctx context.Context, it data.BatchProvider) (Result, error) {
	batches, err := it.Batches()
	if err != nil {
		return Result{}, err
	}
	if len(batches) == 0 {
		return Result{}, ErrNoBatches
	}

	params := t.Model.Parameters()
	grads := make([][]float64, len(params))
	for i, p := range params {
		grads[i] = p.Grad
	}
	exec := TrainContext(t.Model.Device(), t.Rand)

	var sum Result
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		t.Model.ZeroGrad()
		logits, tr, err := t.Model.forward(exec, b)
		if err != nil {
			return Result{}, fmt.Errorf("train batch %d: %w", i, err)
		}
		r, err := scoreWith(t.Loss, logits, b.Labels)
		if err != nil {
			return Result{}, fmt.Errorf("train batch %d: %w", i, err)
		}
		dLogits, err := t.Loss.Backward(logits, b.Labels)
		if err != nil {
			return Result{}, fmt.Errorf("train batch %d: %w", i, err)
		}
		t.Model.backward(tr, dLogits)

		if t.GradClip > 0 {
			norm := opt.ClipGradNorm(grads, t.GradClip)
			t.Logger.Debug("clipped gradients", "batch", i, "norm", norm)
		}
		for slot, p := range params {
			t.Optimizer.StepInPlace(slot, p.Value, p.Grad)
		}

		sum.Loss += r.Loss
		sum.Accuracy += r.Accuracy
	}

	n := float64(len(batches))
	return Result{Loss: sum.Loss / n, Accuracy: sum.Accuracy / n}, nil
}

// Evaluate runs one pass over it without dropout and without touching
// parameters or gradients.
func (t *Trainer) Evaluate(ctx context.Context, it data.BatchProvider) (Result, error) {
	return Evaluate(ctx, t.Model, t.Loss, it)
}

// Evaluate computes the mean loss and accuracy of m over it in inference mode.
func Evaluate(ctx context.Context, m *Model, lossFn loss.Loss, it data.BatchProvider) (Result, error) {
	batches, err := it.Batches()
	if err != nil {
		return Result{}, err
	}
	if len(batches) == 0 {
		return Result{}, ErrNoBatches
	}

	exec := EvalContext(m.Device())
	var sum Result
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		logits, err := m.Forward(exec, b)
		if err != nil {
			return Result{}, fmt.Errorf("eval batch %d: %w", i, err)
		}
		r, err := scoreWith(lossFn, logits, b.Labels)
		if err != nil {
			return Result{}, fmt.Errorf("eval batch %d: %w", i, err)
		}
		sum.Loss += r.Loss
		sum.Accuracy += r.Accuracy
	}

	n := float64(len(batches))
	return Result{Loss: sum.Loss / n, Accuracy: sum.Accuracy / n}, nil
}

func scoreWith(lossFn loss.Loss, logits, labels []float64) (Result, error) {
	l, err := lossFn.Forward(logits, labels)
	if err != nil {
		return Result{}, err
	}
	acc, err := loss.BinaryAccuracy(logits, labels)
	if err != nil {
		return Result{}, err
	}
	return Result{Loss: l, Accuracy: acc}, nil
}

// Fit trains for epochs passes over train, validating on valid after each one
// and handing the numbers to every callback in order. A callback error stops
// the run. Every callback whose OnTrainBegin was called also gets OnTrainEnd,
// whether the run completes or not; its errors are joined to the result.
func (t *Trainer) Fit(ctx context.Context, train, valid data.BatchProvider, epochs int, callbacks ...Callback) (history []EpochStats, err error) {
	started := 0
	defer func() {
		for _, cb := range callbacks[:started] {
			if endErr := cb.OnTrainEnd(t.Model); endErr != nil {
				err = errors.Join(err, endErr)
			}
		}
	}()

	for i, cb := range callbacks {
		started = i + 1
		if err := cb.OnTrainBegin(t.Model); err != nil {
			return nil, err
		}
	}

	history = make([]EpochStats, 0, epochs)
	for epoch := 1; epoch <= epochs; epoch++ {
		start := t.Clock.Now()

		trainRes, err := t.Train(ctx, train)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		validRes, err := t.Evaluate(ctx, valid)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		stats := EpochStats{
			Epoch:    epoch,
			Train:    trainRes,
			Valid:    validRes,
			Duration: t.Clock.Since(start),
		}
		history = append(history, stats)
		t.Logger.Debug("epoch finished",
			"epoch", epoch,
			"train_loss", trainRes.Loss,
			"valid_loss", validRes.Loss,
			"duration", stats.Duration,
		)

		for _, cb := range callbacks {
			if err := cb.OnEpochEnd(stats, t.Model); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

// EpochTime splits an elapsed duration into whole minutes and remaining whole seconds.
func EpochTime(d time.Duration) (mins, secs int) {
	total := int(d / time.Second)
	return total / 60, total % 60
}
