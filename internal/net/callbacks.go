package net

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/FlavioCFOliveira/GoSentiment/internal/checkpoint"
	"github.com/FlavioCFOliveira/GoSentiment/internal/metrics"
	"github.com/FlavioCFOliveira/GoSentiment/internal/opt"
)

// ErrNoCheckpoint is returned by Restore before any checkpoint was written.
var ErrNoCheckpoint = errors.New("no checkpoint has been saved")

// Callback hooks into Trainer.Fit. Returning an error aborts the run.
type Callback interface {
	OnTrainBegin(m *Model) error
	OnEpochEnd(stats EpochStats, m *Model) error
	OnTrainEnd(m *Model) error
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(*Model) error           { return nil }
func (BaseCallback) OnEpochEnd(EpochStats, *Model) error { return nil }
func (BaseCallback) OnTrainEnd(*Model) error             { return nil }

// SchedulerCallback steps a learning rate scheduler with the validation loss
// and logs every change of rate.
type SchedulerCallback struct {
	BaseCallback
	Scheduler opt.Scheduler
	Logger    *slog.Logger
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{Scheduler: scheduler, Logger: slog.Default()}
}

// OnEpochEnd implements Callback.
func (c *SchedulerCallback) OnEpochEnd(stats EpochStats, _ *Model) error {
	before := c.Scheduler.LR()
	c.Scheduler.Step(stats.Valid.Loss)
	if after := c.Scheduler.LR(); after != before {
		c.Logger.Info("learning rate changed", "epoch", stats.Epoch, "from", before, "to", after)
	}
	return nil
}

// ModelCheckpoint keeps the model with the lowest validation loss on disk.
// It starts with no checkpoint and a best loss of +Inf; only a strictly lower
// validation loss replaces the file, so there is at most one checkpoint and it
// always belongs to the best epoch seen so far.
type ModelCheckpoint struct {
	BaseCallback
	Filename string
	RunID    uuid.UUID
	Clock    clockwork.Clock
	Logger   *slog.Logger
	// OnSave, when set, is told about every write.
	OnSave func(epoch int, validLoss float64)

	bestLoss  float64
	bestEpoch int
	saved     bool
}

// NewModelCheckpoint creates a policy writing to filename.
func NewModelCheckpoint(filename string, runID uuid.UUID) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		RunID:    runID,
		Clock:    clockwork.NewRealClock(),
		Logger:   slog.Default(),
		bestLoss: math.Inf(1),
	}
}

// Observe applies the policy to one validation result and reports whether a
// checkpoint was written.
func (c *ModelCheckpoint) Observe(epoch int, validLoss float64, m *Model) (bool, error) {
	if !(validLoss < c.bestLoss) {
		return false, nil
	}

	snap := m.Snapshot()
	snap.RunID = c.RunID.String()
	snap.Epoch = epoch
	snap.ValidLoss = validLoss
	snap.SavedAt = c.Clock.Now()
	if err := checkpoint.Save(c.Filename, snap); err != nil {
		return false, err
	}

	c.bestLoss = validLoss
	c.bestEpoch = epoch
	c.saved = true
	c.Logger.Info("checkpoint saved", "file", c.Filename, "epoch", epoch, "valid_loss", validLoss)
	if c.OnSave != nil {
		c.OnSave(epoch, validLoss)
	}
	return true, nil
}

// OnEpochEnd implements Callback.
func (c *ModelCheckpoint) OnEpochEnd(stats EpochStats, m *Model) error {
	_, err := c.Observe(stats.Epoch, stats.Valid.Loss, m)
	return err
}

// BestLoss returns the lowest validation loss seen, +Inf before the first save.
func (c *ModelCheckpoint) BestLoss() float64 {
	return c.bestLoss
}

// BestEpoch returns the epoch of the saved checkpoint, 0 before the first save.
func (c *ModelCheckpoint) BestEpoch() int {
	return c.bestEpoch
}

// HasCheckpoint reports whether a checkpoint has been written.
func (c *ModelCheckpoint) HasCheckpoint() bool {
	return c.saved
}

// Restore loads the saved parameters back into m.
func (c *ModelCheckpoint) Restore(m *Model) error {
	if !c.saved {
		return ErrNoCheckpoint
	}
	snap, err := checkpoint.Load(c.Filename)
	if err != nil {
		return err
	}
	if got := ConfigFromArchitecture(snap.Architecture); got != m.Config() {
		return fmt.Errorf("%w: checkpoint architecture %+v, model %+v", checkpoint.ErrUnknownParameter, got, m.Config())
	}
	return m.LoadState(snap.Params)
}

// ConsoleLogger prints per-epoch timing and metrics.
type ConsoleLogger struct {
	BaseCallback
	Out io.Writer
}

// OnEpochEnd implements Callback.
func (c ConsoleLogger) OnEpochEnd(stats EpochStats, _ *Model) error {
	mins, secs := EpochTime(stats.Duration)
	_, err := fmt.Fprintf(c.Out,
		"Epoch: %02d | Epoch Time: %dm %ds\n\tTrain Loss: %.3f | Train Acc: %.2f%%\n\t Val. Loss: %.3f |  Val. Acc: %.2f%%\n",
		stats.Epoch, mins, secs,
		stats.Train.Loss, stats.Train.Accuracy*100,
		stats.Valid.Loss, stats.Valid.Accuracy*100,
	)
	return err
}

// MetricsCallback feeds epoch results into a metrics recorder.
type MetricsCallback struct {
	BaseCallback
	Recorder *metrics.Recorder
}

// OnTrainBegin implements Callback.
func (c MetricsCallback) OnTrainBegin(m *Model) error {
	c.Recorder.Parameters.Set(float64(m.CountParameters()))
	return nil
}

// OnEpochEnd implements Callback.
func (c MetricsCallback) OnEpochEnd(stats EpochStats, _ *Model) error {
	c.Recorder.ObserveSplit(metrics.SplitTrain, stats.Train.Loss, stats.Train.Accuracy)
	c.Recorder.ObserveSplit(metrics.SplitValid, stats.Valid.Loss, stats.Valid.Accuracy)
	c.Recorder.ObserveEpoch(stats.Duration)
	return nil
}
