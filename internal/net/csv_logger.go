package net

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVLogger appends one row of epoch metrics per epoch to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

var csvHeader = []string{"epoch", "train_loss", "train_acc", "valid_loss", "valid_acc", "epoch_seconds"}

// OnTrainBegin implements Callback.
func (c *CSVLogger) OnTrainBegin(_ *Model) error {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}
	c.file = file
	c.writer = csv.NewWriter(file)

	// Header only for a fresh file
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}
	if info.Size() == 0 {
		return c.write(csvHeader)
	}
	return nil
}

// OnEpochEnd implements Callback.
func (c *CSVLogger) OnEpochEnd(stats EpochStats, _ *Model) error {
	if c.writer == nil {
		return fmt.Errorf("csv logger: not started")
	}
	return c.write([]string{
		strconv.Itoa(stats.Epoch),
		strconv.FormatFloat(stats.Train.Loss, 'f', 6, 64),
		strconv.FormatFloat(stats.Train.Accuracy, 'f', 6, 64),
		strconv.FormatFloat(stats.Valid.Loss, 'f', 6, 64),
		strconv.FormatFloat(stats.Valid.Accuracy, 'f', 6, 64),
		strconv.FormatFloat(stats.Duration.Seconds(), 'f', 2, 64),
	})
}

// OnTrainEnd implements Callback.
func (c *CSVLogger) OnTrainEnd(_ *Model) error {
	if c.file == nil {
		return nil
	}
	c.writer.Flush()
	err := c.writer.Error()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file = nil
	c.writer = nil
	return err
}

func (c *CSVLogger) write(record []string) error {
	if err := c.writer.Write(record); err != nil {
		return fmt.Errorf("csv logger: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}
