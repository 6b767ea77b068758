// Package checkpoint persists model parameters together with the metadata
// needed to rebuild the model that owns them.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrUnknownParameter is returned when a checkpoint names a parameter the
// receiving model does not have, or lacks one it does.
var ErrUnknownParameter = errors.New("checkpoint parameter mismatch")

// Architecture is the shape of the network a checkpoint was taken from.
type Architecture struct {
	VocabSize     int
	EmbeddingDim  int
	HiddenDim     int
	NLayers       int
	Bidirectional bool
	Dropout       float64
	PadIdx        int
}

// Checkpoint is a snapshot of every named parameter plus run metadata.
type Checkpoint struct {
	RunID        string
	Epoch        int
	ValidLoss    float64
	SavedAt      time.Time
	Architecture Architecture
	Params       map[string][]float64
}

// Encode writes c using gob encoding.
func (c *Checkpoint) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// Decode reads a checkpoint written by Encode.
func Decode(r io.Reader) (*Checkpoint, error) {
	var c Checkpoint
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &c, nil
}

// Save writes c to filename atomically: the data goes to a temporary file in
// the same directory which is then renamed over filename, so a crash never
// leaves a half-written checkpoint behind.
func Save(filename string, c *Checkpoint) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if err := c.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move checkpoint into place: %w", err)
	}
	return nil
}

// Load reads the checkpoint stored in filename.
func Load(filename string) (*Checkpoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Count returns the number of scalars stored in the checkpoint.
func (c *Checkpoint) Count() int {
	n := 0
	for _, p := range c.Params {
		n += len(p)
	}
	return n
}
