package checkpoint

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Checkpoint {
	return &Checkpoint{
		RunID:     uuid.NewString(),
		Epoch:     3,
		ValidLoss: 0.3047,
		SavedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Architecture: Architecture{
			VocabSize:     4,
			EmbeddingDim:  2,
			HiddenDim:     3,
			NLayers:       2,
			Bidirectional: true,
			Dropout:       0.5,
			PadIdx:        1,
		},
		Params: map[string][]float64{
			"embedding.weight": {0, 0, 1, 2, 3, 4, 5, 6},
			"fc.bias":          {-0.25},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	c := sample()

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, c.RunID, got.RunID)
	assert.Equal(t, c.Epoch, got.Epoch)
	assert.Equal(t, c.ValidLoss, got.ValidLoss)
	assert.True(t, c.SavedAt.Equal(got.SavedAt))
	assert.Equal(t, c.Architecture, got.Architecture)
	assert.Equal(t, c.Params, got.Params)
	assert.Equal(t, 9, got.Count())
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")

	first := sample()
	require.NoError(t, Save(path, first))

	second := sample()
	second.Epoch = 4
	second.ValidLoss = 0.2
	require.NoError(t, Save(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Epoch)
	assert.Equal(t, 0.2, got.ValidLoss)

	// no temporary files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.gob", entries[0].Name())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "nope", "model.gob"), sample())
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("not a checkpoint"))
	assert.Error(t, err)
}
