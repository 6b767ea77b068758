package data

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toyVectors = `good 0.1 0.2 0.3
bad -0.1 -0.2 -0.3
movie 1 0 0
good 9 9 9
`

func TestLoadVectors(t *testing.T) {
	vecs, err := LoadVectors(strings.NewReader(toyVectors), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, vecs.Dim)
	assert.Equal(t, 3, vecs.Len())

	// first occurrence wins
	good, ok := vecs.Lookup("good")
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, good)

	_, ok = vecs.Lookup("awful")
	assert.False(t, ok)
}

func TestLoadVectorsHeaderAndFilter(t *testing.T) {
	input := "3 2\nyes 1 2\nno 3 4\nmaybe 5 6\n"
	vecs, err := LoadVectors(strings.NewReader(input), func(tok string) bool { return tok != "no" })
	require.NoError(t, err)

	assert.Equal(t, 2, vecs.Dim)
	assert.Equal(t, 2, vecs.Len())
	_, ok := vecs.Lookup("no")
	assert.False(t, ok)
}

func TestLoadVectorsErrors(t *testing.T) {
	_, err := LoadVectors(strings.NewReader("a 1 2\nb 1\n"), nil)
	assert.Error(t, err)

	_, err = LoadVectors(strings.NewReader("a 1 x\n"), nil)
	assert.Error(t, err)

	_, err = LoadVectors(strings.NewReader("lonely\n"), nil)
	assert.Error(t, err)
}

func TestLoadVectorsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, os.WriteFile(path, []byte(toyVectors), 0o644))

	vecs, err := LoadVectorsFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, vecs.Len())

	_, err = LoadVectorsFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestEmbeddingMatrix(t *testing.T) {
	vocab, err := NewVocabulary([]string{UnkToken, PadToken, "good", "awful", "movie"}, UnkToken, PadToken)
	require.NoError(t, err)
	vecs, err := LoadVectors(strings.NewReader(toyVectors), vocab.Contains)
	require.NoError(t, err)

	weights, found, err := EmbeddingMatrix(vocab, vecs, 3, rand.NewPCG(1, 2))
	require.NoError(t, err)

	assert.Len(t, weights, 5*3)
	assert.Equal(t, 2, found)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, weights[6:9])
	assert.Equal(t, []float64{1, 0, 0}, weights[12:15])

	// same source, same random rows
	again, _, err := EmbeddingMatrix(vocab, vecs, 3, rand.NewPCG(1, 2))
	require.NoError(t, err)
	assert.Equal(t, weights, again)
	assert.NotEqual(t, []float64{0, 0, 0}, weights[9:12])
}

func TestEmbeddingMatrixDimMismatch(t *testing.T) {
	vocab := BuildVocabulary(toyExamples(), 0, 1)
	vecs, err := LoadVectors(strings.NewReader(toyVectors), nil)
	require.NoError(t, err)

	_, _, err = EmbeddingMatrix(vocab, vecs, 4, rand.NewPCG(1, 2))
	assert.Error(t, err)

	weights, found, err := EmbeddingMatrix(vocab, nil, 4, rand.NewPCG(1, 2))
	require.NoError(t, err)
	assert.Zero(t, found)
	assert.Len(t, weights, vocab.Len()*4)
}
