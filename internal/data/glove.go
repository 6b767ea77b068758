package data

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Vectors is a table of pretrained word vectors such as GloVe.
type Vectors struct {
	Dim   int
	table map[string][]float64
}

// Lookup returns the vector of tok.
func (v *Vectors) Lookup(tok string) ([]float64, bool) {
	vec, ok := v.table[tok]
	return vec, ok
}

// Len returns the number of stored vectors.
func (v *Vectors) Len() int {
	return len(v.table)
}

// LoadVectors parses the whitespace-separated text format "token v1 ... vd",
// one vector per line. A word2vec style "count dim" header line is skipped.
// When keep is non-nil only tokens it accepts are stored, which keeps memory
// proportional to the vocabulary instead of the whole file.
func LoadVectors(r io.Reader, keep func(string) bool) (*Vectors, error) {
	vecs := &Vectors{table: make(map[string][]float64)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("vectors line %d: no values", lineNo)
		}

		dim := len(fields) - 1
		if vecs.Dim == 0 {
			vecs.Dim = dim
		} else if dim != vecs.Dim {
			return nil, fmt.Errorf("vectors line %d: got %d values, want %d", lineNo, dim, vecs.Dim)
		}

		tok := fields[0]
		if keep != nil && !keep(tok) {
			continue
		}
		if _, seen := vecs.table[tok]; seen {
			continue
		}
		vec := make([]float64, dim)
		for i, f := range fields[1:] {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("vectors line %d: %w", lineNo, err)
			}
			vec[i] = x
		}
		vecs.table[tok] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}
	return vecs, nil
}

// LoadVectorsFile opens filename and calls LoadVectors.
func LoadVectorsFile(filename string, keep func(string) bool) (*Vectors, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open vectors file: %w", err)
	}
	defer file.Close()
	return LoadVectors(file, keep)
}

// EmbeddingMatrix builds a row-major [vocab.Len(), dim] matrix: rows of tokens
// found in vecs take the pretrained vector, all others are drawn from N(0, 1).
// It returns the matrix and the number of rows that were found.
func EmbeddingMatrix(vocab *Vocabulary, vecs *Vectors, dim int, src rand.Source) ([]float64, int, error) {
	if vecs != nil && vecs.Len() > 0 && vecs.Dim != dim {
		return nil, 0, fmt.Errorf("vectors have %d dimensions, model expects %d", vecs.Dim, dim)
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	weights := make([]float64, vocab.Len()*dim)
	found := 0
	for i := 0; i < vocab.Len(); i++ {
		row := weights[i*dim : (i+1)*dim]
		if vecs != nil {
			if vec, ok := vecs.Lookup(vocab.Token(i)); ok {
				copy(row, vec)
				found++
				continue
			}
		}
		for j := range row {
			row[j] = normal.Rand()
		}
	}
	return weights, found, nil
}
