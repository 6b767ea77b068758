// Package data turns labelled movie reviews into padded, length-sorted batches
// of token indices.
package data

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptySequence is returned for a batch item with no real tokens.
	ErrEmptySequence = errors.New("sequence has zero length")
	// ErrUnsortedLengths is returned when lengths are not in descending order.
	ErrUnsortedLengths = errors.New("lengths must be sorted in descending order")
	// ErrLengthOverflow is returned when a length exceeds the padded width.
	ErrLengthOverflow = errors.New("length exceeds sequence dimension")
	// ErrShapeMismatch is returned when tokens, lengths and labels disagree on batch size.
	ErrShapeMismatch = errors.New("batch shape mismatch")
)

// Batch is a padded block of token indices ready for the model.
type Batch struct {
	// Tokens is shaped [seqLen][batchSize]: Tokens[t][i] is position t of item i.
	Tokens [][]int
	// Lengths holds the unpadded length of every item, longest first.
	Lengths []int
	// Labels holds 0 (negative) or 1 (positive) for every item.
	Labels []float64
}

// Size returns the number of items in the batch.
func (b Batch) Size() int {
	return len(b.Lengths)
}

// SeqLen returns the padded sequence dimension.
func (b Batch) SeqLen() int {
	return len(b.Tokens)
}

// Column returns the real (unpadded) token indices of item i.
func (b Batch) Column(i int) []int {
	col := make([]int, b.Lengths[i])
	for t := range col {
		col[t] = b.Tokens[t][i]
	}
	return col
}

// Validate checks the batch invariants the model relies on.
func (b Batch) Validate() error {
	n := len(b.Lengths)
	if n == 0 {
		return fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	if len(b.Labels) != n {
		return fmt.Errorf("%w: %d lengths, %d labels", ErrShapeMismatch, n, len(b.Labels))
	}
	for t, row := range b.Tokens {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d items, want %d", ErrShapeMismatch, t, len(row), n)
		}
	}
	for i, l := range b.Lengths {
		if l < 1 {
			return fmt.Errorf("item %d: %w", i, ErrEmptySequence)
		}
		if l > len(b.Tokens) {
			return fmt.Errorf("item %d: %w (%d > %d)", i, ErrLengthOverflow, l, len(b.Tokens))
		}
		if i > 0 && l > b.Lengths[i-1] {
			return fmt.Errorf("item %d: %w", i, ErrUnsortedLengths)
		}
	}
	return nil
}

// NewBatch pads seqs with padIdx to the longest sequence and sorts items by
// length, longest first, keeping labels aligned.
func NewBatch(seqs [][]int, labels []float64, padIdx int) (Batch, error) {
	if len(seqs) != len(labels) {
		return Batch{}, fmt.Errorf("%w: %d sequences, %d labels", ErrShapeMismatch, len(seqs), len(labels))
	}

	order := make([]int, len(seqs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(seqs[order[a]]) > len(seqs[order[b]])
	})

	maxLen := 0
	if len(order) > 0 {
		maxLen = len(seqs[order[0]])
	}

	b := Batch{
		Tokens:  make([][]int, maxLen),
		Lengths: make([]int, len(seqs)),
		Labels:  make([]float64, len(seqs)),
	}
	for t := range b.Tokens {
		row := make([]int, len(seqs))
		for i, src := range order {
			if t < len(seqs[src]) {
				row[i] = seqs[src][t]
			} else {
				row[i] = padIdx
			}
		}
		b.Tokens[t] = row
	}
	for i, src := range order {
		b.Lengths[i] = len(seqs[src])
		b.Labels[i] = labels[src]
	}

	return b, b.Validate()
}
