package data

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// BatchProvider yields one pass (epoch) worth of batches.
type BatchProvider interface {
	// Batches returns the batches of the next pass.
	Batches() ([]Batch, error)
	// Len returns the number of batches per pass.
	Len() int
}

// bucketPoolFactor is how many batches worth of examples are sorted together
// when shuffling, trading padding waste against randomness.
const bucketPoolFactor = 100

// BucketIterator groups examples of similar length into batches to minimise
// padding. In shuffle mode (training) every pass reshuffles examples, sorts
// them by length within pools and shuffles the resulting batch order. Without
// shuffle (validation, test) the whole split is sorted once by length and the
// order never changes. Items inside a batch are always longest first.
type BucketIterator struct {
	seqs      [][]int
	labels    []float64
	padIdx    int
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewBucketIterator numericalizes examples with vocab. rng is only used when shuffle is set.
func NewBucketIterator(examples []Example, vocab *Vocabulary, batchSize int, shuffle bool, rng *rand.Rand) (*BucketIterator, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if shuffle && rng == nil {
		return nil, fmt.Errorf("shuffling iterator needs a random source")
	}

	it := &BucketIterator{
		seqs:      make([][]int, len(examples)),
		labels:    make([]float64, len(examples)),
		padIdx:    vocab.PadIndex(),
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
	}
	for i, ex := range examples {
		if len(ex.Tokens) == 0 {
			return nil, fmt.Errorf("example %d: %w", i, ErrEmptySequence)
		}
		it.seqs[i] = vocab.Numericalize(ex.Tokens)
		it.labels[i] = ex.Label
	}
	return it, nil
}

// Len implements BatchProvider.
func (it *BucketIterator) Len() int {
	return (len(it.seqs) + it.batchSize - 1) / it.batchSize
}

// Batches implements BatchProvider.
func (it *BucketIterator) Batches() ([]Batch, error) {
	order := make([]int, len(it.seqs))
	for i := range order {
		order[i] = i
	}

	var groups [][]int
	if it.shuffle {
		it.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		pool := it.batchSize * bucketPoolFactor
		for start := 0; start < len(order); start += pool {
			end := min(start+pool, len(order))
			chunk := order[start:end]
			it.sortByLength(chunk)
			groups = append(groups, it.chunk(chunk)...)
		}
		it.rng.Shuffle(len(groups), func(i, j int) {
			groups[i], groups[j] = groups[j], groups[i]
		})
	} else {
		it.sortByLength(order)
		groups = it.chunk(order)
	}

	batches := make([]Batch, len(groups))
	for i, g := range groups {
		seqs := make([][]int, len(g))
		labels := make([]float64, len(g))
		for j, idx := range g {
			seqs[j] = it.seqs[idx]
			labels[j] = it.labels[idx]
		}
		b, err := NewBatch(seqs, labels, it.padIdx)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		batches[i] = b
	}
	return batches, nil
}

func (it *BucketIterator) sortByLength(idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return len(it.seqs[idx[a]]) < len(it.seqs[idx[b]])
	})
}

func (it *BucketIterator) chunk(idx []int) [][]int {
	var out [][]int
	for start := 0; start < len(idx); start += it.batchSize {
		end := min(start+it.batchSize, len(idx))
		out = append(out, idx[start:end])
	}
	return out
}
