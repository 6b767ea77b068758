package data

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// Label values of the two sentiment classes.
const (
	LabelNeg = 0.0
	LabelPos = 1.0
)

// Example is one tokenized review and its label.
type Example struct {
	Tokens []string
	Label  float64
}

// LoadOptions controls how much of the corpus is read.
type LoadOptions struct {
	// MaxPerClass caps the number of reviews read per class and split; 0 reads all.
	MaxPerClass int
	// MaxTokens truncates every review to its first MaxTokens tokens; 0 keeps all.
	MaxTokens int
}

// LoadIMDB reads the Large Movie Review Dataset from dir, which must contain
// train/{pos,neg} and test/{pos,neg} directories of .txt reviews.
func LoadIMDB(dir string, tok Tokenizer, opts LoadOptions) (train, test []Example, err error) {
	train, err = loadSplit(filepath.Join(dir, "train"), tok, opts)
	if err != nil {
		return nil, nil, err
	}
	test, err = loadSplit(filepath.Join(dir, "test"), tok, opts)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func loadSplit(dir string, tok Tokenizer, opts LoadOptions) ([]Example, error) {
	var examples []Example
	for _, class := range []struct {
		name  string
		label float64
	}{{"neg", LabelNeg}, {"pos", LabelPos}} {
		classDir := filepath.Join(dir, class.name)
		entries, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", classDir, err)
		}

		n := 0
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			if opts.MaxPerClass > 0 && n >= opts.MaxPerClass {
				break
			}
			raw, err := os.ReadFile(filepath.Join(classDir, entry.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read review: %w", err)
			}
			tokens := tok.Tokenize(string(raw))
			if len(tokens) == 0 {
				continue
			}
			if opts.MaxTokens > 0 && len(tokens) > opts.MaxTokens {
				tokens = tokens[:opts.MaxTokens]
			}
			examples = append(examples, Example{Tokens: tokens, Label: class.label})
			n++
		}
	}
	return examples, nil
}

// SplitExamples shuffles a copy of examples with rng and returns the first
// ratio share as the first split and the rest as the second.
func SplitExamples(examples []Example, ratio float64, rng *rand.Rand) ([]Example, []Example) {
	shuffled := make([]Example, len(examples))
	copy(shuffled, examples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled))*ratio + 0.5)
	if cut > len(shuffled) {
		cut = len(shuffled)
	}
	return shuffled[:cut], shuffled[cut:]
}
