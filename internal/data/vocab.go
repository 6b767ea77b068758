package data

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sort"
)

// Special tokens reserved at the start of every built vocabulary.
const (
	UnkToken = "<unk>"
	PadToken = "<pad>"
)

// Vocabulary is an immutable bijection between tokens and indices.
type Vocabulary struct {
	itos []string
	stoi map[string]int
	unk  int
	pad  int
}

// vocabFile is the gob representation of a Vocabulary.
type vocabFile struct {
	Itos     []string
	UnkToken string
	PadToken string
}

// NewVocabulary builds a vocabulary whose index i is itos[i]. Both unkToken
// and padToken must appear in itos.
func NewVocabulary(itos []string, unkToken, padToken string) (*Vocabulary, error) {
	v := &Vocabulary{
		itos: make([]string, len(itos)),
		stoi: make(map[string]int, len(itos)),
	}
	copy(v.itos, itos)
	for i, tok := range itos {
		if _, dup := v.stoi[tok]; dup {
			return nil, fmt.Errorf("vocabulary: duplicate token %q", tok)
		}
		v.stoi[tok] = i
	}

	var ok bool
	if v.unk, ok = v.stoi[unkToken]; !ok {
		return nil, fmt.Errorf("vocabulary: unknown token %q missing", unkToken)
	}
	if v.pad, ok = v.stoi[padToken]; !ok {
		return nil, fmt.Errorf("vocabulary: padding token %q missing", padToken)
	}
	return v, nil
}

// BuildVocabulary counts tokens over examples and keeps the maxSize most
// frequent ones (ties broken alphabetically) with a count of at least minFreq,
// after the specials <unk> and <pad>. maxSize <= 0 keeps everything.
func BuildVocabulary(examples []Example, maxSize, minFreq int) *Vocabulary {
	freq := make(map[string]int)
	for _, ex := range examples {
		for _, tok := range ex.Tokens {
			freq[tok]++
		}
	}

	type wordCount struct {
		word  string
		count int
	}
	wc := make([]wordCount, 0, len(freq))
	for w, c := range freq {
		if w == UnkToken || w == PadToken || c < minFreq {
			continue
		}
		wc = append(wc, wordCount{w, c})
	}
	sort.Slice(wc, func(i, j int) bool {
		if wc[i].count != wc[j].count {
			return wc[i].count > wc[j].count
		}
		return wc[i].word < wc[j].word
	})
	if maxSize > 0 && len(wc) > maxSize {
		wc = wc[:maxSize]
	}

	itos := make([]string, 0, len(wc)+2)
	itos = append(itos, UnkToken, PadToken)
	for _, w := range wc {
		itos = append(itos, w.word)
	}

	v, _ := NewVocabulary(itos, UnkToken, PadToken)
	return v
}

// Len returns the number of entries, specials included.
func (v *Vocabulary) Len() int {
	return len(v.itos)
}

// Index returns the index of tok, or the unknown index.
func (v *Vocabulary) Index(tok string) int {
	if i, ok := v.stoi[tok]; ok {
		return i
	}
	return v.unk
}

// Contains reports whether tok has its own entry.
func (v *Vocabulary) Contains(tok string) bool {
	_, ok := v.stoi[tok]
	return ok
}

// Token returns the token at index i.
func (v *Vocabulary) Token(i int) string {
	return v.itos[i]
}

// Tokens returns a copy of the index-ordered token list.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.itos))
	copy(out, v.itos)
	return out
}

// UnkIndex returns the index unknown tokens map to.
func (v *Vocabulary) UnkIndex() int {
	return v.unk
}

// PadIndex returns the padding index.
func (v *Vocabulary) PadIndex() int {
	return v.pad
}

// Numericalize maps every token to its index.
func (v *Vocabulary) Numericalize(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		out[i] = v.Index(tok)
	}
	return out
}

// Encode writes the vocabulary using gob encoding.
func (v *Vocabulary) Encode(w io.Writer) error {
	f := vocabFile{Itos: v.itos, UnkToken: v.itos[v.unk], PadToken: v.itos[v.pad]}
	if err := gob.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	return nil
}

// DecodeVocabulary reads a vocabulary written by Encode.
func DecodeVocabulary(r io.Reader) (*Vocabulary, error) {
	var f vocabFile
	if err := gob.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return NewVocabulary(f.Itos, f.UnkToken, f.PadToken)
}

// Save writes the vocabulary to filename.
func (v *Vocabulary) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}
	if err := v.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadVocabulary reads a vocabulary from filename.
func LoadVocabulary(filename string) (*Vocabulary, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer file.Close()
	return DecodeVocabulary(file)
}
