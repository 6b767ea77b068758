package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordTokenizer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "This film is terrible", []string{"This", "film", "is", "terrible"}},
		{"line breaks and clitic", "I didn't like it.<br /><br />Really!", []string{"I", "did", "n't", "like", "it", ".", "Really", "!"}},
		{"ellipsis stays together", "Wow...", []string{"Wow", "..."}},
		{"brackets", "(great)", []string{"(", "great", ")"}},
		{"quotes and comma", `"Hello,"`, []string{`"`, "Hello", ",", `"`}},
		{"typographic apostrophe", "John’s", []string{"John", "'s"}},
		{"bare clitic kept", "'s", []string{"'", "s"}},
		{"empty", "   ", nil},
	}

	var tok WordTokenizer
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Tokenize(tt.text))
		})
	}
}
