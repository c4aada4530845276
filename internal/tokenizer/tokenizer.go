// Package tokenizer wraps tiktoken encodings behind a small interface.
//
// Tokenization is an external collaborator of the model core: it produces
// the token IDs the embedding layer consumes, nothing more.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts between text and token IDs.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	VocabSize() int
}

const (
	// encodingR50kBase is the GPT-2 byte-pair encoding.
	encodingR50kBase = "r50k_base"
	// encodingP50kBase is the GPT-3/Codex encoding.
	encodingP50kBase = "p50k_base"
	// encodingCL100kBase is the GPT-4 / GPT-3.5-turbo encoding.
	encodingCL100kBase = "cl100k_base"
)

// TikToken wraps the pkoukk/tiktoken-go library.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a tokenizer for the named encoding, e.g.
// "r50k_base" (GPT-2), "p50k_base", or "cl100k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int, error) {
	return t.encoding.Encode(text, nil, nil), nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int) (string, error) {
	return t.encoding.Decode(tokens), nil
}

// VocabSize returns the vocabulary size of the encoding.
//
// tiktoken-go does not expose this directly, so known encodings are
// hard-coded.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case encodingR50kBase, encodingP50kBase:
		return 50257
	case encodingCL100kBase:
		return 100256
	default:
		return 100000
	}
}
