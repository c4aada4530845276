package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTokenizer skips the test when the encoding's BPE data cannot be
// fetched (tiktoken-go downloads it on first use).
func newTestTokenizer(t *testing.T, encoding string) *TikToken {
	t.Helper()
	tok, err := NewTikToken(encoding)
	if err != nil {
		t.Skipf("encoding %q unavailable: %v", encoding, err)
	}
	return tok
}

func TestTikToken_Roundtrip(t *testing.T) {
	tok := newTestTokenizer(t, "r50k_base")

	text := "The quick brown fox jumps over the lazy dog."
	tokens, err := tok.Encode(text)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	decoded, err := tok.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestTikToken_TokensWithinVocab(t *testing.T) {
	tok := newTestTokenizer(t, "r50k_base")

	tokens, err := tok.Encode("hello world")
	require.NoError(t, err)
	for _, id := range tokens {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, tok.VocabSize())
	}
}

func TestTikToken_VocabSize(t *testing.T) {
	assert.Equal(t, 50257, (&TikToken{name: "r50k_base"}).VocabSize())
	assert.Equal(t, 100256, (&TikToken{name: "cl100k_base"}).VocabSize())
}

func TestNewTikToken_UnknownEncoding(t *testing.T) {
	_, err := NewTikToken("no_such_encoding")
	assert.Error(t, err)
}
