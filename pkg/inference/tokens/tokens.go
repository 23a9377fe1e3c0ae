// Package tokens provides tokenizer-backed counting for prompt and
// response accounting.
package tokens

import (
	"github.com/pkg/errors"
	"github.com/weaviate/tiktoken-go"
)

// DefaultEncoding is the BPE used by current OpenAI chat models.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens using a fixed tiktoken encoding.
type Counter struct {
	codec *tiktoken.Tiktoken
}

// NewCounter initializes a counter for the given encoding. Pass an
// empty string for the default.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	codec, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load encoding %s", encoding)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.codec.Encode(text, nil, nil))
}

// CountAll sums the token counts of the given texts.
func (c *Counter) CountAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += c.Count(t)
	}
	return total
}
