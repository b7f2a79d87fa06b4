package llmgateway

import (
	"context"

	"github.com/sevigo/goframe/llms"
)

// AdapterTokenizer counts tokens through the generator model itself when the
// provider exposes a tokenizer, falling back to a coarse character-based
// estimate otherwise. This mirrors the reference OllamaTokenizerAdapter's
// fallback shape but is provider-agnostic.
type AdapterTokenizer struct {
	model llms.Model
}

func NewAdapterTokenizer(model llms.Model) *AdapterTokenizer {
	return &AdapterTokenizer{model: model}
}

func (a *AdapterTokenizer) Count(text string) int {
	if t, ok := a.model.(llms.Tokenizer); ok {
		if n, err := t.CountTokens(context.Background(), text); err == nil {
			return n
		}
	}
	return estimateTokens(text)
}

func estimateTokens(text string) int {
	return len(text) / 3
}
