package llmgateway

import (
	"log/slog"

	"github.com/sugarme/tokenizer"
)

// SugarmeTokenizer counts tokens with a real tokenizer model instead of the
// model-provider's own (often rate-limited or network-bound) counting
// endpoint, letting the Text Chunker and the Doc Generator's trim step run
// offline and deterministically.
type SugarmeTokenizer struct {
	tk     *tokenizer.Tokenizer
	logger *slog.Logger
}

func NewSugarmeTokenizer(tk *tokenizer.Tokenizer, logger *slog.Logger) *SugarmeTokenizer {
	return &SugarmeTokenizer{tk: tk, logger: logger}
}

func (s *SugarmeTokenizer) Count(text string) int {
	if s.tk == nil {
		return estimateTokens(text)
	}
	encoding, err := s.tk.EncodeSingle(text, true)
	if err != nil {
		s.logger.Warn("tokenizer encode failed, falling back to estimate", "error", err)
		return estimateTokens(text)
	}
	return len(encoding.Ids)
}
