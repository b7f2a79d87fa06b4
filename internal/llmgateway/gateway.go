// Package llmgateway is the single point of contact with language model
// providers: text generation and embeddings, each provider-agnostic behind
// one Gateway.
package llmgateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/docwarden/docwarden/internal/config"
	"github.com/docwarden/docwarden/internal/docmodel"
)

// Gateway is the narrow surface every other component depends on. Callers
// never touch llms.Model or embeddings.Embedder directly, so a provider
// change never ripples past this package.
type Gateway interface {
	GenerateText(ctx context.Context, prompt string) (string, docmodel.Usage, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Tokenizer() Tokenizer
}

// Tokenizer counts tokens the way the configured generator model does,
// threaded into the Text Chunker and the Doc Generator's trim step so both
// agree on what "28,000 tokens" means.
type Tokenizer interface {
	Count(text string) int
}

type gateway struct {
	cfg          *config.Config
	generatorLLM llms.Model
	embedder     embeddings.Embedder
	tokenizer    Tokenizer
	logger       *slog.Logger
}

// New builds a Gateway by selecting concrete provider clients from cfg.AI,
// the same provider-switch shape the composition root used for a single
// review pipeline, generalized to serve every component that needs an LLM.
func New(ctx context.Context, cfg *config.Config, tokenizer Tokenizer, logger *slog.Logger) (Gateway, error) {
	generatorLLM, err := createGeneratorLLM(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := createEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if tokenizer == nil {
		tokenizer = NewAdapterTokenizer(generatorLLM)
	}
	return &gateway{cfg: cfg, generatorLLM: generatorLLM, embedder: embedder, tokenizer: tokenizer, logger: logger}, nil
}

func (g *gateway) Tokenizer() Tokenizer { return g.tokenizer }

func (g *gateway) GenerateText(ctx context.Context, prompt string) (string, docmodel.Usage, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.generatorLLM, prompt)
	if err != nil {
		return "", docmodel.Usage{}, fmt.Errorf("%w: %w", docmodel.ErrUpstreamIO, err)
	}
	if text == "" {
		return "", docmodel.Usage{}, docmodel.ErrMarkdownEmpty
	}
	usage := docmodel.Usage{
		PromptTokens:     g.tokenizer.Count(prompt),
		CompletionTokens: g.tokenizer.Count(text),
	}
	return text, usage, nil
}

func (g *gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", docmodel.ErrUpstreamIO, err)
	}
	return vectors, nil
}

func createGeneratorLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	model, err := createLLM(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator llm: %w", err)
	}
	return model, nil
}

func createLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.AI.LLMProvider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("ai.gemini_api_key is not set for gemini provider")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.AI.GeneratorModel),
			gemini.WithAPIKey(cfg.AI.GeminiAPIKey),
		)
	case "ollama":
		return ollama.New(
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.AI.GeneratorModel),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.AI.LLMProvider)
	}
}

func createEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	var embedderLLM embeddings.Embedder
	var err error

	switch cfg.AI.EmbedderProvider {
	case "gemini":
		embedderLLM, err = gemini.New(ctx,
			gemini.WithEmbeddingModel(cfg.AI.EmbedderModel),
			gemini.WithAPIKey(cfg.AI.GeminiAPIKey),
		)
	case "ollama":
		embedderLLM, err = ollama.New(
			ollama.WithServerURL(cfg.AI.OllamaHost),
			ollama.WithModel(cfg.AI.EmbedderModel),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.AI.EmbedderProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.AI.EmbedderProvider, err)
	}

	embedder, err := embeddings.NewEmbedder(embedderLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// newOllamaHTTPClient creates an HTTP client with longer timeouts for Ollama
// requests, which can take a while to process on unaccelerated hardware.
func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Minute}
}

// contentHash returns the hex SHA-256 of s, a stable key for caching a
// generation keyed on its prompt. Nothing in the repository calls it.
func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
