// Package agent implements semantic search over a repository's generated
// documentation and the bounded ReAct chat loop built on top of it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/promptlib"
	"github.com/docwarden/docwarden/internal/vectorindex"
)

// ErrWrongFormat and ErrInvalidAction mark a model response that did not
// follow the Thought/Action contract; both send the chat loop to its
// fallback path rather than failing the request.
var (
	ErrWrongFormat  = errors.New("agent response missing Thought or Action step")
	ErrInvalidAction = errors.New("agent action is neither Search nor Finish")
)

// SearchHit is one document surfaced by a semantic search, trimmed to the
// fields a chat response or an API caller needs.
type SearchHit struct {
	DocID   string
	Content string
	Score   float32
}

// Step records one iteration of the chat loop, kept for callers that want
// to show their work (e.g. a debug view of the agent's reasoning).
type Step struct {
	Thought string
	Action  string
	Input   string
	Result  string
}

// ChatResult is the outcome of one Chat call.
type ChatResult struct {
	Answer   string
	Steps    []Step
	Fallback bool
}

const maxStepsDefault = 4

// Agent answers repository questions by combining semantic search over
// generated documentation with a bounded Thought/Action reasoning loop.
type Agent struct {
	gateway   llmgateway.Gateway
	index     vectorindex.Index
	prompts   *promptlib.Library
	logger    *slog.Logger
	maxSteps  int
	scoreFloor float64
}

func New(gateway llmgateway.Gateway, index vectorindex.Index, prompts *promptlib.Library, logger *slog.Logger, maxSteps int, scoreFloor float64) *Agent {
	if maxSteps <= 0 {
		maxSteps = maxStepsDefault
	}
	return &Agent{gateway: gateway, index: index, prompts: prompts, logger: logger, maxSteps: maxSteps, scoreFloor: scoreFloor}
}

// Search performs a semantic search of a single repository's documentation,
// embedding the query and scoping the vector lookup to the repository's
// namespace.
func (a *Agent) Search(ctx context.Context, repoID, query string, topK int) ([]SearchHit, error) {
	vectors, err := a.gateway.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed search query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, docmodel.ErrEmptyInput
	}
	results, err := a.index.Search(ctx, repoID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search namespace %s: %w", repoID, err)
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{DocID: r.DocID, Content: r.ChunkText, Score: r.Score})
	}
	return hits, nil
}

// search is the chat loop's own relevance-filtered, deduplicated search
// summary, distinct from the public Search above: it folds results down to
// one string suitable for insertion into chat history.
func (a *Agent) search(ctx context.Context, repoID, query string, topK int) (string, error) {
	hits, err := a.Search(ctx, repoID, query, topK)
	if err != nil {
		return "", err
	}

	relevant := make([]SearchHit, 0, len(hits))
	seen := make(map[string]bool)
	for _, h := range hits {
		if h.Score <= float32(a.scoreFloor) {
			continue
		}
		if seen[h.DocID] {
			continue
		}
		seen[h.DocID] = true
		relevant = append(relevant, h)
	}

	if len(relevant) == 0 {
		return "There are 0 relevant document(s).", nil
	}

	var summary, content strings.Builder
	for i, h := range relevant {
		fmt.Fprintf(&summary, "%d. %s\n", i+1, h.DocID)
		content.WriteString(h.Content)
		content.WriteString("\n")
	}

	return fmt.Sprintf("There are %d relevant document(s).\n%s\n%s", len(relevant), summary.String(), content.String()), nil
}

// Chat runs the bounded Thought/Action reasoning loop against a query,
// falling back to a single direct-answer completion over raw search
// results if the loop exhausts its steps or the model breaks format.
func (a *Agent) Chat(ctx context.Context, repoID, query string, topK int) (ChatResult, error) {
	sysPrompt, err := a.prompts.Render(promptlib.ChatThoughtPrompt, promptlib.DefaultProvider, nil)
	if err != nil {
		return ChatResult{}, fmt.Errorf("failed to render chat system prompt: %w", err)
	}

	history := sysPrompt + "\n\nQuestion: " + query + "\n"
	var steps []Step
	searched := false

	for i := 0; i < a.maxSteps; i++ {
		output, _, err := a.gateway.GenerateText(ctx, history)
		if err != nil {
			a.logger.Warn("chat loop generation failed, falling back", "error", err)
			return a.fallback(ctx, repoID, query, topK)
		}

		thought, actionLine, err := parseStep(output)
		if err != nil {
			a.logger.Warn("chat loop produced malformed step, falling back", "error", err)
			return a.fallback(ctx, repoID, query, topK)
		}

		actionType, actionInput, err := extractAction(actionLine)
		if err != nil {
			a.logger.Warn("chat loop produced invalid action, falling back", "error", err)
			return a.fallback(ctx, repoID, query, topK)
		}

		step := Step{Thought: thought, Action: actionType, Input: actionInput}

		switch actionType {
		case "Finish":
			step.Result = actionInput
			steps = append(steps, step)
			return ChatResult{Answer: actionInput, Steps: steps}, nil
		case "Search":
			if searched {
				a.logger.Warn("chat loop issued a second search, falling back")
				return a.fallback(ctx, repoID, query, topK)
			}
			searched = true
			result, err := a.search(ctx, repoID, actionInput, topK)
			if err != nil {
				a.logger.Warn("chat loop search failed, falling back", "error", err)
				return a.fallback(ctx, repoID, query, topK)
			}
			step.Result = result
			steps = append(steps, step)
			history += output + "\nObservation: " + result + "\n"
		default:
			return a.fallback(ctx, repoID, query, topK)
		}
	}

	a.logger.Warn("chat loop exhausted max steps, falling back")
	return a.fallback(ctx, repoID, query, topK)
}

// fallback answers directly from raw search results with a different system
// prompt, used whenever the reasoning loop breaks format or runs out of
// steps rather than surfacing an error to the user.
func (a *Agent) fallback(ctx context.Context, repoID, query string, topK int) (ChatResult, error) {
	sysPrompt, err := a.prompts.Render(promptlib.ChatFallbackPrompt, promptlib.DefaultProvider, nil)
	if err != nil {
		return ChatResult{}, fmt.Errorf("failed to render fallback system prompt: %w", err)
	}

	results, err := a.search(ctx, repoID, query, topK)
	if err != nil {
		return ChatResult{}, fmt.Errorf("fallback search failed: %w", err)
	}

	prompt := fmt.Sprintf("%s\n\nQuestion: %s\n\nSearch results:\n%s", sysPrompt, query, results)
	answer, _, err := a.gateway.GenerateText(ctx, prompt)
	if err != nil {
		return ChatResult{}, fmt.Errorf("fallback generation failed: %w", err)
	}

	return ChatResult{Answer: answer, Fallback: true}, nil
}

// parseStep locates the Thought and Action sections of a raw model
// response by substring search, matching the original agent's tolerant,
// non-regex parsing rather than demanding an exact line format.
func parseStep(output string) (thought, action string, err error) {
	thoughtIdx := strings.Index(output, "Thought")
	actionIdx := strings.Index(output, "Action")
	if thoughtIdx == -1 || actionIdx == -1 || actionIdx < thoughtIdx+len("Thought") {
		return "", "", ErrWrongFormat
	}
	thought = extractStep(output[thoughtIdx+len("Thought") : actionIdx])
	action = extractStep(output[actionIdx+len("Action"):])
	return thought, action, nil
}

// extractStep trims the leading colon and surrounding whitespace/quotes a
// raw Thought or Action segment carries after the keyword is sliced off.
func extractStep(raw string) string {
	s := strings.TrimLeft(raw, ":")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "'\"")
	return s
}

// extractAction splits a raw Action segment like `Search["query"]` into its
// action type and bracketed argument.
func extractAction(action string) (actionType, input string, err error) {
	switch {
	case strings.HasPrefix(action, "Search"):
		actionType = "Search"
		input = strings.TrimPrefix(action, "Search")
	case strings.HasPrefix(action, "Finish"):
		actionType = "Finish"
		input = strings.TrimPrefix(action, "Finish")
	default:
		return "", "", ErrInvalidAction
	}
	input = strings.Trim(input, " []\"'")
	return actionType, input, nil
}
