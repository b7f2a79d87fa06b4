package agent

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/promptlib"
	"github.com/docwarden/docwarden/internal/vectorindex"
)

// scriptedGateway returns one GenerateText output per call, in order, and
// answers Embed with a single zero vector regardless of input.
type scriptedGateway struct {
	outputs []string
	calls   int
}

func (g *scriptedGateway) GenerateText(context.Context, string) (string, docmodel.Usage, error) {
	out := g.outputs[g.calls]
	g.calls++
	return out, docmodel.Usage{}, nil
}
func (g *scriptedGateway) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0}
	}
	return vectors, nil
}
func (g *scriptedGateway) Tokenizer() llmgateway.Tokenizer { return tokenizerStub{} }

type tokenizerStub struct{}

func (tokenizerStub) Count(text string) int { return len(text) }

type fakeIndex struct{}

func (fakeIndex) EnsureCollection(context.Context, uint64) error                    { return nil }
func (fakeIndex) Upsert(context.Context, string, []docmodel.ChunkRecord, int) error { return nil }
func (fakeIndex) Search(context.Context, string, []float32, int) ([]vectorindex.SearchResult, error) {
	return []vectorindex.SearchResult{{DocID: "doc-1", ChunkText: "relevant content", Score: 0.9}}, nil
}
func (fakeIndex) DeleteByDocID(context.Context, string, string) error { return nil }
func (fakeIndex) DeleteNamespace(context.Context, string) error       { return nil }
func (fakeIndex) HasNamespace(context.Context, string) (bool, error)  { return true, nil }

func TestChat_IgnoresSecondSearchAndFallsBack(t *testing.T) {
	prompts, err := promptlib.New()
	require.NoError(t, err)

	gateway := &scriptedGateway{outputs: []string{
		`Thought: "I should search" Action: Search["installation"]`,
		`Thought: "I should search again" Action: Search["setup"]`,
		`the final answer`,
	}}
	a := New(gateway, fakeIndex{}, prompts, slog.Default(), 4, 0.5)

	result, err := a.Chat(context.Background(), "repo-1", "how do I install this?", 3)
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, "the final answer", result.Answer)
	assert.Equal(t, 3, gateway.calls)
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantThought string
		wantAction  string
		wantErr     bool
	}{
		{
			name:        "well formed step",
			output:      `Thought: "I should search for this" Action: Search["installation flow"]`,
			wantThought: "I should search for this",
			wantAction:  `Search["installation flow"]`,
		},
		{
			name:        "finish step",
			output:      `Thought: "I have enough context" Action: Finish["The answer is 42"]`,
			wantThought: "I have enough context",
			wantAction:  `Finish["The answer is 42"]`,
		},
		{
			name:    "missing thought keyword",
			output:  `Action: Search["query"]`,
			wantErr: true,
		},
		{
			name:    "missing action keyword",
			output:  `Thought: "just thinking"`,
			wantErr: true,
		},
		{
			name:    "action keyword appears before thought keyword",
			output:  `...no Action needed yet. Thought: "reconsidering" Action: Finish["done"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thought, action, err := parseStep(tt.output)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrWrongFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantThought, thought)
			assert.Equal(t, tt.wantAction, action)
		})
	}
}

func TestExtractAction(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		wantType   string
		wantInput  string
		wantErr    bool
	}{
		{
			name:      "search action",
			action:    `Search["how does auth work"]`,
			wantType:  "Search",
			wantInput: "how does auth work",
		},
		{
			name:      "finish action",
			action:    `Finish["The answer is in config.go"]`,
			wantType:  "Finish",
			wantInput: "The answer is in config.go",
		},
		{
			name:    "unknown action",
			action:  `Lookup["something"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actionType, input, err := extractAction(tt.action)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, actionType)
			assert.Equal(t, tt.wantInput, input)
		})
	}
}

func TestExtractStep(t *testing.T) {
	assert.Equal(t, "hello", extractStep(`: "hello"`))
	assert.Equal(t, "hello", extractStep(` 'hello' `))
	assert.Equal(t, "", extractStep(""))
}
