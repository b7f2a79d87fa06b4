// Package docgen turns a single Document's source content into a completed
// Markdown-plus-extracted-JSON pair, the unit of work the Repo Scheduler
// drives across an entire dependency tree.
package docgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/docstore"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/promptlib"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

const (
	tailTrimChars = 400
	approxCharsPerToken = 4
)

// fileDocData and folderDocData are the values rendered into the file/folder
// prompt templates.
type fileDocData struct {
	RelativePath string
	Content      string
}

type childDoc struct {
	RelativePath string
	Description  string
}

type folderDocData struct {
	RelativePath string
	Children     []childDoc
}

// Generator implements the generate operation: read source, build a prompt,
// call the LLM Gateway, and persist the result.
type Generator struct {
	store            docstore.Store
	gateway          llmgateway.Gateway
	prompts          *promptlib.Library
	trimBudgetTokens int
	logger           *slog.Logger
}

func New(store docstore.Store, gateway llmgateway.Gateway, prompts *promptlib.Library, trimBudgetTokens int, logger *slog.Logger) *Generator {
	return &Generator{store: store, gateway: gateway, prompts: prompts, trimBudgetTokens: trimBudgetTokens, logger: logger}
}

// Generate is idempotent within a single attempt: it transitions the
// document IN_PROGRESS, builds the per-kind prompt, calls the Gateway, and
// writes back {extracted, markdown, usage} with COMPLETED, or FAILED on any
// error along the way.
func (g *Generator) Generate(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository, docID string) (err error) {
	doc, ok := repo.Docs[docID]
	if !ok {
		return fmt.Errorf("document %s not found in repository %s: %w", docID, repo.ID, docmodel.ErrNotFound)
	}

	if err := g.store.UpdateDocumentStatus(ctx, docID, doc.Status, docmodel.StatusInProgress); err != nil {
		return fmt.Errorf("failed to mark document %s in progress: %w", docID, err)
	}

	defer func() {
		if err != nil {
			if failErr := g.store.UpdateDocumentStatus(ctx, docID, docmodel.StatusInProgress, docmodel.StatusFailed); failErr != nil {
				g.logger.Warn("failed to mark document failed after generation error", "doc_id", docID, "error", failErr)
			}
		}
	}()

	var prompt string
	switch doc.Kind {
	case docmodel.KindFile:
		prompt, err = g.buildFilePrompt(ctx, handle, doc)
	case docmodel.KindDirectory:
		prompt, err = g.buildFolderPrompt(repo, doc)
	default:
		err = fmt.Errorf("document %s: %w", docID, docmodel.ErrUnsupportedKind)
	}
	if err != nil {
		return err
	}

	text, usage, err := g.gateway.GenerateText(ctx, prompt)
	if err != nil {
		return fmt.Errorf("document %s: generation failed: %w", docID, err)
	}

	markdown, extracted, err := splitMarkdownAndJSON(text)
	if err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}
	if markdown == "" {
		return fmt.Errorf("document %s: %w", docID, docmodel.ErrMarkdownEmpty)
	}

	doc.Markdown = markdown
	doc.Extracted = extracted
	doc.Usage = usage
	doc.Status = docmodel.StatusCompleted

	if err := g.store.SaveDocumentResult(ctx, doc); err != nil {
		return fmt.Errorf("document %s: failed to save result: %w", docID, err)
	}
	repo.Docs[docID] = doc
	return nil
}

func (g *Generator) buildFilePrompt(ctx context.Context, handle sourcehost.Handle, doc docmodel.Document) (string, error) {
	content, err := handle.ReadFile(ctx, doc.RelativePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", doc.RelativePath, err)
	}
	if len(content) == 0 {
		return "", docmodel.ErrEmptyInput
	}

	trimmed := g.trimContent(string(content))
	data := fileDocData{RelativePath: doc.RelativePath, Content: trimmed}
	return g.prompts.Render(promptlib.FileDocPrompt, promptlib.DefaultProvider, data)
}

func (g *Generator) buildFolderPrompt(repo *docmodel.Repository, doc docmodel.Document) (string, error) {
	childIDs := repo.ChildrenOf(doc.ID)
	children := make([]childDoc, 0, len(childIDs))
	for _, childID := range childIDs {
		child, ok := repo.Docs[childID]
		if !ok || child.Status != docmodel.StatusCompleted {
			return "", fmt.Errorf("document %s: child %s not ready: %w", doc.ID, childID, docmodel.ErrDependencyNotReady)
		}
		children = append(children, childDoc{RelativePath: child.RelativePath, Description: child.Description()})
	}

	data := folderDocData{RelativePath: doc.RelativePath, Children: children}
	return g.prompts.Render(promptlib.FolderDocPrompt, promptlib.DefaultProvider, data)
}

// trimContent applies the coarse-then-iterative trim: if the tokenized
// length exceeds the budget, drop a conservative character estimate from
// the tail in one cut, then keep shaving 400-character tail slices until
// the tokenizer agrees the remainder fits, signaling truncation.
func (g *Generator) trimContent(content string) string {
	if g.gateway.Tokenizer().Count(content) <= g.trimBudgetTokens {
		return content
	}

	extraTokens := g.gateway.Tokenizer().Count(content) - g.trimBudgetTokens
	cut := extraTokens * approxCharsPerToken
	if cut >= len(content) {
		cut = len(content) - 1
	}
	if cut < 0 {
		cut = 0
	}
	content = content[:len(content)-cut]

	for g.gateway.Tokenizer().Count(content) > g.trimBudgetTokens && len(content) > tailTrimChars {
		content = content[:len(content)-tailTrimChars]
	}

	return content + "\n..."
}

// splitMarkdownAndJSON scans the completion from the end for the last
// substring that parses as a JSON object, treating it as the extracted
// fields and everything before it as the Markdown body. If no trailing
// JSON parses, it falls back to extracting the first non-top heading's
// text as the description, per the "at least one strategy must succeed"
// requirement.
func splitMarkdownAndJSON(response string) (markdown string, extracted map[string]any, err error) {
	trimmed := strings.TrimRight(response, "\n\t ")
	if idx := trailingJSONObjectStart(trimmed); idx != -1 {
		candidate := trimmed[idx:]
		var parsed map[string]any
		if json.Unmarshal([]byte(candidate), &parsed) == nil {
			return strings.TrimSpace(trimmed[:idx]), parsed, nil
		}
	}

	description, headingErr := firstNonTopHeading(response)
	if headingErr != nil {
		return "", nil, fmt.Errorf("no trailing json and heading extraction failed: %w", headingErr)
	}
	return strings.TrimSpace(response), map[string]any{"description": description}, nil
}

// trailingJSONObjectStart returns the index of the '{' that opens the
// top-level JSON object ending at the last character of s, or -1 if s
// doesn't end with a balanced '}'. Brace depth is tracked outside of string
// literals so a nested object (or a brace inside a quoted string value)
// doesn't get mistaken for the object's own opening brace.
func trailingJSONObjectStart(s string) int {
	depth := 0
	start := -1
	lastComplete := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					lastComplete = i
				}
			}
		}
	}

	if lastComplete == len(s)-1 {
		return start
	}
	return -1
}

// firstNonTopHeading walks the Markdown AST and returns the text content of
// the first heading whose level is greater than 1 (the top-level heading is
// expected to name the file or directory, not describe it).
func firstNonTopHeading(markdown string) (string, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var found string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level <= 1 {
			return ast.WalkContinue, nil
		}
		found = headingText(heading, source)
		return ast.WalkStop, nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no non-top heading found in markdown")
	}
	return found, nil
}

// headingText concatenates the text segments under a heading node; headings
// can contain inline formatting nodes (emphasis, code spans) so this walks
// rather than assuming a single text child.
func headingText(heading *ast.Heading, source []byte) string {
	var sb strings.Builder
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(source))
		}
	}
	return sb.String()
}
