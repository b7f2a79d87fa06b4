package docmodel

import "errors"

// Error categories from the error handling design. These are kinds, not
// concrete types: callers wrap them with fmt.Errorf("...: %w", ErrX) and
// match with errors.Is.
var (
	// Input
	ErrInvalidURL = errors.New("invalid url")
	ErrEmptyInput = errors.New("empty input")

	// Auth / ownership
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotOwner        = errors.New("not owner")

	// State
	ErrBusy              = errors.New("document is busy")
	ErrNamespaceConflict = errors.New("namespace already exists")

	// Upstream
	ErrUpstreamIO = errors.New("upstream io error")

	// LLM semantics
	ErrLlmTruncated  = errors.New("llm completion truncated")
	ErrLlmParse      = errors.New("llm completion failed to parse")
	ErrMarkdownEmpty = errors.New("generated markdown is empty")

	// Doc generator specific
	ErrDependencyNotReady = errors.New("dependency not ready")
	ErrUnsupportedKind    = errors.New("unsupported document kind")

	// Document store
	ErrNotFound = errors.New("record not found")
)
