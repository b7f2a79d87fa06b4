// Package docmodel defines the shared data model for documents, repositories,
// and chunk records that flow through the documentation pipeline.
package docmodel

import "sort"

// Kind distinguishes a file from a directory in the documentation tree.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Status is the lifecycle state of a Document or Repository.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Usage tracks token-count counters for audit across one or more LLM completions.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" db:"completion_tokens"`
}

// Add accumulates usage from another completion into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Document is the unit of generated documentation for one file or directory.
type Document struct {
	ID           string
	RepoID       string
	OwnerID      string
	SourceURL    string
	RelativePath string
	Kind         Kind
	SizeBytes    *int64
	Status       Status
	Extracted    map[string]any
	Markdown     string
	Usage        Usage
}

// Description returns the stable cross-kind field the rest of the system
// depends on, per the dynamic-JSON-objects design note.
func (d *Document) Description() string {
	if d.Extracted == nil {
		return ""
	}
	desc, _ := d.Extracted["description"].(string)
	return desc
}

// Repository is the container for a set of Documents and the dependency tree
// that links them.
type Repository struct {
	ID           string
	OwnerID      string
	Name         string
	RootDocID    string
	Version      string
	Dependencies map[string]string // child id -> parent id; root id is absent
	Docs         map[string]Document
	Status       Status
}

// ChildrenOf inverts Dependencies to list the direct children of a node.
// The documentation tree is never persisted with child lists, per the
// cyclic-data design note; callers reconstruct them on demand.
func (r *Repository) ChildrenOf(id string) []string {
	var children []string
	for child, parent := range r.Dependencies {
		if parent == id {
			children = append(children, child)
		}
	}
	return children
}

// ChunkRecord is a single vector index entry produced by the embedding pipeline.
type ChunkRecord struct {
	VectorID  string // doc_id + "-" + ordinal
	DocID     string
	Namespace string // repo_id
	ChunkText string
	Embedding []float32
}

// JobRecord is the in-memory bookkeeping a Repo Scheduler run owns for one
// repository: the shrinking in-degree map and each node's children, used to
// drive the topological walk.
type JobRecord struct {
	RepoID            string
	RemainingIndegree map[string]int
	ChildIndex        map[string][]string
	Cancel            func()
}

// FormattedNode is one node of a formatted repository tree, used to serve
// GET /repos/{repo_id}.
type FormattedNode struct {
	ID       string          `json:"id"`
	Path     string          `json:"path"`
	Kind     Kind            `json:"kind"`
	Status   Status          `json:"status"`
	Children []FormattedNode `json:"children,omitempty"`
}

// Format walks the repository's dependency tree from its root document and
// builds the nested view the API returns for GET /repos/{repo_id}. Children
// are sorted by relative path so the response is stable across calls.
func (r *Repository) Format() FormattedNode {
	return r.formatNode(r.RootDocID)
}

func (r *Repository) formatNode(id string) FormattedNode {
	doc := r.Docs[id]
	node := FormattedNode{
		ID:     doc.ID,
		Path:   doc.RelativePath,
		Kind:   doc.Kind,
		Status: doc.Status,
	}
	childIDs := r.ChildrenOf(id)
	sort.Slice(childIDs, func(i, j int) bool {
		return r.Docs[childIDs[i]].RelativePath < r.Docs[childIDs[j]].RelativePath
	})
	for _, childID := range childIDs {
		node.Children = append(node.Children, r.formatNode(childID))
	}
	return node
}
