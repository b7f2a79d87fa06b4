package docmodel

import "fmt"

// ValidateDocument checks the invariants from the data model: extracted and
// markdown are non-empty iff status is COMPLETED, and a directory must have
// at least one child in the dependency tree.
func ValidateDocument(d Document, repo *Repository) error {
	isTerminalComplete := d.Status == StatusCompleted
	hasContent := d.Markdown != "" && len(d.Extracted) > 0
	if isTerminalComplete && !hasContent {
		return fmt.Errorf("document %s: status COMPLETED requires non-empty extracted and markdown", d.ID)
	}
	if !isTerminalComplete && hasContent {
		return fmt.Errorf("document %s: non-empty content outside COMPLETED status", d.ID)
	}
	if d.Kind == KindDirectory && repo != nil {
		if len(repo.ChildrenOf(d.ID)) == 0 {
			return fmt.Errorf("document %s: directory has no children in dependency tree", d.ID)
		}
	}
	return nil
}

// ValidateRepository checks that Dependencies forms a rooted tree over Docs:
// every non-root id appears exactly once as a key, and its parent exists.
func ValidateRepository(r *Repository) error {
	if _, ok := r.Docs[r.RootDocID]; !ok {
		return fmt.Errorf("repository %s: root_doc_id %s not present in docs", r.ID, r.RootDocID)
	}
	if r.Docs[r.RootDocID].Kind != KindDirectory {
		return fmt.Errorf("repository %s: root document must be a directory", r.ID)
	}
	for id := range r.Docs {
		if id == r.RootDocID {
			continue
		}
		parent, ok := r.Dependencies[id]
		if !ok {
			return fmt.Errorf("repository %s: document %s missing from dependencies map", r.ID, id)
		}
		if _, ok := r.Docs[parent]; !ok {
			return fmt.Errorf("repository %s: document %s has dangling parent %s", r.ID, id, parent)
		}
	}

	allComplete, anyFailed := true, false
	for _, d := range r.Docs {
		if d.Status != StatusCompleted {
			allComplete = false
		}
		if d.Status == StatusFailed {
			anyFailed = true
		}
	}
	if allComplete && r.Status != StatusCompleted {
		return fmt.Errorf("repository %s: all documents completed but status is %s", r.ID, r.Status)
	}
	if anyFailed && r.Status == StatusCompleted {
		return fmt.Errorf("repository %s: status COMPLETED with a FAILED document", r.ID)
	}
	return nil
}

// CanTransition reports whether moving from `from` to `to` is a legal
// document status transition per the lifecycle in the data model.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusNotStarted:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusInProgress // regeneration, only from a terminal state
	default:
		return false
	}
}
