// Package sourcehost resolves a repository URL to a file tree, abstracting
// over where the source actually lives (a GitHub-hosted repository reached
// through a GitHub App installation, or a local/plain-git clone).
package sourcehost

import (
	"context"
	"errors"
	"strings"
)

// EntryKind mirrors docmodel.Kind without importing it, keeping this
// package's public surface independent of the documentation data model.
type EntryKind string

const (
	EntryFile EntryKind = "file"
	EntryDir  EntryKind = "dir"
)

// Entry is one child returned by ListDir.
type Entry struct {
	Name string
	Path string
	Kind EntryKind
	Size int64
}

// SourceHost resolves a repository reference and lists/reads its tree.
// Implementations must be safe for concurrent use — the Repo Scheduler runs
// Doc Generator calls concurrently, all reading files through one Handle.
type SourceHost interface {
	// Resolve validates repoURL and prepares local access to it (cloning or
	// authenticating as needed), returning a handle used by ListDir/ReadFile.
	Resolve(ctx context.Context, repoURL string) (Handle, error)
}

// Handle is a resolved, ready-to-read repository.
type Handle interface {
	FullName() string
	// ListDir lists the immediate children of path ("" is the repository root).
	ListDir(ctx context.Context, path string) ([]Entry, error)
	// ReadFile returns the decoded content of the file at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Close releases any local resources (temp clone directories).
	Close() error
}

var ErrInvalidURL = errors.New("invalid repository url")

// ParseOwnerRepo extracts "owner/repo" from a GitHub URL, accepting both the
// https://github.com/owner/repo and git@github.com:owner/repo.git forms.
func ParseOwnerRepo(repoURL string) (owner, repo string, err error) {
	s := strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")
	s = strings.TrimPrefix(s, "git@github.com:")
	s = strings.TrimPrefix(s, "https://github.com/")
	s = strings.TrimPrefix(s, "http://github.com/")
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidURL
	}
	return parts[0], parts[1], nil
}
