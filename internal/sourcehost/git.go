package sourcehost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitHost resolves repositories by cloning them to a local working
// directory, for plain-git remotes that aren't backed by a GitHub App
// installation (self-hosted Git, or GitHub access via a bare token).
type GitHost struct {
	clonePath string
	token     string
	logger    *slog.Logger
}

func NewGitHost(clonePath, token string, logger *slog.Logger) *GitHost {
	return &GitHost{clonePath: clonePath, token: token, logger: logger}
}

func (h *GitHost) Resolve(ctx context.Context, repoURL string) (Handle, error) {
	if repoURL == "" {
		return nil, ErrInvalidURL
	}

	dir, err := os.MkdirTemp(h.clonePath, "clone-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}

	cloneOpts := &git.CloneOptions{URL: repoURL}
	if h.token != "" {
		cloneOpts.Auth = &http.BasicAuth{Username: "x-access-token", Password: h.token}
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, cloneOpts); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}

	return &gitHandle{
		root:     dir,
		fullName: deriveFullName(repoURL),
		logger:   h.logger,
	}, nil
}

func deriveFullName(repoURL string) string {
	s := strings.TrimSuffix(repoURL, ".git")
	parts := strings.Split(s, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return s
}

type gitHandle struct {
	root     string
	fullName string
	logger   *slog.Logger
}

func (h *gitHandle) FullName() string { return h.fullName }

func (h *gitHandle) ListDir(_ context.Context, path string) ([]Entry, error) {
	abs, err := h.safeJoin(path)
	if err != nil {
		return nil, err
	}

	infos, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", path, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.Name() == ".git" {
			continue
		}
		kind := EntryFile
		var size int64
		if info.IsDir() {
			kind = EntryDir
		} else if fi, err := info.Info(); err == nil {
			size = fi.Size()
		}
		entries = append(entries, Entry{
			Name: info.Name(),
			Path: filepath.ToSlash(filepath.Join(path, info.Name())),
			Kind: kind,
			Size: size,
		})
	}
	return entries, nil
}

func (h *gitHandle) ReadFile(_ context.Context, path string) ([]byte, error) {
	abs, err := h.safeJoin(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return data, nil
}

// safeJoin resolves path against the clone root and rejects any result that
// escapes it, guarding against a path-traversal entry slipping through the
// Identifier (e.g. a symlink or a ".." relative path from a crafted tree).
func (h *gitHandle) safeJoin(path string) (string, error) {
	joined := filepath.Join(h.root, filepath.FromSlash(path))
	resolvedRoot, err := filepath.EvalSymlinks(h.root)
	if err != nil {
		resolvedRoot = h.root
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// Path may not exist yet in rare races; fall back to the unresolved
		// join but still enforce the prefix check below.
		resolved = joined
	}
	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repository root", path)
	}
	return joined, nil
}

func (h *gitHandle) Close() error {
	if err := os.RemoveAll(h.root); err != nil {
		h.logger.Warn("failed to clean up clone directory", "path", h.root, "error", err)
		return err
	}
	return nil
}
