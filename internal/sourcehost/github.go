package sourcehost

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
)

// GitHubHost resolves repositories reached through a GitHub App installation
// (server mode) or a personal access token (CLI / local development).
type GitHubHost struct {
	appID          int64
	privateKeyPath string
	token          string
	httpClient     *http.Client
}

func NewGitHubHost(appID int64, privateKeyPath, token string) *GitHubHost {
	return &GitHubHost{
		appID:          appID,
		privateKeyPath: privateKeyPath,
		token:          token,
		httpClient:     http.DefaultClient,
	}
}

func (h *GitHubHost) Resolve(ctx context.Context, repoURL string) (Handle, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, repoURL)
	}

	client, err := h.client(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	ghRepo, _, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository %s/%s: %w", owner, repo, err)
	}

	return &githubHandle{
		client:   client,
		owner:    owner,
		repo:     repo,
		fullName: ghRepo.GetFullName(),
	}, nil
}

// client builds an authenticated github.Client, preferring the GitHub App
// installation transport (found by locating the app's installation on the
// target repository) and falling back to a plain token when the adapter was
// not configured with an app id.
func (h *GitHubHost) client(ctx context.Context, owner, repo string) (*github.Client, error) {
	if h.appID == 0 {
		if h.token == "" {
			return nil, fmt.Errorf("sourcehost: no github app id or token configured")
		}
		return github.NewClient(h.httpClient).WithAuthToken(h.token), nil
	}

	keyData, err := os.ReadFile(h.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read github app private key: %w", err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, h.appID, keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to create github app transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	installation, _, err := appClient.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to find app installation for %s/%s: %w", owner, repo, err)
	}

	installTransport := ghinstallation.NewFromAppsTransport(appTransport, installation.GetID())
	return github.NewClient(&http.Client{Transport: installTransport}), nil
}

type githubHandle struct {
	client   *github.Client
	owner    string
	repo     string
	fullName string
}

func (h *githubHandle) FullName() string { return h.fullName }

func (h *githubHandle) ListDir(ctx context.Context, path string) ([]Entry, error) {
	_, dirContents, _, err := h.client.Repositories.GetContents(ctx, h.owner, h.repo, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q in %s: %w", path, h.fullName, err)
	}

	entries := make([]Entry, 0, len(dirContents))
	for _, c := range dirContents {
		kind := EntryFile
		if c.GetType() == "dir" {
			kind = EntryDir
		}
		entries = append(entries, Entry{
			Name: c.GetName(),
			Path: c.GetPath(),
			Kind: kind,
			Size: int64(c.GetSize()),
		})
	}
	return entries, nil
}

func (h *githubHandle) ReadFile(ctx context.Context, path string) ([]byte, error) {
	fileContent, _, _, err := h.client.Repositories.GetContents(ctx, h.owner, h.repo, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q in %s: %w", path, h.fullName, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("path %q in %s is not a file", path, h.fullName)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %q: %w", path, err)
	}
	return []byte(content), nil
}

func (h *githubHandle) Close() error { return nil }
