// Package scheduler drives documentation generation across an entire
// repository's dependency tree in topological order: a node only starts
// once every child it depends on has completed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

// DocGenerator is the narrow surface the scheduler drives; internal/docgen
// satisfies it.
type DocGenerator interface {
	Generate(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository, docID string) error
}

// StatusUpdater is the narrow slice of docstore.Store the scheduler needs,
// kept separate from the full store interface so tests can fake it cheaply.
type StatusUpdater interface {
	UpdateRepositoryStatus(ctx context.Context, id string, status docmodel.Status) error
}

// Scheduler walks a repository's dependency tree bottom-up, generating each
// round's ready leaves concurrently and failing the whole run on the first
// error any leaf in a round returns.
type Scheduler struct {
	store     StatusUpdater
	generator DocGenerator
	batchSize int
	logger    *slog.Logger
}

func New(store StatusUpdater, generator DocGenerator, batchSize int, logger *slog.Logger) *Scheduler {
	if batchSize <= 0 {
		batchSize = 30
	}
	return &Scheduler{store: store, generator: generator, batchSize: batchSize, logger: logger}
}

// Run generates every document in repo, starting from files (which have no
// dependencies) and working up to the root directory, a round at a time.
// Each round's ready nodes run concurrently with at most batchSize
// in-flight; the first error in a round aborts the whole run, leaving
// unprocessed nodes at their current status for a future retry. A cancelled
// ctx stops the run before the next round starts.
func (s *Scheduler) Run(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository) error {
	remaining := buildIndegree(repo)

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("repository %s: run cancelled: %w", repo.ID, err)
		}
		ready := readyNodes(remaining)
		if len(ready) == 0 {
			return fmt.Errorf("repository %s: dependency graph has a cycle, %d nodes never became ready", repo.ID, len(remaining))
		}

		s.logger.Info("scheduler starting round", "repo_id", repo.ID, "ready_count", len(ready))

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(s.batchSize)
		for _, nodeID := range ready {
			nodeID := nodeID
			group.Go(func() error {
				return s.generator.Generate(groupCtx, handle, repo, nodeID)
			})
		}
		if err := group.Wait(); err != nil {
			return fmt.Errorf("repository %s: generation failed: %w", repo.ID, err)
		}

		for _, nodeID := range ready {
			if parent, ok := repo.Dependencies[nodeID]; ok {
				remaining[parent]--
			}
			delete(remaining, nodeID)
		}
	}

	if err := s.store.UpdateRepositoryStatus(ctx, repo.ID, docmodel.StatusCompleted); err != nil {
		return fmt.Errorf("repository %s: failed to mark completed: %w", repo.ID, err)
	}
	repo.Status = docmodel.StatusCompleted
	return nil
}

// buildIndegree returns, for every document, the count of its children not
// yet completed; a node is ready to generate once its count reaches zero.
func buildIndegree(repo *docmodel.Repository) map[string]int {
	remaining := make(map[string]int, len(repo.Docs))
	for id := range repo.Docs {
		remaining[id] = 0
	}
	for _, parent := range repo.Dependencies {
		remaining[parent]++
	}
	return remaining
}

// readyNodes returns every node with no outstanding child dependencies.
func readyNodes(remaining map[string]int) []string {
	var ready []string
	for id, degree := range remaining {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	return ready
}
