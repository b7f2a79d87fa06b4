package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/docwarden/docwarden/internal/wire"
)

func initializeAppCmd() tea.Cmd {
	return func() tea.Msg {
		application, _, err := wire.InitializeApp(context.Background())
		if err != nil {
			return appInitializedMsg{err: err}
		}
		return appInitializedMsg{app: application}
	}
}

func loadReposCmd(app *appHandle) tea.Cmd {
	return func() tea.Msg {
		repos, err := app.app.Controller.Repositories(context.Background(), app.ownerID)
		return reposLoadedMsg{repos: repos, err: err}
	}
}

// addRepoCmd identifies a new repository and reports its pending document
// count; generation is enqueued separately, by generateRepoCmd.
func addRepoCmd(app *appHandle, githubURL string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		repo, err := app.app.Controller.Identify(ctx, app.ownerID, githubURL)
		if err != nil {
			return repoAddedMsg{err: fmt.Errorf("failed to identify repository: %w", err)}
		}
		return repoAddedMsg{repoID: repo.ID, repoName: repo.Name, pending: len(repo.Docs)}
	}
}

func generateRepoCmd(app *appHandle, repoID, repoName string) tea.Cmd {
	return func() tea.Msg {
		jobID, err := app.app.Controller.GenerateRepo(context.Background(), repoID)
		return generationMsg{repoID: repoID, repoName: repoName, jobID: jobID, err: err}
	}
}

// pollStatusCmd waits briefly then reports the repository's current status,
// used to drive the spinner while a generation job runs on the worker pool.
func pollStatusCmd(app *appHandle, repoID string) tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		status, err := app.app.Controller.Status(context.Background(), repoID)
		return statusPolledMsg{status: status, err: err}
	})
}

func answerQuestionCmd(app *appHandle, repoID, question string) tea.Cmd {
	return func() tea.Msg {
		result, err := app.app.Agent.Chat(context.Background(), repoID, question, defaultChatTopK)
		return answerCompleteMsg{result: result, err: err}
	}
}

const defaultChatTopK = 5
