package main

import (
	"github.com/docwarden/docwarden/internal/agent"
	"github.com/docwarden/docwarden/internal/app"
	"github.com/docwarden/docwarden/internal/docmodel"
)

// appInitializedMsg reports that the application graph has finished wiring.
type appInitializedMsg struct {
	app *app.App
	err error
}

// reposLoadedMsg carries the owner's repository list.
type reposLoadedMsg struct {
	repos []*docmodel.Repository
	err   error
}

// repoAddedMsg reports the result of identifying a new repository.
type repoAddedMsg struct {
	repoID   string
	repoName string
	pending  int
	err      error
}

// generationMsg reports that a generation job has been enqueued (initial or
// a full re-run); it does not mean generation has finished, since that runs
// asynchronously on the controller's worker pool.
type generationMsg struct {
	repoID   string
	repoName string
	jobID    string
	err      error
}

// statusPolledMsg carries the latest status for the selected repository,
// polled periodically while generation is in flight.
type statusPolledMsg struct {
	status docmodel.Status
	err    error
}

// answerCompleteMsg carries a finished chat answer.
type answerCompleteMsg struct {
	result agent.ChatResult
	err    error
}

// errorMsg reports a failure from a background command.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
