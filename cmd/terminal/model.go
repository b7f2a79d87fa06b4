package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/docwarden/docwarden/internal/app"
	"github.com/docwarden/docwarden/internal/docmodel"
)

const asciiLogo = `
╔═════════════════════════════════════════════════════════════════════════════╗
║                                                                             ║
║   ██████╗  ██████╗  ██████╗██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗███╗  ║
║   ██╔══██╗██╔═══██╗██╔════╝██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝████╗ ║
║   ██║  ██║██║   ██║██║     ██║ █╗ ██║███████║██████╔╝██║  ██║█████╗  ██╔██╗║
║   ██║  ██║██║   ██║██║     ██║███╗██║██╔══██║██╔══██╗██║  ██║██╔══╝  ██║╚██║
║   ██████╔╝╚██████╔╝╚██████╗╚███╔███╔╝██║  ██║██║  ██║██████╔╝███████╗██║ ╚█║
║   ╚═════╝  ╚═════╝  ╚═════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚║
║                                                                             ║
║                      DOCUMENTATION CONTROL ROOM                            ║
║                                                                             ║
╚═════════════════════════════════════════════════════════════════════════════╝
`

// appHandle pairs the wired application with the owner id this terminal
// session is operating as, since every jobcontroller/docstore call is
// tenant-scoped.
type appHandle struct {
	app     *app.App
	ownerID string
}

type model struct {
	styles styles
	app    *appHandle

	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool

	selectedRepoID   string
	selectedRepoName string
	selectedStatus   docmodel.Status
	polling          bool

	history        []string
	availableRepos []*docmodel.Repository

	markdown *glamour.TermRenderer
}

func initialModel(theme ThemeName, ownerID string) *model {
	s := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Enter a command or ask about a repository..."
	ta.Focus()
	ta.Prompt = s.prompt.Render("> ")
	ta.CharLimit = 500
	ta.SetWidth(60)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))

	return &model{
		styles:    s,
		textarea:  ta,
		spinner:   sp,
		isLoading: true,
		history:   []string{s.ascii.Render(asciiLogo), "", "initializing docwarden terminal for owner " + ownerID + "..."},
		app:       &appHandle{ownerID: ownerID},
		markdown:  renderer,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(), m.spinner.Tick)
}

// renderMarkdown renders a chat answer's markdown for the viewport, falling
// back to the raw text if the renderer was never constructed.
func (m *model) renderMarkdown(answer string) string {
	if m.markdown == nil {
		return answer
	}
	rendered, err := m.markdown.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *model) appendLine(line string) {
	m.history = append(m.history, line)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd, spCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case appInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendLine("")
			m.appendLine(m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.app.app = msg.app
		return m, loadReposCmd(m.app)

	case reposLoadedMsg:
		if msg.err != nil {
			m.appendLine("")
			m.appendLine(m.styles.error.Render("could not load repositories: " + msg.err.Error()))
		} else {
			m.availableRepos = msg.repos
			m.appendLine("")
			m.appendLine(m.styles.success.Render(fmt.Sprintf("online, %d repositories found", len(msg.repos))))
		}
		m.appendLine("")
		m.appendLine("type /help for commands or ask a question about a selected repository.")
		return m, nil

	case repoAddedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendLine("")
			m.appendLine(m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.selectedRepoID = msg.repoID
		m.selectedRepoName = msg.repoName
		m.appendLine("")
		m.appendLine(m.styles.success.Render(fmt.Sprintf("identified %s: %d documents pending", msg.repoName, msg.pending)))
		m.appendLine(m.styles.command.Render("-> starting generation..."))
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, generateRepoCmd(m.app, msg.repoID, msg.repoName))

	case generationMsg:
		if msg.err != nil {
			m.isLoading = false
			m.appendLine("")
			m.appendLine(m.styles.error.Render("generation failed to start: " + msg.err.Error()))
			return m, nil
		}
		m.appendLine(m.styles.command.Render(fmt.Sprintf("-> job %s enqueued, watching status", msg.jobID)))
		m.polling = true
		return m, pollStatusCmd(m.app, msg.repoID)

	case statusPolledMsg:
		if msg.err != nil {
			m.isLoading = false
			m.polling = false
			m.appendLine("")
			m.appendLine(m.styles.error.Render("status check failed: " + msg.err.Error()))
			return m, nil
		}
		m.selectedStatus = msg.status
		if msg.status == docmodel.StatusInProgress {
			return m, pollStatusCmd(m.app, m.selectedRepoID)
		}
		m.isLoading = false
		m.polling = false
		if msg.status == docmodel.StatusCompleted {
			m.appendLine(m.styles.success.Render(fmt.Sprintf("repository %s indexed, ready for questions", m.selectedRepoName)))
		} else {
			m.appendLine(m.styles.error.Render(fmt.Sprintf("repository %s finished with status %s", m.selectedRepoName, msg.status)))
		}
		return m, loadReposCmd(m.app)

	case answerCompleteMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendLine("")
			m.appendLine(m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		if msg.result.Fallback {
			m.appendLine(m.styles.inactive.Render("(answered without retrieval)"))
		}
		m.appendLine(m.renderMarkdown(msg.result.Answer))
		return m, nil

	case errorMsg:
		m.isLoading = false
		m.appendLine("")
		m.appendLine(m.styles.error.Render("! " + msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.app == nil || m.app.app == nil {
		return fmt.Sprintf("\n  %s booting...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.selectedRepoName != "" {
		statusParts = append(statusParts, fmt.Sprintf("REPO: %s", m.selectedRepoName))
		statusParts = append(statusParts, fmt.Sprintf("STATUS: %s", m.selectedStatus))
	} else {
		statusParts = append(statusParts, "REPO: none selected")
	}
	statusParts = append(statusParts, fmt.Sprintf("LLM: %s", m.app.app.Cfg.AI.LLMProvider))
	statusParts = append(statusParts, fmt.Sprintf("OWNER: %s", m.app.ownerID))

	status := m.styles.inactive.Render(strings.Join(statusParts, " | "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("working...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left, m.textarea.View(), loadingIndicator),
			),
			status,
		),
	)
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendLine(m.styles.prompt.Render("> ") + input)

	parts := strings.Fields(input)
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/add":
		if len(args) != 1 {
			m.appendLine(m.styles.error.Render("usage: /add <github_url>"))
			return nil
		}
		m.isLoading = true
		m.appendLine(m.styles.command.Render("-> identifying repository..."))
		return tea.Batch(m.spinner.Tick, addRepoCmd(m.app, args[0]))

	case "/list", "/ls":
		if len(m.availableRepos) == 0 {
			m.appendLine(m.styles.inactive.Render("no repositories registered yet; use /add <github_url>"))
			return nil
		}
		var b strings.Builder
		b.WriteString(m.styles.success.Render("repositories:"))
		for _, repo := range m.availableRepos {
			marker := m.styles.inactive.Render("not selected")
			if repo.ID == m.selectedRepoID {
				marker = m.styles.success.Render("selected")
			}
			b.WriteString(fmt.Sprintf("\n  - %s (%s) [%s] %s", repo.Name, repo.ID, repo.Status, marker))
		}
		m.appendLine(b.String())
		return nil

	case "/select":
		if len(args) != 1 {
			m.appendLine(m.styles.error.Render("usage: /select <repo_id>"))
			return nil
		}
		for _, repo := range m.availableRepos {
			if repo.ID == args[0] {
				m.selectedRepoID = repo.ID
				m.selectedRepoName = repo.Name
				m.selectedStatus = repo.Status
				m.appendLine(m.styles.success.Render("context set to " + repo.Name))
				return nil
			}
		}
		m.appendLine(m.styles.error.Render("repository not found, use /list"))
		return nil

	case "/regenerate":
		if m.selectedRepoID == "" {
			m.appendLine(m.styles.error.Render("no repository selected"))
			return nil
		}
		m.isLoading = true
		m.appendLine(m.styles.command.Render("-> re-running generation..."))
		return tea.Batch(m.spinner.Tick, generateRepoCmd(m.app, m.selectedRepoID, m.selectedRepoName))

	case "/question", "/q":
		if m.selectedRepoID == "" {
			m.appendLine(m.styles.error.Render("no repository selected, use /select first"))
			return nil
		}
		if len(args) < 1 {
			m.appendLine(m.styles.error.Render("usage: /question <text>"))
			return nil
		}
		m.isLoading = true
		m.appendLine(m.styles.command.Render("-> thinking..."))
		return tea.Batch(m.spinner.Tick, answerQuestionCmd(m.app, m.selectedRepoID, strings.Join(args, " ")))

	case "/help", "/h":
		help := m.styles.success.Render("commands:") + `

  /add <github_url>   Identify and generate documentation for a repository.
  /list, /ls          List registered repositories.
  /select <repo_id>   Set the active repository for questions.
  /regenerate         Re-run generation for the selected repository.
  /question <text>    Ask about the selected repository's code.
  /help               Show this help message.
  /exit, /quit        Exit docwarden.
`
		m.appendLine(help)
		return nil

	case "/exit", "/quit":
		return tea.Quit

	default:
		if m.selectedRepoID != "" {
			m.isLoading = true
			m.appendLine(m.styles.command.Render("-> thinking..."))
			return tea.Batch(m.spinner.Tick, answerQuestionCmd(m.app, m.selectedRepoID, input))
		}
		m.appendLine(m.styles.error.Render("unknown command: " + command))
		m.appendLine(m.styles.inactive.Render("type /help for assistance"))
		return nil
	}
}
