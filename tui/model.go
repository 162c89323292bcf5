// Package tui provides the Bubble Tea terminal UI for crawlhive,
// polling the frontier for a live snapshot of queue depth by status
// while a worker daemon runs against it.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

// Model is the Bubble Tea model for the frontier monitor.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	frontier     *frontier.Frontier
	pollInterval time.Duration
	spinner      spinner.Model

	stats    metastore.FrontierStats
	lastErr  error
	quitting bool
	width    int
}

// NewModel creates a TUI model polling fr's frontier stats every
// pollInterval. Quitting (ctrl+c or q) cancels ctx, which is expected to
// be the same context the worker daemon runs under.
func NewModel(ctx context.Context, cancel context.CancelFunc, fr *frontier.Frontier, pollInterval time.Duration) Model {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:          ctx,
		cancel:       cancel,
		frontier:     fr,
		pollInterval: pollInterval,
		spinner:      spin,
	}
}

// Init starts the spinner and the first stats poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, pollStats(m.frontier))
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case StatsMsg:
		m.stats = msg.Stats
		m.lastErr = nil
		return m, waitAndPoll(m.frontier, m.pollInterval)

	case ErrMsg:
		m.lastErr = msg.Err
		return m, waitAndPoll(m.frontier, m.pollInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current frontier snapshot.
func (m Model) View() string {
	if m.quitting {
		return dimStyle.Render("stopping...") + "\n"
	}
	header := fmt.Sprintf("%s crawlhive — watching frontier (q to quit)\n", m.spinner.View())
	body := RenderStats(m.stats)
	if m.lastErr != nil {
		body += "\n" + errorStyle.Render("last poll error: "+m.lastErr.Error()) + "\n"
	}
	return header + body
}
