package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

// StatsMsg reports a fresh frontier snapshot.
type StatsMsg struct {
	Stats metastore.FrontierStats
}

// ErrMsg reports a polling failure. The monitor keeps running and
// retries on the next tick rather than exiting — a transient metastore
// hiccup shouldn't kill the terminal UI.
type ErrMsg struct {
	Err error
}

// pollStats returns a tea.Cmd that immediately fetches one frontier
// stats snapshot, used to populate the view right after Init.
func pollStats(fr *frontier.Frontier) tea.Cmd {
	return func() tea.Msg {
		stats, err := fr.Stats(context.Background())
		if err != nil {
			return ErrMsg{Err: err}
		}
		return StatsMsg{Stats: stats}
	}
}

// waitAndPoll schedules the next pollStats call after interval.
func waitAndPoll(fr *frontier.Frontier, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		stats, err := fr.Stats(context.Background())
		if err != nil {
			return ErrMsg{Err: err}
		}
		return StatsMsg{Stats: stats}
	})
}
