package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

func newTestModel() (Model, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	store := metastore.NewMemory()
	fr := frontier.New(store, uuid.New(), 10, nil)
	return NewModel(ctx, cancel, fr, 10*time.Millisecond), cancel
}

func TestNewModel(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	if model.ctx == nil {
		t.Error("expected ctx to be stored in model")
	}
	if model.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if model.frontier == nil {
		t.Error("expected frontier to be stored in model")
	}
	if model.pollInterval != 10*time.Millisecond {
		t.Errorf("pollInterval = %v, want 10ms", model.pollInterval)
	}
}

func TestNewModelDefaultsPollInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := metastore.NewMemory()
	fr := frontier.New(store, uuid.New(), 10, nil)

	model := NewModel(ctx, cancel, fr, 0)
	if model.pollInterval != time.Second {
		t.Errorf("pollInterval = %v, want default 1s", model.pollInterval)
	}
}

func TestInitReturnsBatchCmd(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	cmd := model.Init()
	if cmd == nil {
		t.Error("Init() should return a non-nil batch command")
	}
}

func TestUpdateStatsMsg(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	stats := metastore.FrontierStats{Pending: 3, Completed: 7, Failed: 1}
	updatedModel, cmd := model.Update(StatsMsg{Stats: stats})
	updated := updatedModel.(Model)

	if updated.stats != stats {
		t.Errorf("stats = %+v, want %+v", updated.stats, stats)
	}
	if cmd == nil {
		t.Error("expected non-nil cmd to re-schedule the next poll")
	}
}

func TestUpdateErrMsgKeepsPolling(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	updatedModel, cmd := model.Update(ErrMsg{Err: context.DeadlineExceeded})
	updated := updatedModel.(Model)

	if updated.lastErr == nil {
		t.Error("expected lastErr to be set")
	}
	if cmd == nil {
		t.Error("expected polling to continue despite an error")
	}
}

func TestUpdateQuitKey(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	updatedModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	updated := updatedModel.(Model)

	if !updated.quitting {
		t.Error("expected quitting=true after 'q'")
	}
	if cmd == nil {
		t.Error("expected tea.Quit cmd")
	}
}

func TestUpdateWindowSizeMsg(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	updatedModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := updatedModel.(Model)

	if updated.width != 120 {
		t.Errorf("expected width=120, got %d", updated.width)
	}
}

func TestUpdateSpinnerTickMsg(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()

	updatedModel, _ := model.Update(spinner.TickMsg{})
	_ = updatedModel.(Model) // should not panic
}

func TestViewShowsStats(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()
	model.stats = metastore.FrontierStats{Pending: 2, Completed: 5}

	output := model.View()
	if !strings.Contains(output, "pending") {
		t.Errorf("expected status labels in view, got: %s", output)
	}
	if !strings.Contains(output, "5 completed") {
		t.Errorf("expected completed count in summary, got: %s", output)
	}
}

func TestViewWhileQuitting(t *testing.T) {
	model, cancel := newTestModel()
	defer cancel()
	model.quitting = true

	output := model.View()
	if !strings.Contains(output, "stopping") {
		t.Errorf("expected stopping message, got: %s", output)
	}
}

func TestRenderStatsEmptyFrontier(t *testing.T) {
	output := RenderStats(metastore.FrontierStats{})
	if !strings.Contains(output, "frontier is empty") {
		t.Errorf("expected empty-frontier message, got: %s", output)
	}
}

func TestRenderStatsWithCounts(t *testing.T) {
	output := RenderStats(metastore.FrontierStats{Pending: 10, Processing: 2, Completed: 50, Failed: 3})
	if !strings.Contains(output, "50 completed, 3 failed") {
		t.Errorf("expected summary line, got: %s", output)
	}
}
