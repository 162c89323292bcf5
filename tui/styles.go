package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/crawlhive/internal/metastore"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle         = lipgloss.NewStyle().Faint(true)
	countStyle       = lipgloss.NewStyle()
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// statusOrder defines the display order for frontier status rows (queue
// entry to terminal state).
var statusOrder = []struct {
	label string
	get   func(metastore.FrontierStats) int
}{
	{"pending", func(s metastore.FrontierStats) int { return s.Pending }},
	{"processing", func(s metastore.FrontierStats) int { return s.Processing }},
	{"dispatched", func(s metastore.FrontierStats) int { return s.Dispatched }},
	{"completed", func(s metastore.FrontierStats) int { return s.Completed }},
	{"failed", func(s metastore.FrontierStats) int { return s.Failed }},
}

// RenderStats produces a Lip Gloss styled table of frontier status counts.
func RenderStats(stats metastore.FrontierStats) string {
	var builder strings.Builder

	rows := make([][]string, 0, len(statusOrder))
	for _, s := range statusOrder {
		rows = append(rows, []string{s.label, fmt.Sprintf("%d", s.get(stats))})
	}

	statsTable := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Status", "Count").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				if row == len(statusOrder)-1 && stats.Failed > 0 {
					return statusErrorStyle
				}
				return countStyle
			}
			return countStyle
		}).
		Rows(rows...)

	builder.WriteString(statsTable.Render())
	builder.WriteString("\n")

	total := stats.Pending + stats.Processing + stats.Dispatched + stats.Completed + stats.Failed
	if total == 0 {
		builder.WriteString(dimStyle.Render("frontier is empty"))
	} else {
		builder.WriteString(titleStyle.Render(fmt.Sprintf("%d completed, %d failed, %d total", stats.Completed, stats.Failed, total)))
	}
	builder.WriteString("\n")

	return builder.String()
}
