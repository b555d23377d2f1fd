package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
)

// Renderer handles TUI rendering
type Renderer struct {
	width  int
	height int
	style  *StyleConfig
}

// StyleConfig defines visual styles
type StyleConfig struct {
	TitleColor    lipgloss.Color
	SubtleColor   lipgloss.Color
	ErrorColor    lipgloss.Color
	SuccessColor  lipgloss.Color
	WarningColor  lipgloss.Color
	SelectedColor lipgloss.Color
	BorderColor   lipgloss.Color
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	return &StyleConfig{
		TitleColor:    lipgloss.Color("10"),  // Green
		SubtleColor:   lipgloss.Color("241"), // Grey
		ErrorColor:    lipgloss.Color("9"),   // Red
		SuccessColor:  lipgloss.Color("10"),  // Green
		WarningColor:  lipgloss.Color("11"),  // Yellow
		SelectedColor: lipgloss.Color("12"),  // Blue
		BorderColor:   lipgloss.Color("8"),   // Dark grey
	}
}

// NewRenderer creates a new TUI renderer
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		style:  DefaultStyleConfig(),
	}
}

// Render renders the task list
func (r *Renderer) Render(mdl *model) string {
	body := r.renderTasks(mdl)
	footer := r.renderFooter(mdl, mdl.keys.shortHelp())
	return r.renderHeader("tadash background tasks") + "\n" + r.pad(body, footer) + footer
}

// RenderOutput renders the output view for task
func (r *Renderer) RenderOutput(mdl *model, task *background.Task) string {
	if task == nil {
		return r.renderHeader("task not found") + "\n" + r.renderFooter(mdl, mdl.keys.outputHelp())
	}

	header := r.renderHeader(fmt.Sprintf("%s  %s", shortID(task.ID), task.Command))
	meta := lipgloss.NewStyle().
		Foreground(r.style.SubtleColor).
		Render(fmt.Sprintf("  status: %s  pid: %d  started: %s", task.Status, task.PID, task.CreatedAt.Format(time.TimeOnly)))

	output := task.Output
	if output == "" {
		output = "(no output yet)"
	}
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if r.height > 0 {
		// header(2) + meta(1) + blank(1) + footer(2)
		if avail := r.height - 6; avail > 0 && len(lines) > avail {
			lines = lines[len(lines)-avail:]
		}
	}

	return header + "\n" + meta + "\n\n" + strings.Join(lines, "\n") + "\n" + r.renderFooter(mdl, mdl.keys.outputHelp())
}

func (r *Renderer) renderHeader(title string) string {
	styled := lipgloss.NewStyle().
		Foreground(r.style.TitleColor).
		Bold(true).
		Render(title)

	width := r.width
	if width <= 0 {
		width = 62
	}
	border := lipgloss.NewStyle().
		Foreground(r.style.BorderColor).
		Render(strings.Repeat("─", width))

	return styled + "\n" + border
}

func (r *Renderer) renderTasks(mdl *model) string {
	if len(mdl.tasks) == 0 {
		return r.renderEmptyState()
	}

	var b strings.Builder
	for i, task := range mdl.tasks {
		b.WriteString(r.renderTask(task, i == mdl.cursor))
	}
	return b.String()
}

func (r *Renderer) renderEmptyState() string {
	return lipgloss.NewStyle().
		Foreground(r.style.SubtleColor).
		Render("\n  no background tasks\n")
}

func (r *Renderer) renderTask(task *background.Task, selected bool) string {
	cursor := " "
	if selected {
		cursor = ">"
	}

	line := fmt.Sprintf("[%s] %s  %s", r.renderStatus(task.Status), shortID(task.ID), r.renderCommand(task.Command, selected))
	age := lipgloss.NewStyle().
		Foreground(r.style.SubtleColor).
		Render(formatAge(time.Since(task.CreatedAt)))

	return fmt.Sprintf("  %s %s  %s\n", cursor, line, age)
}

func (r *Renderer) renderStatus(status background.TaskStatus) string {
	var symbol string
	var color lipgloss.Color

	switch status {
	case background.TaskStatusRunning:
		symbol = "⋯"
		color = r.style.WarningColor
	case background.TaskStatusCompleted:
		symbol = "✓"
		color = r.style.SuccessColor
	case background.TaskStatusKilled:
		symbol = "✗"
		color = r.style.SubtleColor
	case background.TaskStatusFailed:
		symbol = "!"
		color = r.style.ErrorColor
	default:
		symbol = "?"
		color = r.style.SubtleColor
	}

	return lipgloss.NewStyle().Foreground(color).Render(symbol)
}

func (r *Renderer) renderCommand(command string, selected bool) string {
	maxLen := 50
	if r.width > 40 {
		maxLen = r.width - 30
	}
	runes := []rune(command)
	if len(runes) > maxLen {
		command = string(runes[:maxLen-3]) + "..."
	}

	color := r.style.TitleColor
	if selected {
		color = r.style.SelectedColor
	}
	return lipgloss.NewStyle().Foreground(color).Render(command)
}

func (r *Renderer) renderFooter(mdl *model, keys []key) string {
	style := lipgloss.NewStyle().
		Foreground(r.style.SubtleColor)

	footer := "\n" + style.Render(joinHelp(keys, " "))
	if mdl.status != "" {
		footer = "\n" + lipgloss.NewStyle().Foreground(r.style.WarningColor).Render(mdl.status) + footer
	}
	return footer
}

// pad pushes the footer to the bottom of the window when the height is known.
func (r *Renderer) pad(body, footer string) string {
	if r.height <= 0 {
		return body
	}
	used := 2 + countLines(body) + countLines(footer)
	if used >= r.height {
		return body
	}
	return body + strings.Repeat("\n", r.height-used)
}

// countLines counts the number of lines in a string
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		count++
	}
	return count
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
