// Package tui is the interactive background task viewer.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
)

// TaskSource is the subset of the background registry the viewer needs.
type TaskSource interface {
	ListTasks() []*background.Task
	Kill(id string) error
}

// TickMsg triggers a periodic reload
type TickMsg time.Time

// TasksLoadedMsg is sent when tasks are loaded
type TasksLoadedMsg struct {
	Tasks []*background.Task
}

// KillResultMsg is sent when a kill request completes
type KillResultMsg struct {
	TaskID string
	Err    error
}

// Model is the interface for the TUI model
type Model interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}

// Run opens the viewer on source and blocks until the user quits.
func Run(source TaskSource) error {
	_, err := tea.NewProgram(NewModel(source), tea.WithAltScreen()).Run()
	return err
}
