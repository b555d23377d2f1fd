package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
)

// RefreshInterval is how often the viewer reloads the task list.
const RefreshInterval = 500 * time.Millisecond

// model is the Bubble Tea model for the task viewer
type model struct {
	source   TaskSource
	tasks    []*background.Task
	cursor   int
	keys     keyMap
	viewing  string // task id whose output is shown, empty for the list
	status   string
	pendingG bool // Tracks if 'g' was pressed for 'gg' command
	interval time.Duration
	renderer *Renderer
}

// NewModel creates a viewer over source
func NewModel(source TaskSource) Model {
	return NewModelWithInterval(source, RefreshInterval)
}

// NewModelWithInterval creates a viewer with a custom refresh interval
func NewModelWithInterval(source TaskSource, interval time.Duration) Model {
	if interval <= 0 {
		interval = RefreshInterval
	}
	return model{
		source:   source,
		tasks:    source.ListTasks(),
		keys:     defaultKeyMap(),
		interval: interval,
		renderer: NewRenderer(0, 0),
	}
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.WindowSize(),
		m.tick(),
	)
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) load() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		return TasksLoadedMsg{Tasks: source.ListTasks()}
	}
}

func (m model) kill(id string) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		return KillResultMsg{TaskID: id, Err: source.Kill(id)}
	}
}

// Update handles messages
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.renderer.width = msg.Width
		m.renderer.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case TasksLoadedMsg:
		m.tasks = msg.Tasks
		if m.cursor >= len(m.tasks) {
			m.cursor = max(len(m.tasks)-1, 0)
		}
		return m, nil

	case KillResultMsg:
		if msg.Err != nil {
			m.status = fmt.Sprintf("kill %s: %v", shortID(msg.TaskID), msg.Err)
		} else {
			m.status = fmt.Sprintf("kill signal sent to %s", shortID(msg.TaskID))
		}
		return m, m.load()
	}

	return m, nil
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.viewing != "" {
		switch msg.String() {
		case "esc", "q", "enter":
			m.viewing = ""
		case "x":
			return m, m.kill(m.viewing)
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "k", "up":
		m.pendingG = false
		if m.cursor > 0 {
			m.cursor--
		}
	case "j", "down":
		m.pendingG = false
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "g":
		// Handle vim-style gg to go to top
		if m.pendingG {
			m.cursor = 0
			m.pendingG = false
		} else {
			m.pendingG = true
		}
	case "G":
		m.pendingG = false
		if len(m.tasks) > 0 {
			m.cursor = len(m.tasks) - 1
		}
	case "enter":
		m.pendingG = false
		if task := m.selected(); task != nil {
			m.viewing = task.ID
		}
	case "x":
		m.pendingG = false
		if task := m.selected(); task != nil {
			return m, m.kill(task.ID)
		}
	case "r":
		m.pendingG = false
		return m, m.load()
	default:
		m.pendingG = false
	}

	return m, nil
}

func (m model) selected() *background.Task {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.cursor]
}

func (m model) task(id string) *background.Task {
	for _, task := range m.tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

// View renders the UI
func (m model) View() string {
	if m.viewing != "" {
		return m.renderer.RenderOutput(&m, m.task(m.viewing))
	}
	return m.renderer.Render(&m)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
