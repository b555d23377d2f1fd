package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
)

type fakeSource struct {
	tasks  []*background.Task
	killed []string
	err    error
}

func (f *fakeSource) ListTasks() []*background.Task { return f.tasks }

func (f *fakeSource) Kill(id string) error {
	f.killed = append(f.killed, id)
	return f.err
}

func newSource(n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.tasks = append(src.tasks, &background.Task{
			ID:        string(rune('a'+i)) + "1234567890",
			Command:   "sleep 10",
			Status:    background.TaskStatusRunning,
			Output:    "line one\nline two\n",
			CreatedAt: time.Now(),
		})
	}
	return src
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m, ok := NewModel(newSource(1)).(model)
	if !ok {
		t.Fatal("Expected model type")
	}

	if len(m.tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(m.tasks))
	}
	if m.cursor != 0 {
		t.Errorf("Expected cursor at 0, got %d", m.cursor)
	}
	if m.interval != RefreshInterval {
		t.Errorf("Expected default interval, got %s", m.interval)
	}
}

func TestModel_Init(t *testing.T) {
	m := NewModel(newSource(0)).(model)

	if cmd := m.Init(); cmd == nil {
		t.Error("Expected command from Init")
	}
}

func TestModel_Navigation(t *testing.T) {
	m := NewModel(newSource(3)).(model)

	next, _ := m.Update(keyRunes("j"))
	m = next.(model)
	if m.cursor != 1 {
		t.Errorf("Expected cursor at 1, got %d", m.cursor)
	}

	next, _ = m.Update(keyRunes("G"))
	m = next.(model)
	if m.cursor != 2 {
		t.Errorf("Expected cursor at bottom, got %d", m.cursor)
	}

	next, _ = m.Update(keyRunes("j"))
	m = next.(model)
	if m.cursor != 2 {
		t.Errorf("Expected cursor to stay at bottom, got %d", m.cursor)
	}

	next, _ = m.Update(keyRunes("g"))
	next, _ = next.(model).Update(keyRunes("g"))
	m = next.(model)
	if m.cursor != 0 {
		t.Errorf("Expected gg to jump to top, got %d", m.cursor)
	}

	next, _ = m.Update(keyRunes("k"))
	if next.(model).cursor != 0 {
		t.Error("Expected cursor to stay at top")
	}
}

func TestModel_TasksLoadedClampsCursor(t *testing.T) {
	m := NewModel(newSource(3)).(model)
	m.cursor = 2

	next, _ := m.Update(TasksLoadedMsg{Tasks: newSource(1).tasks})
	m = next.(model)
	if m.cursor != 0 {
		t.Errorf("Expected cursor clamped to 0, got %d", m.cursor)
	}
	if len(m.tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(m.tasks))
	}
}

func TestModel_Kill(t *testing.T) {
	src := newSource(2)
	m := NewModel(src).(model)
	m.cursor = 1

	_, cmd := m.Update(keyRunes("x"))
	if cmd == nil {
		t.Fatal("Expected kill command")
	}

	msg, ok := cmd().(KillResultMsg)
	if !ok {
		t.Fatalf("Expected KillResultMsg, got %T", msg)
	}
	if msg.TaskID != src.tasks[1].ID {
		t.Errorf("Expected kill of %s, got %s", src.tasks[1].ID, msg.TaskID)
	}
	if len(src.killed) != 1 {
		t.Errorf("Expected 1 kill, got %d", len(src.killed))
	}

	next, reload := m.Update(msg)
	if !strings.Contains(next.(model).status, "kill signal sent") {
		t.Errorf("Unexpected status: %q", next.(model).status)
	}
	if reload == nil {
		t.Error("Expected reload after kill")
	}
}

func TestModel_KillError(t *testing.T) {
	src := newSource(1)
	src.err = errors.New("task not running")
	m := NewModel(src).(model)

	next, _ := m.Update(KillResultMsg{TaskID: src.tasks[0].ID, Err: src.err})
	if !strings.Contains(next.(model).status, "task not running") {
		t.Errorf("Expected error in status, got %q", next.(model).status)
	}
}

func TestModel_OutputView(t *testing.T) {
	src := newSource(1)
	m := NewModel(src).(model)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if m.viewing != src.tasks[0].ID {
		t.Fatalf("Expected output view of %s, got %q", src.tasks[0].ID, m.viewing)
	}

	view := m.View()
	if !strings.Contains(view, "line two") {
		t.Errorf("Expected output in view, got:\n%s", view)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(model).viewing != "" {
		t.Error("Expected esc to return to the list")
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(newSource(0)).(model)

	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	m := NewModel(newSource(0)).(model)

	if !strings.Contains(m.View(), "no background tasks") {
		t.Error("Expected empty state in view")
	}
}

func TestModel_ViewList(t *testing.T) {
	src := newSource(2)
	src.tasks[1].Status = background.TaskStatusCompleted
	m := NewModel(src).(model)

	view := m.View()
	if !strings.Contains(view, "sleep 10") {
		t.Error("Expected command in view")
	}
	if !strings.Contains(view, shortID(src.tasks[0].ID)) {
		t.Error("Expected short task id in view")
	}
}

func TestCountLines(t *testing.T) {
	tests := map[string]int{
		"":         0,
		"a":        1,
		"a\n":      1,
		"a\nb":     2,
		"a\nb\n\n": 3,
	}
	for in, want := range tests {
		if got := countLines(in); got != want {
			t.Errorf("countLines(%q) = %d, want %d", in, got, want)
		}
	}
}
