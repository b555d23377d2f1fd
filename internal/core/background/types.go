package background

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a background task
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"   // Process still alive
	TaskStatusCompleted TaskStatus = "completed" // Exited with code 0
	TaskStatusKilled    TaskStatus = "killed"    // Terminated by kill or abort
	TaskStatusFailed    TaskStatus = "failed"    // Non-zero exit or signal
)

// Terminal reports whether s is a final status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusKilled || s == TaskStatusFailed
}

// Task is a detached command tracked by the registry
type Task struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id,omitempty"`
	Command   string     `json:"command"`
	Directory string     `json:"directory,omitempty"`
	PID       int        `json:"pid"`
	PGID      int        `json:"pgid"`
	Status    TaskStatus `json:"status"`
	Output    string     `json:"output"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskSpec describes a task at detachment time.
type TaskSpec struct {
	SessionID string
	Command   string
	Directory string
	PID       int
	PGID      int
	// Output is everything buffered before detachment.
	Output string
}

// NewTask creates a new task with running status
func NewTask(spec TaskSpec) *Task {
	now := time.Now()
	pgid := spec.PGID
	if pgid <= 0 {
		pgid = spec.PID
	}
	return &Task{
		ID:        uuid.New().String(),
		SessionID: spec.SessionID,
		Command:   spec.Command,
		Directory: spec.Directory,
		PID:       spec.PID,
		PGID:      pgid,
		Status:    TaskStatusRunning,
		Output:    spec.Output,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo checks if a status transition is valid
func (t *Task) CanTransitionTo(newStatus TaskStatus) bool {
	return t.Status == TaskStatusRunning && newStatus.Terminal()
}

// TransitionStatus updates the task status if the transition is valid
func (t *Task) TransitionStatus(newStatus TaskStatus) bool {
	if !t.CanTransitionTo(newStatus) {
		return false
	}
	t.Status = newStatus
	t.UpdatedAt = time.Now()
	return true
}

// StatusFromResult maps how an execution ended to a final task status.
func StatusFromResult(cancelled bool, exitCode *int) TaskStatus {
	switch {
	case cancelled:
		return TaskStatusKilled
	case exitCode != nil && *exitCode == 0:
		return TaskStatusCompleted
	default:
		return TaskStatusFailed
	}
}
