// Package background tracks commands that were detached from their caller.
//
// Each task is written only by the execution that produced it (output,
// final status) and by explicit kill requests, so the registry keeps one
// mutex per task and a lock-free index instead of a global lock.
package background

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/proc"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
)

var (
	// ErrTaskNotFound is returned for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskNotRunning is returned when killing a finished task.
	ErrTaskNotRunning = errors.New("task is not running")
)

type entry struct {
	mu            sync.Mutex
	task          Task
	output        strings.Builder
	killRequested bool
}

func (e *entry) snapshot() *Task {
	t := e.task
	t.Output = e.output.String()
	if e.task.ExitCode != nil {
		code := *e.task.ExitCode
		t.ExitCode = &code
	}
	return &t
}

// Registry tracks background tasks for one host process.
type Registry struct {
	tasks sync.Map // id -> *entry
	term  proc.Terminator
	store *Store
	log   *logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore persists a snapshot on every create and status change.
func WithStore(store *Store) Option {
	return func(r *Registry) { r.store = store }
}

// WithLogger sets the registry logger.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log.Component("registry")
		}
	}
}

// NewRegistry creates an empty registry that kills through term.
func NewRegistry(term proc.Terminator, opts ...Option) *Registry {
	if term == nil {
		term = proc.Tree{}
	}
	r := &Registry{term: term, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTask registers a running task and returns its id.
func (r *Registry) CreateTask(spec TaskSpec) string {
	task := NewTask(spec)
	e := &entry{task: *task}
	e.output.WriteString(spec.Output)
	e.task.Output = ""
	r.tasks.Store(task.ID, e)

	r.log.Info("background task created",
		zap.String("task_id", task.ID),
		zap.Int("pid", task.PID),
		zap.Int("pgid", task.PGID),
	)
	r.persist()
	return task.ID
}

// AppendOutput adds chunk to the task's output. Unknown ids are ignored.
func (r *Registry) AppendOutput(id, chunk string) {
	e, ok := r.entry(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.output.WriteString(chunk)
	e.task.UpdatedAt = time.Now()
	e.mu.Unlock()
}

// UpdateTaskStatus records the final status of a running task. A task
// that was asked to die and then reports failure is recorded as killed.
// It returns false for unknown ids and invalid transitions.
func (r *Registry) UpdateTaskStatus(id string, status TaskStatus, exitCode *int) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	if status == TaskStatusFailed && e.killRequested {
		status = TaskStatusKilled
	}
	if !e.task.TransitionStatus(status) {
		from := e.task.Status
		e.mu.Unlock()
		r.log.Warn("invalid task transition",
			zap.String("task_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(status)),
		)
		return false
	}
	if exitCode != nil {
		code := *exitCode
		e.task.ExitCode = &code
	}
	e.mu.Unlock()

	r.log.Info("background task finished", zap.String("task_id", id), zap.String("status", string(status)))
	r.persist()
	return true
}

// GetTask returns a snapshot of the task.
func (r *Registry) GetTask(id string) (*Task, bool) {
	e, ok := r.entry(id)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), true
}

// ListTasks returns snapshots of all tasks, oldest first.
func (r *Registry) ListTasks() []*Task {
	var tasks []*Task
	r.tasks.Range(func(_, value any) bool {
		e := value.(*entry)
		e.mu.Lock()
		tasks = append(tasks, e.snapshot())
		e.mu.Unlock()
		return true
	})
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Kill terminates a running task's process group. A nil error means the
// signal was delivered; the final status arrives through UpdateTaskStatus.
func (r *Registry) Kill(id string) error {
	e, ok := r.entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	e.mu.Lock()
	if e.task.Status != TaskStatusRunning {
		status := e.task.Status
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrTaskNotRunning, id, status)
	}
	e.killRequested = true
	target := e.task.PGID
	e.mu.Unlock()

	if err := r.term.Terminate(target); err != nil {
		e.mu.Lock()
		e.killRequested = false
		e.mu.Unlock()
		r.log.Warn("failed to kill background task", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("failed to kill task %s: %w", id, err)
	}

	r.log.Info("kill signal delivered", zap.String("task_id", id), zap.Int("pgid", target))
	return nil
}

// KillTask is Kill reporting only whether the signal was delivered.
func (r *Registry) KillTask(id string) bool {
	return r.Kill(id) == nil
}

func (r *Registry) entry(id string) (*entry, bool) {
	value, ok := r.tasks.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*entry), true
}

func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSnapshot(r.ListTasks); err != nil {
		r.log.Warn("failed to save task snapshot", zap.String("path", r.store.Path()), zap.Error(err))
	}
}
