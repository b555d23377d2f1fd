// Package execution decides, for each running command, whether it stays in
// the foreground until it exits or is detached into the background registry.
package execution

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/proc"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
)

const (
	// DefaultThreshold is how long a command runs before it becomes a
	// background candidate.
	DefaultThreshold = 2 * time.Second
	// DefaultPollInterval is the predicate check period.
	DefaultPollInterval = 500 * time.Millisecond
)

// Config holds controller timing.
type Config struct {
	Threshold    time.Duration `mapstructure:"background_threshold"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DefaultConfig returns the built-in timing.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, PollInterval: DefaultPollInterval}
}

// Starter spawns executions. *shell.Executor implements it.
type Starter interface {
	Start(ctx context.Context, req shell.Request) (*shell.Handle, error)
}

// Request describes one command to run.
type Request struct {
	Command   string
	Dir       string
	Timeout   time.Duration
	SessionID string
	// RunInBackground detaches automatically once the threshold passes.
	RunInBackground bool
	// Foreground disables detachment entirely.
	Foreground bool
	// OnOutput mirrors output while the command is in the foreground.
	OnOutput func(shell.OutputEvent)
}

// Outcome is what the caller gets back: either the finished result or a
// handle on the background task.
type Outcome struct {
	Result       *shell.Result
	Backgrounded bool
	TaskID       string
	// Output is the full output, or what was buffered before detaching.
	Output string
	PID    int
}

// Controller runs commands and moves long-running ones to the registry.
type Controller struct {
	starter  Starter
	registry *background.Registry
	notifier Notifier
	cfg      Config
	log      *logger.Logger

	pendingMu sync.Mutex
	pending   map[string]chan struct{}
}

// NewController creates a new controller. notifier may be nil.
func NewController(starter Starter, registry *background.Registry, notifier Notifier, cfg Config, log *logger.Logger) *Controller {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Event) {})
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		starter:  starter,
		registry: registry,
		notifier: notifier,
		cfg:      cfg,
		log:      log.Component("execution"),
		pending:  make(map[string]chan struct{}),
	}
}

// Registry returns the registry detached commands go to.
func (c *Controller) Registry() *background.Registry {
	return c.registry
}

// MoveToBackground approves the prompt identified by token. It returns
// false if the token is unknown or the command already finished.
func (c *Controller) MoveToBackground(token string) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	ch, ok := c.pending[token]
	if !ok {
		return false
	}
	delete(c.pending, token)
	close(ch)
	return true
}

// PendingTokens lists prompts awaiting an answer.
func (c *Controller) PendingTokens() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	tokens := make([]string, 0, len(c.pending))
	for token := range c.pending {
		tokens = append(tokens, token)
	}
	return tokens
}

func (c *Controller) addPending(token string) <-chan struct{} {
	ch := make(chan struct{})
	c.pendingMu.Lock()
	c.pending[token] = ch
	c.pendingMu.Unlock()
	return ch
}

func (c *Controller) clearPending(token string) {
	c.pendingMu.Lock()
	delete(c.pending, token)
	c.pendingMu.Unlock()
}

// sink routes output to the local buffer until the execution is detached,
// then to the registry. The switch happens under mu, so every chunk lands
// in exactly one place.
type sink struct {
	mu        sync.Mutex
	buffer    strings.Builder
	sawOutput bool
	taskID    string
	registry  *background.Registry
	mirror    func(shell.OutputEvent)
}

func (s *sink) write(ev shell.OutputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sawOutput = true
	if s.taskID != "" {
		if ev.Text != "" {
			s.registry.AppendOutput(s.taskID, ev.Text)
		}
		return
	}
	s.buffer.WriteString(ev.Text)
	if s.mirror != nil {
		s.mirror(ev)
	}
}

func (s *sink) state() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawOutput, s.buffer.String()
}

// Execute runs req until it finishes or is detached. The returned error is
// non-nil only for validation failures; everything else is in the Outcome.
func (c *Controller) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, shell.ErrEmptyCommand
	}

	// The process must outlive ctx once detached; foreground cancellation
	// is forwarded explicitly below.
	execCtx, cancelExec := context.WithCancel(context.WithoutCancel(ctx))

	out := &sink{registry: c.registry, mirror: req.OnOutput}
	h, err := c.starter.Start(execCtx, shell.Request{
		Command:  req.Command,
		Dir:      req.Dir,
		Timeout:  req.Timeout,
		OnOutput: out.write,
	})
	if err != nil {
		cancelExec()
		return nil, err
	}

	log := c.log.WithFields(zap.Int("pid", h.PID()))

	var tick <-chan time.Time
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	if !req.Foreground {
		tick = ticker.C
	} else {
		ticker.Stop()
	}

	var (
		token    string
		approved <-chan struct{}
	)
	defer func() {
		if token != "" {
			c.clearPending(token)
		}
	}()

	for {
		select {
		case <-h.Done():
			cancelExec()
			return c.completed(h, token), nil

		case <-ctx.Done():
			log.Info("caller canceled foreground command")
			h.Abort()
			<-h.Done()
			cancelExec()
			return c.completed(h, token), nil

		case <-approved:
			log.Info("background move approved", zap.String("token", token))
			return c.detach(h, req, out, token, cancelExec), nil

		case <-tick:
			elapsed := time.Since(h.Started())
			if elapsed < c.cfg.Threshold {
				continue
			}
			if req.RunInBackground {
				return c.detach(h, req, out, "", cancelExec), nil
			}

			sawOutput, buffered := out.state()
			if !sawOutput || token != "" {
				continue
			}
			token = uuid.New().String()
			approved = c.addPending(token)
			ticker.Stop()
			tick = nil
			log.Debug("prompting for background move", zap.String("token", token))
			c.notifier.Notify(Event{
				Type:    EventPromptBackground,
				Token:   token,
				Command: req.Command,
				Output:  buffered,
			})
		}
	}
}

func (c *Controller) completed(h *shell.Handle, token string) *Outcome {
	result := h.Wait()
	if token != "" {
		c.clearPending(token)
		c.notifier.Notify(Event{Type: EventBackgroundMoved, Token: token, Detached: false})
	}
	return &Outcome{Result: result, Output: result.Output, PID: result.PID}
}

// detach moves a running execution into the registry. If the process
// already exited, the caller gets the finished result instead.
func (c *Controller) detach(h *shell.Handle, req Request, out *sink, token string, cancelExec context.CancelFunc) *Outcome {
	out.mu.Lock()
	select {
	case <-h.Done():
		out.mu.Unlock()
		cancelExec()
		return c.completed(h, token)
	default:
	}

	pid := h.PID()
	buffered := out.buffer.String()
	taskID := c.registry.CreateTask(background.TaskSpec{
		SessionID: req.SessionID,
		Command:   req.Command,
		Directory: req.Dir,
		PID:       pid,
		PGID:      proc.ProcessGroup(pid),
		Output:    buffered,
	})
	out.taskID = taskID
	out.mu.Unlock()

	go func() {
		result := h.Wait()
		cancelExec()
		c.registry.UpdateTaskStatus(taskID, background.StatusFromResult(result.Cancelled, result.ExitCode), result.ExitCode)
	}()

	c.log.Info("command moved to background", zap.String("task_id", taskID), zap.Int("pid", pid))
	if token != "" {
		c.clearPending(token)
		c.notifier.Notify(Event{Type: EventBackgroundMoved, Token: token, TaskID: taskID, Detached: true})
	}
	return &Outcome{Backgrounded: true, TaskID: taskID, Output: buffered, PID: pid}
}
