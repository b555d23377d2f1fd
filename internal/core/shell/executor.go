package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/proc"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
)

// waitDelay bounds how long Wait keeps reading pipes that a detached
// grandchild still holds open after the shell itself has exited.
const waitDelay = 500 * time.Millisecond

// Executor spawns shell commands.
type Executor struct {
	cfg  Config
	term proc.Terminator
	log  *logger.Logger
}

// NewExecutor creates a new executor. Zero config fields take defaults.
func NewExecutor(cfg Config, log *logger.Logger) *Executor {
	def := DefaultConfig()
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.MaxTimeout <= 0 || cfg.MaxTimeout > MaxTimeout {
		cfg.MaxTimeout = def.MaxTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = def.KillGrace
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		cfg:  cfg,
		term: proc.Tree{Grace: cfg.KillGrace},
		log:  log.Component("shell"),
	}
}

// Terminator returns the process-tree terminator the executor uses.
func (e *Executor) Terminator() proc.Terminator {
	return e.term
}

// Timeout returns the effective timeout for a requested one.
func (e *Executor) Timeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = e.cfg.DefaultTimeout
	}
	if requested > e.cfg.MaxTimeout {
		requested = e.cfg.MaxTimeout
	}
	return requested
}

// Run executes req and waits for the result.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	h, err := e.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// Start spawns req.Command and returns immediately. Only validation errors
// are returned; spawn failures are reported through Result.Error. Canceling
// ctx aborts the execution.
func (e *Executor) Start(ctx context.Context, req Request) (*Handle, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, ErrEmptyCommand
	}

	sh := resolveShell(e.cfg.Shell)
	pidFile := createPIDFile(sh)
	cmd := sh.command(req.Command, pidFile)
	cmd.Dir = req.Dir
	cmd.WaitDelay = waitDelay

	r := &run{
		onOutput: req.OnOutput,
		maxBytes: e.cfg.MaxOutputBytes,
		limit:    make(chan struct{}),
	}
	cmd.Stdout = streamWriter{r: r, stream: Stdout}
	cmd.Stderr = streamWriter{r: r, stream: Stderr}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		removePIDFile(pidFile)
		e.log.Warn("failed to start shell", zap.String("shell", sh.path), zap.Error(err))
		return resolved(&Result{Error: fmt.Errorf("failed to start shell: %w", err)}), nil
	}

	pid := cmd.Process.Pid
	h := &Handle{
		pid:     pid,
		started: started,
		done:    make(chan struct{}),
	}

	var aborted atomic.Value
	var abortOnce sync.Once
	h.abort = func(reason string) {
		select {
		case <-h.done:
			return
		default:
		}
		abortOnce.Do(func() {
			aborted.Store(reason)
			e.log.Info("aborting command", zap.Int("pid", pid), zap.String("reason", reason))
			if err := e.term.Terminate(pid); err != nil {
				e.log.Warn("failed to terminate process tree", zap.Int("pid", pid), zap.Error(err))
			}
		})
	}
	go func() {
		select {
		case <-r.limit:
			h.abort(AbortOutputLimit)
		case <-h.done:
		}
	}()

	timeout := e.Timeout(req.Timeout)
	timer := time.AfterFunc(timeout, func() { h.abort(AbortTimeout) })
	stopCtx := context.AfterFunc(ctx, func() { h.abort(AbortCanceled) })

	e.log.Debug("command started",
		zap.Int("pid", pid),
		zap.String("shell", sh.path),
		zap.Duration("timeout", timeout),
	)

	go func() {
		waitErr := cmd.Wait()
		timer.Stop()
		stopCtx()

		result := r.finish()
		result.PID = pid
		result.Duration = time.Since(started)
		if reason, ok := aborted.Load().(string); ok {
			result.Cancelled = true
			result.AbortReason = reason
		}
		fillExitStatus(result, cmd.ProcessState, waitErr)
		result.BackgroundPIDs = readPIDFile(pidFile, pid)
		removePIDFile(pidFile)

		h.result = result
		close(h.done)

		e.log.Debug("command finished",
			zap.Int("pid", pid),
			zap.Bool("cancelled", result.Cancelled),
			zap.String("signal", result.Signal),
			zap.Duration("duration", result.Duration),
		)
	}()

	return h, nil
}

func fillExitStatus(result *Result, state *os.ProcessState, waitErr error) {
	if state == nil {
		if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
			result.Error = waitErr
		}
		return
	}
	if sig := signalName(state); sig != "" {
		result.Signal = sig
		return
	}
	code := state.ExitCode()
	if code >= 0 {
		result.ExitCode = &code
	}
}

// run is the mutable state of one execution's output pipeline. Both pipe
// goroutines write through it; mu serializes them so events reach the sink
// in arrival order and never after finish.
type run struct {
	mu       sync.Mutex
	onOutput func(OutputEvent)
	maxBytes int64
	// limit is closed when maxBytes is reached.
	limit chan struct{}

	raw      []byte
	total    int64
	limitHit bool
	finished bool

	decoders map[Stream]*streamDecoder
	combined strings.Builder
	stdout   strings.Builder
	stderr   strings.Builder

	sniffed int
	binary  bool
}

type streamWriter struct {
	r      *run
	stream Stream
}

func (w streamWriter) Write(p []byte) (int, error) {
	w.r.write(w.stream, p)
	return len(p), nil
}

func (r *run) write(stream Stream, p []byte) {
	if len(p) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished || r.limitHit {
		return
	}

	if remaining := r.maxBytes - r.total; int64(len(p)) > remaining {
		p = p[:remaining]
		r.limitHit = true
		close(r.limit)
	}
	if len(p) == 0 {
		return
	}
	r.total += int64(len(p))
	r.raw = append(r.raw, p...)

	if r.decoders == nil {
		enc := sniffEncoding(p)
		r.decoders = map[Stream]*streamDecoder{
			Stdout: newStreamDecoder(enc),
			Stderr: newStreamDecoder(enc),
		}
	}

	justDetected := false
	if !r.binary && r.sniffed < SniffLength {
		window := p
		if n := SniffLength - r.sniffed; len(window) > n {
			window = window[:n]
		}
		r.sniffed += len(window)
		if containsNUL(window) {
			r.binary = true
			justDetected = true
		}
	}

	text := r.decoders[stream].decode(p, false)
	r.appendText(stream, text)

	if r.onOutput == nil {
		return
	}
	switch {
	case justDetected:
		r.onOutput(OutputEvent{Type: EventBinaryDetected, Stream: stream, BytesReceived: r.total})
	case r.binary:
		r.onOutput(OutputEvent{Type: EventBinaryProgress, Stream: stream, BytesReceived: r.total})
	default:
		if clean := ansi.Strip(text); clean != "" {
			r.onOutput(OutputEvent{Type: EventData, Stream: stream, Text: clean})
		}
	}
}

func (r *run) appendText(stream Stream, text string) {
	if text == "" {
		return
	}
	r.combined.WriteString(text)
	if stream == Stderr {
		r.stderr.WriteString(text)
	} else {
		r.stdout.WriteString(text)
	}
}

// finish flushes decoder tails and freezes the output. No event is
// delivered after it returns.
func (r *run) finish() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	for _, stream := range []Stream{Stdout, Stderr} {
		if d := r.decoders[stream]; d != nil {
			r.appendText(stream, d.decode(nil, true))
		}
	}

	return &Result{
		RawOutput:      r.raw,
		Output:         ansi.Strip(r.combined.String()),
		Stdout:         ansi.Strip(r.stdout.String()),
		Stderr:         ansi.Strip(r.stderr.String()),
		BinaryDetected: r.binary,
	}
}

func containsNUL(p []byte) bool {
	for _, b := range p {
		if b == 0 {
			return true
		}
	}
	return false
}

// createPIDFile reserves the temp file the wrapper lists surviving group
// members into. Listing is best-effort: on failure no file is used.
func createPIDFile(sh shellInfo) string {
	if !sh.listsPIDs() {
		return ""
	}
	f, err := os.CreateTemp("", "tadash-pgrep-*.tmp")
	if err != nil {
		return ""
	}
	name := f.Name()
	_ = f.Close()
	return name
}

func removePIDFile(name string) {
	if name != "" {
		_ = os.Remove(name)
	}
}

// readPIDFile returns the listed pids other than the shell's own.
func readPIDFile(name string, shellPID int) []int {
	if name == "" {
		return nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil
	}
	var pids []int
	for _, field := range strings.Fields(string(data)) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid == shellPID {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
