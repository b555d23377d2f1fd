//go:build !windows

package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/proc"
)

func newTestExecutor(cfg Config) *Executor {
	cfg.Shell = "/bin/sh"
	return NewExecutor(cfg, nil)
}

func TestRun_SimpleCommand(t *testing.T) {
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "echo hello world"})
	require.NoError(t, err)

	assert.NoError(t, result.Error)
	assert.Equal(t, "hello world\n", result.Output)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.True(t, result.Succeeded())
	assert.False(t, result.Cancelled)
	assert.NotZero(t, result.PID)
}

func TestRun_TrailingComment(t *testing.T) {
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "echo hi # say hi"})
	require.NoError(t, err)

	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Equal(t, "hi\n", result.Output)
}

func TestRun_UTF8AfterLongASCIIPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 1100)+"héllo wörld\n"), 0644))
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "cat " + path})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Output, "aahéllo wörld\n"), "got %q", result.Output)
}

func TestRun_EmptyCommand(t *testing.T) {
	executor := newTestExecutor(Config{})

	_, err := executor.Run(context.Background(), Request{Command: "  \n"})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRun_ExitCode(t *testing.T) {
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "exit 3"})
	require.NoError(t, err)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 3, *result.ExitCode)
	assert.Empty(t, result.Signal)
	assert.False(t, result.Succeeded())
}

func TestRun_SeparateStreams(t *testing.T) {
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "echo out; echo err 1>&2"})
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
}

func TestRun_SpawnFailure(t *testing.T) {
	executor := NewExecutor(Config{Shell: "/nonexistent/shell-xyz"}, nil)

	result, err := executor.Run(context.Background(), Request{Command: "echo hi"})
	require.NoError(t, err)
	assert.Error(t, result.Error)
	assert.Zero(t, result.PID)
	assert.Nil(t, result.ExitCode)
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "pwd -P", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(result.Output))
}

func TestRun_Timeout(t *testing.T) {
	executor := newTestExecutor(Config{})

	start := time.Now()
	result, err := executor.Run(context.Background(), Request{
		Command: "echo before; sleep 5; echo after",
		Timeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 4*time.Second)
	assert.True(t, result.Cancelled)
	assert.Equal(t, AbortTimeout, result.AbortReason)
	assert.Contains(t, result.Output, "before")
	assert.NotContains(t, result.Output, "after")
}

func TestRun_ContextCancel(t *testing.T) {
	executor := newTestExecutor(Config{})
	ctx, cancel := context.WithCancel(context.Background())

	h, err := executor.Start(ctx, Request{Command: "sleep 5"})
	require.NoError(t, err)
	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case <-h.Done():
	case <-time.After(4 * time.Second):
		t.Fatal("execution did not stop after cancel")
	}
	result := h.Wait()
	assert.True(t, result.Cancelled)
	assert.Equal(t, AbortCanceled, result.AbortReason)
}

func TestRun_OutputLimit(t *testing.T) {
	executor := newTestExecutor(Config{MaxOutputBytes: 1024})

	result, err := executor.Run(context.Background(), Request{Command: "yes"})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, AbortOutputLimit, result.AbortReason)
	assert.Len(t, result.RawOutput, 1024)
}

func TestStart_OwnProcessGroup(t *testing.T) {
	executor := newTestExecutor(Config{})

	h, err := executor.Start(context.Background(), Request{Command: "sleep 5"})
	require.NoError(t, err)
	assert.Equal(t, h.PID(), proc.ProcessGroup(h.PID()))

	_, done := h.Result()
	assert.False(t, done)

	h.Abort()
	result := h.Wait()
	assert.True(t, result.Cancelled)
	assert.Equal(t, AbortRequested, result.AbortReason)

	// Abort after resolution is a no-op.
	h.Abort()
}

func TestRun_StreamsEventsInOrder(t *testing.T) {
	executor := newTestExecutor(Config{})

	var (
		mu     sync.Mutex
		chunks []string
	)
	result, err := executor.Run(context.Background(), Request{
		Command: "echo one; sleep 0.1; echo two",
		OnOutput: func(ev OutputEvent) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, EventData, ev.Type)
			chunks = append(chunks, ev.Text)
		},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "one\ntwo\n", strings.Join(chunks, ""))
	assert.Equal(t, "one\ntwo\n", result.Output)
}

func TestRun_StripsANSI(t *testing.T) {
	executor := newTestExecutor(Config{})

	var got strings.Builder
	result, err := executor.Run(context.Background(), Request{
		Command:  `printf '\033[31mred\033[0m\n'`,
		OnOutput: func(ev OutputEvent) { got.WriteString(ev.Text) },
	})
	require.NoError(t, err)
	assert.Equal(t, "red\n", result.Output)
	assert.Equal(t, "red\n", got.String())
	assert.Contains(t, string(result.RawOutput), "\033[31m")
}

func TestRun_BinaryDetection(t *testing.T) {
	executor := newTestExecutor(Config{})

	var events []OutputEvent
	result, err := executor.Run(context.Background(), Request{
		Command:  `printf 'a\000b\n'; sleep 0.1; echo more`,
		OnOutput: func(ev OutputEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)

	assert.True(t, result.BinaryDetected)
	require.NotEmpty(t, events)
	assert.Equal(t, EventBinaryDetected, events[0].Type)
	for _, ev := range events[1:] {
		assert.Equal(t, EventBinaryProgress, ev.Type)
		assert.Empty(t, ev.Text)
	}
	assert.Equal(t, int64(len(result.RawOutput)), events[len(events)-1].BytesReceived)
	assert.Contains(t, result.Output, "more")
}

func TestRun_BackgroundPIDs(t *testing.T) {
	if _, err := exec.LookPath("pgrep"); err != nil {
		t.Skip("pgrep not available")
	}
	executor := newTestExecutor(Config{})

	result, err := executor.Run(context.Background(), Request{Command: "sleep 2 &"})
	require.NoError(t, err)
	require.NotEmpty(t, result.BackgroundPIDs)
	assert.NotContains(t, result.BackgroundPIDs, result.PID)

	for _, pid := range result.BackgroundPIDs {
		_ = proc.Terminate(pid, 0)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	executor := newTestExecutor(Config{DefaultTimeout: time.Minute, MaxTimeout: 5 * time.Minute})

	assert.Equal(t, time.Minute, executor.Timeout(0))
	assert.Equal(t, 30*time.Second, executor.Timeout(30*time.Second))
	assert.Equal(t, 5*time.Minute, executor.Timeout(time.Hour))

	capped := newTestExecutor(Config{MaxTimeout: time.Hour})
	assert.Equal(t, MaxTimeout, capped.Timeout(time.Hour))
}
