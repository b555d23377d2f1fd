//go:build !windows

package execution

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
)

var fastConfig = Config{Threshold: 200 * time.Millisecond, PollInterval: 50 * time.Millisecond}

func newTestController(t *testing.T, notifier Notifier) *Controller {
	t.Helper()
	executor := shell.NewExecutor(shell.Config{Shell: "/bin/sh"}, nil)
	registry := background.NewRegistry(executor.Terminator())
	return NewController(executor, registry, notifier, fastConfig, nil)
}

func waitForStatus(t *testing.T, r *background.Registry, id string, want background.TaskStatus) *background.Task {
	t.Helper()
	var task *background.Task
	require.Eventually(t, func() bool {
		task, _ = r.GetTask(id)
		return task != nil && task.Status == want
	}, 5*time.Second, 20*time.Millisecond, "task %s never reached %s", id, want)
	return task
}

func TestExecute_EmptyCommand(t *testing.T) {
	c := newTestController(t, nil)

	_, err := c.Execute(context.Background(), Request{Command: " "})
	assert.ErrorIs(t, err, shell.ErrEmptyCommand)
}

func TestExecute_QuickCommandStaysForeground(t *testing.T) {
	c := newTestController(t, nil)

	outcome, err := c.Execute(context.Background(), Request{Command: `echo "quick test"`, RunInBackground: true})
	require.NoError(t, err)

	assert.False(t, outcome.Backgrounded)
	assert.Empty(t, outcome.TaskID)
	require.NotNil(t, outcome.Result)
	assert.Contains(t, outcome.Output, "quick test")
	assert.Empty(t, c.Registry().ListTasks())
}

func TestExecute_RunInBackgroundDetaches(t *testing.T) {
	c := newTestController(t, nil)

	start := time.Now()
	outcome, err := c.Execute(context.Background(), Request{
		Command:         "echo start; sleep 1; echo end",
		RunInBackground: true,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.True(t, outcome.Backgrounded)
	require.NotEmpty(t, outcome.TaskID)
	assert.Nil(t, outcome.Result)

	task := waitForStatus(t, c.Registry(), outcome.TaskID, background.TaskStatusCompleted)
	assert.Equal(t, "start\nend\n", task.Output, "no output lost across the handover")
	require.NotNil(t, task.ExitCode)
	assert.Equal(t, 0, *task.ExitCode)
	assert.Len(t, c.Registry().ListTasks(), 1)
}

func TestExecute_RunInBackgroundWithoutOutput(t *testing.T) {
	c := newTestController(t, nil)

	outcome, err := c.Execute(context.Background(), Request{Command: "sleep 1", RunInBackground: true})
	require.NoError(t, err)
	assert.True(t, outcome.Backgrounded)

	waitForStatus(t, c.Registry(), outcome.TaskID, background.TaskStatusCompleted)
}

func TestExecute_PromptApproved(t *testing.T) {
	notifier := NewChannelNotifier(4)
	c := newTestController(t, notifier)

	go func() {
		ev := <-notifier.Events()
		if ev.Type == EventPromptBackground {
			c.MoveToBackground(ev.Token)
		}
	}()

	outcome, err := c.Execute(context.Background(), Request{Command: "echo hi; sleep 2; echo bye"})
	require.NoError(t, err)
	require.True(t, outcome.Backgrounded)
	assert.Equal(t, "hi\n", outcome.Output)

	select {
	case ev := <-notifier.Events():
		assert.Equal(t, EventBackgroundMoved, ev.Type)
		assert.True(t, ev.Detached)
		assert.Equal(t, outcome.TaskID, ev.TaskID)
	case <-time.After(time.Second):
		t.Fatal("expected background moved event")
	}

	task := waitForStatus(t, c.Registry(), outcome.TaskID, background.TaskStatusCompleted)
	assert.Equal(t, "hi\nbye\n", task.Output)
	assert.Empty(t, c.PendingTokens())
}

func TestExecute_PromptIgnoredCommandCompletes(t *testing.T) {
	notifier := NewChannelNotifier(4)
	c := newTestController(t, notifier)

	outcome, err := c.Execute(context.Background(), Request{Command: "echo hi; sleep 0.6; echo done"})
	require.NoError(t, err)
	assert.False(t, outcome.Backgrounded)
	assert.Equal(t, "hi\ndone\n", outcome.Output)

	prompt := <-notifier.Events()
	require.Equal(t, EventPromptBackground, prompt.Type)
	assert.Equal(t, "hi\n", prompt.Output)
	assert.Equal(t, "echo hi; sleep 0.6; echo done", prompt.Command)

	ack := <-notifier.Events()
	assert.Equal(t, EventBackgroundMoved, ack.Type)
	assert.Equal(t, prompt.Token, ack.Token)
	assert.False(t, ack.Detached)

	assert.False(t, c.MoveToBackground(prompt.Token), "stale token must not detach")
	assert.Empty(t, c.Registry().ListTasks())
}

func TestExecute_NoPromptWithoutOutput(t *testing.T) {
	notifier := NewChannelNotifier(4)
	c := newTestController(t, notifier)

	outcome, err := c.Execute(context.Background(), Request{Command: "sleep 0.5"})
	require.NoError(t, err)
	assert.False(t, outcome.Backgrounded)
	assert.Empty(t, notifier.Events())
}

func TestExecute_ForegroundNeverPrompts(t *testing.T) {
	notifier := NewChannelNotifier(4)
	c := newTestController(t, notifier)

	outcome, err := c.Execute(context.Background(), Request{
		Command:         "echo a; sleep 0.5",
		Foreground:      true,
		RunInBackground: true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Backgrounded)
	assert.Empty(t, notifier.Events())
}

func TestExecute_WrongTokenDoesNotDetach(t *testing.T) {
	notifier := NewChannelNotifier(4)
	c := newTestController(t, notifier)

	go func() {
		<-notifier.Events()
		c.MoveToBackground("not-the-token")
	}()

	outcome, err := c.Execute(context.Background(), Request{Command: "echo x; sleep 0.6"})
	require.NoError(t, err)
	assert.False(t, outcome.Backgrounded)
}

func TestExecute_MirrorsForegroundOutput(t *testing.T) {
	c := newTestController(t, nil)

	var mirrored strings.Builder
	_, err := c.Execute(context.Background(), Request{
		Command:  "echo one; echo two",
		OnOutput: func(ev shell.OutputEvent) { mirrored.WriteString(ev.Text) },
	})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", mirrored.String())
}

func TestExecute_ContextCancelAbortsForeground(t *testing.T) {
	c := newTestController(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	outcome, err := c.Execute(ctx, Request{Command: "sleep 5", Foreground: true})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Cancelled)
}

func TestExecute_DetachedOutlivesCallerContext(t *testing.T) {
	c := newTestController(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	outcome, err := c.Execute(ctx, Request{Command: "sleep 0.8; echo survived", RunInBackground: true})
	require.NoError(t, err)
	require.True(t, outcome.Backgrounded)
	cancel()

	task := waitForStatus(t, c.Registry(), outcome.TaskID, background.TaskStatusCompleted)
	assert.Contains(t, task.Output, "survived")
}

func TestExecute_KillBackgroundTask(t *testing.T) {
	c := newTestController(t, nil)

	outcome, err := c.Execute(context.Background(), Request{Command: "sleep 30", RunInBackground: true})
	require.NoError(t, err)
	require.True(t, outcome.Backgrounded)

	require.True(t, c.Registry().KillTask(outcome.TaskID))
	waitForStatus(t, c.Registry(), outcome.TaskID, background.TaskStatusKilled)
	assert.False(t, c.Registry().KillTask(outcome.TaskID))
}
