package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/execution"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
)

// emptyCommandMessage is returned for blank commands before anything runs.
const emptyCommandMessage = "Command cannot be empty."

// Engine implements the execute, bash_output and kill_bash tools on top of
// the security gate and the execution controller.
type Engine struct {
	securityController *security.SecurityController
	approver           security.Approver
	controller         *execution.Controller
	sessionID          string
	onOutput           func(shell.OutputEvent)
	log                *logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSessionID tags background tasks with the session id.
func WithSessionID(id string) EngineOption {
	return func(e *Engine) { e.sessionID = id }
}

// WithOutput mirrors foreground output, e.g. to a console.
func WithOutput(fn func(shell.OutputEvent)) EngineOption {
	return func(e *Engine) { e.onOutput = fn }
}

// WithLogger sets the engine logger.
func WithLogger(log *logger.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log.Component("engine")
		}
	}
}

// NewEngine creates a new engine. A nil approver denies everything that
// needs approval.
func NewEngine(controller *execution.Controller, policy *security.SecurityPolicy, approver security.Approver, opts ...EngineOption) *Engine {
	if approver == nil {
		approver = security.DenyApprover{}
	}
	e := &Engine{
		securityController: security.NewSecurityController(policy),
		approver:           approver,
		controller:         controller,
		log:                logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Controller returns the execution controller.
func (e *Engine) Controller() *execution.Controller {
	return e.controller
}

// Registry returns the background task registry.
func (e *Engine) Registry() *background.Registry {
	return e.controller.Registry()
}

// Security returns the security controller.
func (e *Engine) Security() *security.SecurityController {
	return e.securityController
}

// Execute runs a command through the security gate.
func (e *Engine) Execute(ctx context.Context, params ExecuteParams) *ToolResult {
	command := strings.TrimSpace(params.Command)
	if command == "" {
		return errorResult(emptyCommandMessage)
	}

	check := e.securityController.CheckCommand(command)
	if !check.Allowed {
		e.log.Info("command blocked", zap.String("command", command), zap.String("reason", check.Reason))
		return errorResult("Command blocked: %s", check.Reason)
	}

	if check.RequiresAuth {
		approved, err := e.approver.Approve(ctx, &security.ApprovalRequest{
			Category: security.CategoryCommand,
			Command:  command,
			Params:   params.asMap(),
			Check:    check,
		})
		if err != nil {
			return errorResult("Approval failed: %v", err)
		}
		if !approved {
			e.log.Info("command rejected", zap.String("command", command), zap.Bool("high_risk", check.HighRisk))
			return errorResult("Command rejected by user: %s", command)
		}
	}

	outcome, err := e.controller.Execute(ctx, execution.Request{
		Command:         command,
		Dir:             params.Directory,
		Timeout:         time.Duration(params.Timeout) * time.Millisecond,
		SessionID:       e.sessionID,
		RunInBackground: params.RunInBackground,
		Foreground:      !e.securityController.Policy().AllowBackground,
		OnOutput:        e.onOutput,
	})
	if err != nil {
		if errors.Is(err, shell.ErrEmptyCommand) {
			return errorResult(emptyCommandMessage)
		}
		return errorResult("Failed to execute command: %v", err)
	}

	if outcome.Backgrounded {
		return &ToolResult{
			LLMContent:       formatBackgrounded(command, outcome),
			BackgroundTaskID: outcome.TaskID,
		}
	}

	result := outcome.Result
	return &ToolResult{
		LLMContent: formatResult(command, params.Directory, result),
		IsError:    result.Error != nil,
		Result:     result,
	}
}

// BashOutput reports a background task's status and accumulated output.
func (e *Engine) BashOutput(taskID string) *ToolResult {
	task, ok := e.Registry().GetTask(taskID)
	if !ok {
		return errorResult("Background task not found: %s", taskID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task ID: %s\n", task.ID)
	fmt.Fprintf(&b, "Command: %s\n", task.Command)
	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	fmt.Fprintf(&b, "PID: %d\n", task.PID)
	fmt.Fprintf(&b, "Started: %s\n", task.CreatedAt.Format(time.RFC3339))
	if task.Status.Terminal() {
		fmt.Fprintf(&b, "Exit Code: %s\n", formatExitCode(task.ExitCode))
	}
	fmt.Fprintf(&b, "Output:\n%s", orNone(shell.TruncateOutput(task.Output, shell.GetMaxOutputLimit())))

	return &ToolResult{LLMContent: b.String()}
}

// KillBash terminates a running background task.
func (e *Engine) KillBash(taskID string) *ToolResult {
	task, ok := e.Registry().GetTask(taskID)
	if !ok {
		return errorResult("Background task not found: %s", taskID)
	}
	if err := e.Registry().Kill(taskID); err != nil {
		if errors.Is(err, background.ErrTaskNotRunning) {
			return errorResult("Background task %s is not running (status: %s)", taskID, task.Status)
		}
		return errorResult("Failed to kill background task: %v", err)
	}
	return &ToolResult{
		LLMContent: fmt.Sprintf("Kill signal sent to background task %s (PID %d).", taskID, task.PID),
	}
}

func formatBackgrounded(command string, outcome *execution.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command moved to background with ID: %s (PID %d).\n", outcome.TaskID, outcome.PID)
	fmt.Fprintf(&b, "Command: %s\n", command)
	b.WriteString("Use bash_output to check progress and kill_bash to stop it.\n")
	if out := shell.TrimEmptyLines(outcome.Output); out != "" {
		fmt.Fprintf(&b, "Output so far:\n%s", shell.TruncateOutput(out, shell.GetMaxOutputLimit()))
	}
	return b.String()
}

func formatResult(command, dir string, result *shell.Result) string {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	limit := shell.GetMaxOutputLimit()

	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Directory: %s\n", orNone(dir))
	if result.BinaryDetected {
		fmt.Fprintf(&b, "Output: [binary output, %d bytes]\n", len(result.RawOutput))
	} else {
		fmt.Fprintf(&b, "Stdout: %s\n", orNone(shell.TruncateOutput(shell.TrimEmptyLines(result.Stdout), limit)))
		fmt.Fprintf(&b, "Stderr: %s\n", orNone(shell.TruncateOutput(shell.TrimEmptyLines(result.Stderr), limit)))
	}
	errText := ""
	if result.Error != nil {
		errText = result.Error.Error()
	} else if result.Cancelled {
		errText = fmt.Sprintf("command was cancelled (%s)", result.AbortReason)
	}
	fmt.Fprintf(&b, "Error: %s\n", orNone(errText))
	fmt.Fprintf(&b, "Exit Code: %s\n", formatExitCode(result.ExitCode))
	fmt.Fprintf(&b, "Signal: %s\n", orNone(result.Signal))
	fmt.Fprintf(&b, "Background PIDs: %s", orNone(joinInts(result.BackgroundPIDs)))
	return b.String()
}

func formatExitCode(code *int) string {
	if code == nil {
		return "(none)"
	}
	return strconv.Itoa(*code)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
