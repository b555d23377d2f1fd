package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/execution"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
)

// ErrUserExit 表示用户请求退出
var ErrUserExit = errors.New("user requested exit")

const promptText = "tadash> "

type approval struct {
	req   *security.ApprovalRequest
	reply chan approvalReply
}

type approvalReply struct {
	ok  bool
	err error
}

// REPL is the interactive console. It is the approval collaborator and
// answers "move to background" prompts for the engine it drives.
type REPL struct {
	engine     *core.Engine
	events     <-chan execution.Event
	out        io.Writer
	renderer   *Renderer
	openViewer func() error

	approvals chan approval
	outMu     sync.Mutex
	pending   string // token of the open background prompt
}

// NewREPL creates a console writing to out. events is the channel of the
// notifier handed to the engine's controller; it may be nil. The engine is
// attached with SetEngine once it has been built with Approver and OnOutput.
func NewREPL(out io.Writer, events <-chan execution.Event) *REPL {
	return &REPL{
		events:    events,
		out:       out,
		approvals: make(chan approval),
	}
}

// SetEngine 设置执行引擎
func (r *REPL) SetEngine(engine *core.Engine) {
	r.engine = engine
}

// SetRenderer 设置渲染器，nil 时直接输出原始报告
func (r *REPL) SetRenderer(renderer *Renderer) {
	r.renderer = renderer
}

// SetTaskViewer 设置 /tasks 打开的任务查看器
func (r *REPL) SetTaskViewer(fn func() error) {
	r.openViewer = fn
}

// Approver returns the approver to hand to the engine. Requests are
// answered by the next input line while a command is in flight.
func (r *REPL) Approver() security.Approver {
	return security.ApproverFunc(func(ctx context.Context, req *security.ApprovalRequest) (bool, error) {
		a := approval{req: req, reply: make(chan approvalReply, 1)}
		select {
		case r.approvals <- a:
		case <-ctx.Done():
			return false, ctx.Err()
		}
		select {
		case rep := <-a.reply:
			return rep.ok, rep.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
}

// OnOutput streams foreground output to the console.
func (r *REPL) OnOutput(ev shell.OutputEvent) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	switch ev.Type {
	case shell.EventData:
		fmt.Fprint(r.out, ev.Text)
	case shell.EventBinaryDetected:
		fmt.Fprintln(r.out, subtleStyle.Render("[binary output detected]"))
	}
}

func (r *REPL) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// Run reads lines until EOF, /exit or ctx is done.
func (r *REPL) Run(ctx context.Context, lines Lines) error {
	r.printf("%s\n", subtleStyle.Render("tadash console. Type /help for commands."))
	for {
		r.printf("%s", promptStyle.Render(promptText))
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.events:
			r.handleEvent(ev)
		case line, ok := <-lines.C():
			lines.Got()
			if !ok {
				r.printf("\n")
				return nil
			}
			if err := r.ProcessInput(ctx, line, lines); err != nil {
				if errors.Is(err, ErrUserExit) {
					return nil
				}
				r.printf("%s\n", errStyle.Render("error: "+err.Error()))
			}
		}
	}
}

// ProcessInput handles one input line. lines supplies answers to prompts
// raised while the command runs.
func (r *REPL) ProcessInput(ctx context.Context, input string, lines Lines) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, "/") {
		shouldExit, err := r.HandleCommand(input)
		if err != nil {
			return err
		}
		if shouldExit {
			return ErrUserExit
		}
		return nil
	}

	r.runCommand(ctx, input, lines)
	return nil
}

func (r *REPL) runCommand(ctx context.Context, command string, lines Lines) {
	done := make(chan *core.ToolResult, 1)
	go func() {
		done <- r.engine.Execute(ctx, core.ExecuteParams{Command: command})
	}()

	in := lines.C()
	for {
		select {
		case res := <-done:
			r.pending = ""
			r.printResult(res)
			return
		case ev := <-r.events:
			r.handleEvent(ev)
		case a := <-r.approvals:
			a.reply <- r.ask(ctx, a.req, lines)
			if in != nil {
				in = lines.C()
			}
		case line, ok := <-in:
			lines.Got()
			if !ok {
				in = nil
				continue
			}
			r.handleBusyInput(strings.TrimSpace(line))
			in = lines.C()
		}
	}
}

// ask shows the approval prompt and reads lines until a valid choice.
func (r *REPL) ask(ctx context.Context, req *security.ApprovalRequest, lines Lines) approvalReply {
	r.outMu.Lock()
	writePrompt(r.out, req)
	r.outMu.Unlock()

	for {
		var line string
		var ok bool
		select {
		case line, ok = <-lines.C():
			lines.Got()
		case <-ctx.Done():
			return approvalReply{err: ctx.Err()}
		}
		if !ok {
			return approvalReply{ok: false}
		}
		c := parseChoice(line)
		if c == choiceInvalid {
			r.printf("Invalid option, enter y/s/q: ")
			continue
		}
		r.outMu.Lock()
		ok, err := answer(c, r.out)
		r.outMu.Unlock()
		if errors.Is(err, ErrQuitAll) {
			err = nil
		}
		return approvalReply{ok: ok, err: err}
	}
}

func (r *REPL) handleBusyInput(line string) {
	switch {
	case line == "":
	case r.pending != "" && (line == "b" || line == "/bg"):
		if !r.engine.Controller().MoveToBackground(r.pending) {
			r.printf("%s\n", subtleStyle.Render("command already finished"))
		}
		r.pending = ""
	default:
		r.printf("%s\n", subtleStyle.Render("a command is still running; type b to move it to the background"))
	}
}

func (r *REPL) handleEvent(ev execution.Event) {
	switch ev.Type {
	case execution.EventPromptBackground:
		r.pending = ev.Token
		r.printf("\n%s\n", warnStyle.Render(fmt.Sprintf("⏳ %q is still running. Type b to move it to the background.", ev.Command)))
	case execution.EventBackgroundMoved:
		if ev.Token == r.pending {
			r.pending = ""
		}
		if ev.Detached {
			r.printf("%s\n", okStyle.Render("moved to background as "+ev.TaskID))
		}
	}
}

func (r *REPL) printResult(res *core.ToolResult) {
	switch {
	case res.BackgroundTaskID != "":
		r.printf("%s", withNewline(r.renderer.RenderReport(res.LLMContent)))
	case res.Result != nil:
		r.printf("%s\n", statusLine(res.Result))
	default:
		r.printf("%s\n", errStyle.Render(res.LLMContent))
	}
}

func statusLine(result *shell.Result) string {
	elapsed := result.Duration.Round(10 * time.Millisecond)
	switch {
	case result.Error != nil:
		return errStyle.Render(fmt.Sprintf("✗ %v", result.Error))
	case result.Cancelled:
		return errStyle.Render(fmt.Sprintf("✗ cancelled (%s) after %s", result.AbortReason, elapsed))
	case result.Signal != "":
		return errStyle.Render(fmt.Sprintf("✗ killed by %s after %s", result.Signal, elapsed))
	case result.Succeeded():
		return subtleStyle.Render(fmt.Sprintf("✓ exit 0 in %s", elapsed))
	case result.ExitCode != nil:
		return errStyle.Render(fmt.Sprintf("✗ exit %d in %s", *result.ExitCode, elapsed))
	}
	return subtleStyle.Render("finished in " + elapsed.String())
}

// HandleCommand runs a slash command and reports whether to exit.
func (r *REPL) HandleCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/exit", "/quit":
		r.DisplayExitSummary()
		return true, nil

	case "/help":
		r.DisplayHelp()

	case "/clear":
		r.printf("\033[H\033[2J")

	case "/tasks":
		if r.openViewer != nil {
			return false, r.openViewer()
		}
		r.DisplayTasks()

	case "/output":
		if len(parts) < 2 {
			r.printf("usage: /output <task-id>\n")
			return false, nil
		}
		r.printReport(r.engine.BashOutput(parts[1]))

	case "/kill":
		if len(parts) < 2 {
			r.printf("usage: /kill <task-id>\n")
			return false, nil
		}
		r.printReport(r.engine.KillBash(parts[1]))

	case "/bg":
		r.printf("%s\n", subtleStyle.Render("no command is waiting to move to the background"))

	default:
		r.printf("Unknown command: %s\n", parts[0])
	}
	return false, nil
}

func (r *REPL) printReport(res *core.ToolResult) {
	if res.IsError {
		r.printf("%s\n", errStyle.Render(res.LLMContent))
		return
	}
	r.printf("%s", withNewline(r.renderer.RenderReport(res.LLMContent)))
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// DisplayTasks 显示后台任务列表
func (r *REPL) DisplayTasks() {
	tasks := r.engine.Registry().ListTasks()
	if len(tasks) == 0 {
		r.printf("%s\n", subtleStyle.Render("no background tasks"))
		return
	}
	for _, task := range tasks {
		r.printf("  %s  %-9s  pid %-7d %s\n", task.ID, task.Status, task.PID, task.Command)
	}
}

// DisplayHelp 显示帮助信息
func (r *REPL) DisplayHelp() {
	r.printf(`
Commands:
  /help              show this help
  /tasks             browse background tasks
  /output <id>       show a background task's output
  /kill <id>         kill a background task
  /bg                move the running command to the background (or type b)
  /clear             clear the screen
  /exit, /quit       leave the console

Anything else runs as a shell command.

`)
}

// DisplayExitSummary prints what is still running on exit.
func (r *REPL) DisplayExitSummary() {
	running := 0
	for _, task := range r.engine.Registry().ListTasks() {
		if !task.Status.Terminal() {
			running++
		}
	}
	if running > 0 {
		r.printf("%s\n", warnStyle.Render(fmt.Sprintf("%d background task(s) still running", running)))
	}
}
