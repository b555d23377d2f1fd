package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
)

// Errors returned by Confirm
var (
	ErrQuitAll = errors.New("quit all commands")
)

type choice int

const (
	choiceInvalid choice = iota
	choiceYes
	choiceSkip
	choiceQuit
)

func parseChoice(s string) choice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return choiceYes
	case "s", "n", "no":
		return choiceSkip
	case "q":
		return choiceQuit
	}
	return choiceInvalid
}

// answer reports the outcome of c and writes the acknowledgement.
func answer(c choice, output io.Writer) (bool, error) {
	switch c {
	case choiceYes:
		fmt.Fprintln(output, okStyle.Render("✓ approved"))
		return true, nil
	case choiceSkip:
		fmt.Fprintln(output, subtleStyle.Render("⊘ skipped"))
		return false, nil
	default:
		fmt.Fprintln(output, errStyle.Render("✗ cancelled"))
		return false, ErrQuitAll
	}
}

func writePrompt(output io.Writer, req *security.ApprovalRequest) {
	fmt.Fprintf(output, "\n%s\n\n", warnStyle.Render("⚠️  This command needs your approval"))
	fmt.Fprintf(output, "Command: %s\n", req.Command)

	if check := req.Check; check != nil {
		if check.Warning != "" {
			fmt.Fprintf(output, "Warning: %s\n", check.Warning)
		}
		if check.Reason != "" {
			fmt.Fprintf(output, "Reason:  %s\n", check.Reason)
		}
	}

	fmt.Fprintf(output, "\n[y] run  [s] skip  [q] cancel\n> ")
}

// Confirm prompts on stdin/stdout for command approval.
func Confirm(req *security.ApprovalRequest) (bool, error) {
	return ConfirmWithIO(req, nil, nil)
}

// ConfirmWithIO prompts the user with provided IO (for testing)
// Returns true if approved, false if skipped, ErrQuitAll if cancelled.
func ConfirmWithIO(req *security.ApprovalRequest, input io.Reader, output io.Writer) (bool, error) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	writePrompt(output, req)

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		c := parseChoice(scanner.Text())
		if c == choiceInvalid {
			fmt.Fprintf(output, "Invalid option, enter y/s/q: ")
			continue
		}
		return answer(c, output)
	}

	if err := scanner.Err(); err != nil {
		return false, err
	}

	return false, nil
}

// Confirmer is a security.Approver that asks on a terminal.
type Confirmer struct {
	In  io.Reader
	Out io.Writer
}

// Approve implements security.Approver.
func (c Confirmer) Approve(_ context.Context, req *security.ApprovalRequest) (bool, error) {
	return ConfirmWithIO(req, c.In, c.Out)
}
