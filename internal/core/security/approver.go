package security

import "context"

// CategoryCommand is the approval category for shell commands.
const CategoryCommand = "command"

// ApprovalRequest is what the approval collaborator is asked to decide on.
type ApprovalRequest struct {
	Category string
	Command  string
	// Params holds the raw tool-call parameters.
	Params map[string]any
	Check  *CheckResult
}

// Approver is the external collaborator that asks a human (or a policy
// standing in for one) whether a command may run.
type Approver interface {
	Approve(ctx context.Context, req *ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req *ApprovalRequest) (bool, error)

// Approve calls f(ctx, req).
func (f ApproverFunc) Approve(ctx context.Context, req *ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// DenyApprover rejects every request. Headless surfaces use it: with no
// human in the loop a command that needs approval does not run.
type DenyApprover struct{}

// Approve always returns false.
func (DenyApprover) Approve(context.Context, *ApprovalRequest) (bool, error) {
	return false, nil
}

// AllowApprover approves every request (tests and --yes).
type AllowApprover struct{}

// Approve always returns true.
func (AllowApprover) Approve(context.Context, *ApprovalRequest) (bool, error) {
	return true, nil
}
