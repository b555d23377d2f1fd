package security

import (
	"fmt"
	"strings"
)

// SecurityController coordinates all security checks.
type SecurityController struct {
	policy        *SecurityPolicy
	dangerChecker *DangerousCommandChecker
	pathChecker   *PathAccessChecker
	shellAnalyzer *ShellCommandAnalyzer
}

// NewSecurityController creates a new security controller.
func NewSecurityController(policy *SecurityPolicy) *SecurityController {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &SecurityController{
		policy:        policy,
		dangerChecker: NewDangerousCommandChecker(),
		pathChecker:   NewPathAccessChecker(policy),
		shellAnalyzer: NewShellCommandAnalyzer(policy),
	}
}

// Policy returns the policy the controller enforces.
func (sc *SecurityController) Policy() *SecurityPolicy {
	return sc.policy
}

// Assess runs the risk classifier on command.
func (sc *SecurityController) Assess(command string) Assessment {
	return sc.dangerChecker.Assess(command)
}

// CheckCommand performs comprehensive security check on a command string.
// High-risk commands always come back with RequiresAuth set, whatever the
// policy's CommandLevel.
func (sc *SecurityController) CheckCommand(command string) *CheckResult {
	// Check 1: Risk classification
	assessment := sc.dangerChecker.Assess(command)
	result := &CheckResult{
		Allowed:  true,
		HighRisk: assessment.HighRisk,
		Root:     assessment.Root,
	}
	if assessment.HighRisk {
		result.RequiresAuth = true
		result.Warning = fmt.Sprintf("High-risk command: %s", command)
		result.Reason = assessment.Reason
	}

	// Check 2: Path access control
	isWrite := sc.isWriteOperation(command)
	for _, p := range sc.pathChecker.ExtractPaths(command) {
		if sc.pathChecker.IsRestricted(p) {
			return &CheckResult{
				Allowed:  false,
				HighRisk: assessment.HighRisk,
				Root:     assessment.Root,
				Reason:   fmt.Sprintf("Access denied: %s is restricted", p),
			}
		}

		if !result.RequiresAuth && sc.pathChecker.IsReadOnly(p, isWrite) {
			result.RequiresAuth = true
			result.Warning = fmt.Sprintf("Read-only protection: %s cannot be written", p)
			result.Reason = "Path is in readonly list"
		}
	}

	// Check 3: Shell operator analysis
	shellResult := sc.shellAnalyzer.Analyze(command)
	if !shellResult.Allowed {
		shellResult.HighRisk = assessment.HighRisk
		shellResult.Root = assessment.Root
		return shellResult
	}
	if shellResult.RequiresAuth && !result.RequiresAuth {
		result.RequiresAuth = true
		result.Warning = shellResult.Warning
		result.Reason = shellResult.Reason
	}

	// Check 4: Policy level
	if sc.policy.CommandLevel == ConfirmAlways && !result.RequiresAuth {
		result.RequiresAuth = true
		result.Reason = "command_level=always"
	}

	return result
}

// CheckPathAccess checks if a path can be accessed.
func (sc *SecurityController) CheckPathAccess(path string, write bool) *CheckResult {
	// Check restricted
	if sc.pathChecker.IsRestricted(path) {
		return &CheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Path %s is restricted", path),
		}
	}

	// Check readonly
	if sc.pathChecker.IsReadOnly(path, write) {
		return &CheckResult{
			Allowed:      true,
			RequiresAuth: true,
			Warning:      fmt.Sprintf("Path %s is read-only", path),
			Reason:       "Write operation on read-only path",
		}
	}

	return &CheckResult{Allowed: true}
}

// isWriteOperation determines if a command writes to the filesystem.
// It checks for unquoted output redirection and inherently write-focused
// root commands anywhere in the pipeline or chain.
func (sc *SecurityController) isWriteOperation(command string) bool {
	var s scanState
	for i := 0; i < len(command); i++ {
		if s.step(command[i]) && command[i] == '>' {
			return true
		}
	}

	writeCommands := map[string]bool{
		"rm":    true, // delete
		"mv":    true, // move/rename
		"cp":    true, // copy
		"touch": true, // create file
		"mkdir": true, // create directory
		"chmod": true, // change permissions
		"chown": true, // change owner
		"tee":   true, // write to stdin and file
		"dd":    true, // raw write
		"ln":    true, // link
	}

	for _, segment := range SplitPipelineSegments(command) {
		for _, cmd := range splitCommandChain(segment) {
			if writeCommands[strings.ToLower(GetCommandRoot(cmd))] {
				return true
			}
		}
	}
	return false
}
