package security

import (
	"path"
	"strings"
)

// scanState tracks quoting while walking a command string.
type scanState struct {
	inSingle bool
	inDouble bool
	escaped  bool
}

// step advances the state over c and reports whether c is unquoted and
// unescaped, i.e. whether the shell would treat it as syntax.
func (s *scanState) step(c byte) bool {
	if s.escaped {
		s.escaped = false
		return false
	}
	if s.inSingle {
		if c == '\'' {
			s.inSingle = false
		}
		return false
	}
	switch c {
	case '\\':
		s.escaped = true
		return false
	case '"':
		s.inDouble = !s.inDouble
		return false
	case '\'':
		if !s.inDouble {
			s.inSingle = true
			return false
		}
	}
	return !s.inDouble
}

// HasCommandSubstitution reports whether command contains `...`, $(...)
// or a process substitution outside single quotes. Double quotes do not
// protect against substitution.
func HasCommandSubstitution(command string) bool {
	var s scanState
	for i := 0; i < len(command); i++ {
		c := command[i]
		wasEscaped := s.escaped
		inSingle := s.inSingle
		unquoted := s.step(c)
		if wasEscaped || inSingle || s.inSingle {
			continue
		}

		switch {
		case c == '`':
			return true
		case c == '$' && i+1 < len(command) && command[i+1] == '(':
			return true
		case unquoted && (c == '<' || c == '>') && i+1 < len(command) && command[i+1] == '(':
			return true
		}
	}
	return false
}

// SplitPipelineSegments splits command on unquoted '|' and returns the
// trimmed, non-empty segments.
func SplitPipelineSegments(command string) []string {
	return splitUnquoted(command, func(command string, i int) int {
		if command[i] == '|' {
			return 1
		}
		return 0
	})
}

// hasUnquotedPipe reports whether command contains an unquoted '|'.
func hasUnquotedPipe(command string) bool {
	var s scanState
	for i := 0; i < len(command); i++ {
		if s.step(command[i]) && command[i] == '|' {
			return true
		}
	}
	return false
}

// splitCommandChain splits a pipeline segment on unquoted ';', '&', '&&',
// '||' and newlines so every chained command can be checked on its own.
func splitCommandChain(segment string) []string {
	return splitUnquoted(segment, func(command string, i int) int {
		switch command[i] {
		case ';', '\n':
			return 1
		case '&':
			// Keep redirections like 2>&1 and &> together.
			if i > 0 && (command[i-1] == '>' || command[i-1] == '<') {
				return 0
			}
			if i+1 < len(command) && command[i+1] == '>' {
				return 0
			}
			if i+1 < len(command) && command[i+1] == '&' {
				return 2
			}
			return 1
		case '|':
			if i+1 < len(command) && command[i+1] == '|' {
				return 2
			}
		}
		return 0
	})
}

// splitUnquoted walks command and cuts it wherever sep reports a
// separator width for an unquoted byte.
func splitUnquoted(command string, sep func(command string, i int) int) []string {
	var (
		parts []string
		s     scanState
		start int
	)
	for i := 0; i < len(command); i++ {
		if !s.step(command[i]) {
			continue
		}
		if width := sep(command, i); width > 0 {
			parts = appendTrimmed(parts, command[start:i])
			i += width - 1
			start = i + 1
		}
	}
	return appendTrimmed(parts, command[start:])
}

func appendTrimmed(parts []string, part string) []string {
	if p := strings.TrimSpace(part); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// GetCommandRoot returns the program name a command starts with, stripped
// of grouping braces and directory components: "/usr/bin/rm -rf x" gives
// "rm". Leading NAME=value environment assignments are skipped. It returns
// "" when no root can be determined.
func GetCommandRoot(command string) string {
	rest := strings.TrimSpace(command)
	for {
		rest = strings.TrimLeft(rest, "{( \t\n")
		token, remainder := firstToken(rest)
		if token == "" {
			return ""
		}
		if isEnvAssignment(token) {
			rest = remainder
			continue
		}
		token = strings.TrimRight(token, "})")
		token = strings.ReplaceAll(token, "\\", "/")
		root := path.Base(token)
		if root == "." && token != "." || root == "/" {
			return ""
		}
		return root
	}
}

// firstToken returns the first word of s, unwrapping a quoted word, and
// the text after it.
func firstToken(s string) (string, string) {
	if s == "" {
		return "", ""
	}
	if q := s[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[1:], q)
		if end < 0 {
			return "", ""
		}
		return s[1 : end+1], s[end+2:]
	}
	end := strings.IndexAny(s, " \t\n;&|<>()")
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func isEnvAssignment(token string) bool {
	eq := strings.IndexByte(token, '=')
	if eq <= 0 {
		return false
	}
	for i, r := range token[:eq] {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ShellCommandAnalyzer applies the shell-operator part of the policy.
type ShellCommandAnalyzer struct {
	allowShell bool
}

// NewShellCommandAnalyzer creates a new shell analyzer.
func NewShellCommandAnalyzer(policy *SecurityPolicy) *ShellCommandAnalyzer {
	return &ShellCommandAnalyzer{
		allowShell: policy.AllowShell,
	}
}

// CheckResult represents the result of a security check.
type CheckResult struct {
	Allowed      bool   `json:"allowed"`
	RequiresAuth bool   `json:"requires_auth"`
	HighRisk     bool   `json:"high_risk"`
	Root         string `json:"root,omitempty"`
	Warning      string `json:"warning,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Analyze checks operator usage and redirections into system paths.
func (sa *ShellCommandAnalyzer) Analyze(cmdStr string) *CheckResult {
	if !sa.allowShell && hasShellOperators(cmdStr) {
		return &CheckResult{
			Allowed: false,
			Reason:  "Shell operators are disabled (allow_shell=false)",
		}
	}

	dangerousPatterns := []struct {
		pattern string
		reason  string
	}{
		{"> /etc/", "redirecting to system path /etc/"},
		{">/etc/", "redirecting to system path /etc/"},
		{"> /usr/", "redirecting to system path /usr/"},
		{">/usr/", "redirecting to system path /usr/"},
		{"> /System", "redirecting to System directory"},
		{"../", "potential path traversal"},
	}

	for _, dp := range dangerousPatterns {
		if strings.Contains(cmdStr, dp.pattern) {
			return &CheckResult{
				Allowed:      true,
				RequiresAuth: true,
				Warning:      "Dangerous shell operation detected",
				Reason:       dp.reason,
			}
		}
	}

	return &CheckResult{
		Allowed: true,
	}
}

// hasShellOperators reports whether command uses pipes, chains or
// redirections outside quotes.
func hasShellOperators(command string) bool {
	var s scanState
	for i := 0; i < len(command); i++ {
		if s.step(command[i]) && strings.IndexByte("|;&<>", command[i]) >= 0 {
			return true
		}
	}
	return HasCommandSubstitution(command)
}
