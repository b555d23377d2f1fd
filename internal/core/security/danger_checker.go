package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Assessment is the classifier's verdict for one command string. It is
// computed fresh for every call and never cached.
type Assessment struct {
	HighRisk bool   `json:"high_risk"`
	Root     string `json:"root"`
	Reason   string `json:"reason,omitempty"`
}

// destructivePattern pairs a matcher with a human-readable reason.
type destructivePattern struct {
	re     *regexp.Regexp
	reason string
}

// DangerousCommandChecker detects commands that must be approved by a human.
type DangerousCommandChecker struct {
	bannedRoots map[string]struct{}
	patterns    []destructivePattern
}

var (
	// fetchPipedToShell is the legacy "curl ... | sh" check, applied to the
	// whole string before any pipeline splitting.
	fetchPipedToShell = regexp.MustCompile(`(?i)(curl|wget).*\|.*sh`)

	defaultBannedRoots = []string{
		// network fetchers and remote shells
		"curl", "wget", "nc", "ncat", "netcat", "telnet", "ssh", "scp", "sftp",
		"ftp", "rsync", "aria2c", "axel", "lynx", "w3m", "links", "http", "httpie", "xh",
		"invoke-webrequest", "iwr", "invoke-restmethod", "irm", "certutil", "bitsadmin",
		// shells and interpreters of arbitrary strings
		"sh", "bash", "zsh", "fish", "dash", "ksh", "csh", "tcsh",
		"powershell", "pwsh", "cmd",
		// deletion
		"rm",
		// aliasing and evaluation
		"alias", "unalias", "eval", "source", ".", "exec",
		// browsers and openers
		"chrome", "chromium", "google-chrome", "firefox", "safari", "msedge", "opera",
		"open", "xdg-open", "start",
	}

	defaultDestructivePatterns = []destructivePattern{
		{regexp.MustCompile(`\brm\s+(?:\S+\s+)*(?:-[a-zA-Z]*[rR][a-zA-Z]*|--recursive)\b`), "recursive delete"},
		{regexp.MustCompile(`(?:^|[\s;&|(])sudo(?:\s|$)`), "privilege escalation (sudo)"},
		{regexp.MustCompile(`(?:^|[\s;&|(])dd\s+(?:\S+\s+)*if=`), "raw disk copy (dd)"},
		{regexp.MustCompile(`(?:^|[\s;&|(])mkfs(?:\.\w+)?(?:\s|$)`), "filesystem creation (mkfs)"},
		{regexp.MustCompile(`(?:^|[\s;&|(])fdisk(?:\s|$)`), "partition editing (fdisk)"},
		{regexp.MustCompile(`(?i)(?:^|[;&|(]\s*)format(?:\s|$)`), "disk format"},
		{regexp.MustCompile(`(?i)(?:^|[\s;&|(])del\s+(?:\S+\s+)*/[qs]\b`), "bulk delete (del /q /s)"},
	}
)

// NewDangerousCommandChecker creates a new danger checker with the
// built-in banned roots and destructive patterns.
func NewDangerousCommandChecker() *DangerousCommandChecker {
	banned := make(map[string]struct{}, len(defaultBannedRoots))
	for _, root := range defaultBannedRoots {
		banned[root] = struct{}{}
	}
	return &DangerousCommandChecker{
		bannedRoots: banned,
		patterns:    defaultDestructivePatterns,
	}
}

// IsBannedRoot reports whether root is on the banned list. Matching is
// case-insensitive and ignores a trailing ".exe".
func (dc *DangerousCommandChecker) IsBannedRoot(root string) bool {
	root = strings.ToLower(root)
	if _, ok := dc.bannedRoots[root]; ok {
		return true
	}
	_, ok := dc.bannedRoots[strings.TrimSuffix(root, ".exe")]
	return ok
}

// Assess classifies a whole command string.
func (dc *DangerousCommandChecker) Assess(command string) Assessment {
	if strings.TrimSpace(command) == "" {
		return Assessment{HighRisk: true, Reason: "empty command"}
	}

	root := GetCommandRoot(command)
	if root == "" {
		return Assessment{HighRisk: true, Reason: "cannot determine root command"}
	}
	if fetchPipedToShell.MatchString(command) {
		return Assessment{HighRisk: true, Root: root, Reason: "download piped into a shell"}
	}

	if hasUnquotedPipe(command) {
		// A pipeline is only as safe as its most dangerous stage.
		for _, segment := range SplitPipelineSegments(command) {
			if a := dc.assessSegment(segment); a.HighRisk {
				a.Root = root
				return a
			}
		}
		return Assessment{Root: root}
	}

	a := dc.assessSegment(command)
	a.Root = root
	return a
}

// IsSegmentHighRisk classifies one pipeline stage.
func (dc *DangerousCommandChecker) IsSegmentHighRisk(segment string) bool {
	return dc.assessSegment(segment).HighRisk
}

func (dc *DangerousCommandChecker) assessSegment(segment string) Assessment {
	if HasCommandSubstitution(segment) {
		return Assessment{HighRisk: true, Reason: "command substitution"}
	}

	commands := splitCommandChain(segment)
	if len(commands) == 0 {
		return Assessment{HighRisk: true, Reason: "cannot determine root command"}
	}
	for _, cmd := range commands {
		if strings.Trim(cmd, "{}() \t\n") == "" {
			// closing brace of a group
			continue
		}
		root := GetCommandRoot(cmd)
		if root == "" {
			return Assessment{HighRisk: true, Reason: "cannot determine root command"}
		}
		if dc.IsBannedRoot(root) {
			return Assessment{HighRisk: true, Root: root, Reason: fmt.Sprintf("banned command: %s", root)}
		}
	}

	for _, p := range dc.patterns {
		if p.re.MatchString(segment) {
			return Assessment{HighRisk: true, Reason: p.reason}
		}
	}
	return Assessment{}
}

var defaultChecker = NewDangerousCommandChecker()

// IsHighRiskCommand reports whether command needs explicit human approval
// regardless of the approval policy. Empty commands are high risk.
func IsHighRiskCommand(command string) bool {
	return defaultChecker.Assess(command).HighRisk
}

// IsSegmentHighRisk classifies one pipeline stage with the built-in lists.
func IsSegmentHighRisk(segment string) bool {
	return defaultChecker.IsSegmentHighRisk(segment)
}
