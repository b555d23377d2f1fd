package shell

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MaxOutputLengthEnv overrides the returned output cap in characters.
	MaxOutputLengthEnv = "TADASH_MAX_OUTPUT_LENGTH"
	// DefaultMaxOutputLength applies when the env var is unset or invalid.
	DefaultMaxOutputLength = 30000
	// MaxOutputLengthCeiling clamps the env var.
	MaxOutputLengthCeiling = 150000
)

// GetMaxOutputLimit reads MaxOutputLengthEnv.
func GetMaxOutputLimit() int {
	raw := strings.TrimSpace(os.Getenv(MaxOutputLengthEnv))
	if raw == "" {
		return DefaultMaxOutputLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultMaxOutputLength
	}
	return min(n, MaxOutputLengthCeiling)
}

// TrimEmptyLines drops leading and trailing blank lines. Interior blank
// lines and indentation are kept.
func TrimEmptyLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// TruncateOutput keeps the first limit characters of the trimmed output and
// reports how many lines were cut.
func TruncateOutput(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit < 0 || len(runes) <= limit {
		return s
	}
	kept := string(runes[:limit])
	cut := string(runes[limit:])
	lines := strings.Count(cut, "\n") + 1
	return kept + fmt.Sprintf("\n\n... [%d lines truncated] ...", lines)
}
