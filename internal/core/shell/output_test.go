package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimEmptyLines(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"\n\n", ""},
		{"a", "a"},
		{"\n\na\nb\n\n", "a\nb"},
		{"  \n\ta\n\nb\n \n", "\ta\n\nb"},
		{"a\n\n\nb", "a\n\n\nb"},
		{"\r\nx\r\n\r\n", "x\r"},
	}

	for _, tt := range tests {
		got := TrimEmptyLines(tt.in)
		assert.Equal(t, tt.want, got, "TrimEmptyLines(%q)", tt.in)
		assert.Equal(t, got, TrimEmptyLines(got), "not idempotent for %q", tt.in)
	}
}

func TestTruncateOutput(t *testing.T) {
	t.Run("short output unchanged after trim", func(t *testing.T) {
		assert.Equal(t, "hello", TruncateOutput("  hello \n", 10))
		assert.Equal(t, "hello", TruncateOutput("hello", 5))
	})

	t.Run("long output keeps prefix and reports lines", func(t *testing.T) {
		in := "0123456789\nabc\ndef"
		got := TruncateOutput(in, 12)
		assert.True(t, strings.HasPrefix(got, "0123456789\na"))
		assert.Contains(t, got, "[2 lines truncated]")
		assert.Greater(t, len(got), 12)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		got := TruncateOutput("ééééé", 3)
		assert.True(t, strings.HasPrefix(got, "ééé\n"))
	})
}

func TestGetMaxOutputLimit(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", DefaultMaxOutputLength},
		{"50000", 50000},
		{"200000", MaxOutputLengthCeiling},
		{"0", DefaultMaxOutputLength},
		{"-100", DefaultMaxOutputLength},
		{"invalid", DefaultMaxOutputLength},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(MaxOutputLengthEnv, tt.value)
			assert.Equal(t, tt.want, GetMaxOutputLimit())
		})
	}
}
