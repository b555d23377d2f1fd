package security

import (
	"reflect"
	"testing"
)

func TestHasCommandSubstitution(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    bool
	}{
		{"dollar paren", "echo $(date)", true},
		{"backtick", "echo `date`", true},
		{"inside double quotes", `echo "$(date)"`, true},
		{"backtick inside double quotes", "echo \"`date`\"", true},
		{"inside single quotes", "echo '$(date)'", false},
		{"backtick inside single quotes", "echo '`date`'", false},
		{"escaped dollar", `echo \$(date)`, false},
		{"escaped backtick", "echo \\`date\\`", false},
		{"plain variable", "echo $HOME", false},
		{"arithmetic looks like substitution", "echo $((1+2))", true},
		{"process substitution", "diff <(ls a) <(ls b)", true},
		{"quoted process substitution", "echo '<(x)'", false},
		{"after closed single quote", "echo 'a' $(b)", true},
		{"no substitution", "ls -la", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCommandSubstitution(tt.command); got != tt.want {
				t.Errorf("HasCommandSubstitution(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestSplitPipelineSegments(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"single", "ls -la", []string{"ls -la"}},
		{"two stages", "ls -la | grep test", []string{"ls -la", "grep test"}},
		{"quoted pipe", `echo "a|b" | wc -c`, []string{`echo "a|b"`, "wc -c"}},
		{"single quoted pipe", `grep 'x|y' file`, []string{`grep 'x|y' file`}},
		{"escaped pipe", `echo a\|b`, []string{`echo a\|b`}},
		{"or operator yields no empty segment", "false || true", []string{"false", "true"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPipelineSegments(tt.command)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPipelineSegments(%q) = %#v, want %#v", tt.command, got, tt.want)
			}
		})
	}
}

func TestGetCommandRoot(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"ls -la", "ls"},
		{"/usr/bin/rm -rf x", "rm"},
		{`C:\Windows\System32\curl.exe http://x`, "curl.exe"},
		{"{ echo hi; }", "echo"},
		{"(cd /tmp && ls)", "cd"},
		{"FOO=bar BAZ=1 make test", "make"},
		{`"/opt/my tools/run" --flag`, "run"},
		{"echo>out.txt", "echo"},
		{"", ""},
		{"FOO=bar", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := GetCommandRoot(tt.command); got != tt.want {
				t.Errorf("GetCommandRoot(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestShellCommandAnalyzer_Analyze(t *testing.T) {
	t.Run("operators allowed by default", func(t *testing.T) {
		analyzer := NewShellCommandAnalyzer(DefaultPolicy())
		result := analyzer.Analyze("ls | grep x && echo done")
		if !result.Allowed || result.RequiresAuth {
			t.Errorf("Expected plain pipeline to pass, got %+v", result)
		}
	})

	t.Run("operators rejected when shell disabled", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.AllowShell = false
		analyzer := NewShellCommandAnalyzer(policy)

		if result := analyzer.Analyze("ls | grep x"); result.Allowed {
			t.Error("Expected pipeline to be rejected with allow_shell=false")
		}
		if result := analyzer.Analyze(`echo "a|b"`); !result.Allowed {
			t.Error("Expected quoted pipe to be allowed with allow_shell=false")
		}
	})

	t.Run("redirect into system path requires auth", func(t *testing.T) {
		analyzer := NewShellCommandAnalyzer(DefaultPolicy())
		result := analyzer.Analyze("echo 127.0.0.1 evil >/etc/hosts")
		if !result.Allowed || !result.RequiresAuth {
			t.Errorf("Expected redirect to /etc to require auth, got %+v", result)
		}
	})
}
