package security

import (
	"testing"
)

func TestPathAccessChecker_IsRestricted(t *testing.T) {
	policy := &SecurityPolicy{
		RestrictedPaths: []string{"/etc", "/usr/bin"},
	}
	checker := NewPathAccessChecker(policy)

	tests := []struct {
		name       string
		path       string
		restricted bool
	}{
		{"etc is restricted", "/etc/passwd", true},
		{"usr/bin is restricted", "/usr/bin/ls", true},
		{"home is not restricted", "/home/user/file.txt", false},
		{"subdir of restricted", "/etc/config/file", true},
		{"exact match restricted path", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.IsRestricted(tt.path)
			if result != tt.restricted {
				t.Errorf("IsRestricted(%s) = %v, want %v", tt.path, result, tt.restricted)
			}
		})
	}
}

func TestPathAccessChecker_IsReadOnly(t *testing.T) {
	policy := &SecurityPolicy{
		ReadOnlyPaths: []string{"~/.ssh", "/.gnupg"},
	}
	checker := NewPathAccessChecker(policy)

	tests := []struct {
		name     string
		path     string
		write    bool
		readonly bool
	}{
		{"read ssh key", "~/.ssh/id_rsa", false, false},
		{"write ssh key", "~/.ssh/id_rsa.pub", true, true},
		{"write to normal dir", "/tmp/file", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.IsReadOnly(tt.path, tt.write)
			if result != tt.readonly {
				t.Errorf("IsReadOnly(%s, write=%v) = %v, want %v", tt.path, tt.write, result, tt.readonly)
			}
		})
	}
}

func TestPathAccessChecker_ExtractPaths(t *testing.T) {
	checker := NewPathAccessChecker(&SecurityPolicy{})

	tests := []struct {
		name  string
		cmd   string
		paths []string
	}{
		{"single path", "cat /etc/passwd", []string{"/etc/passwd"}},
		{"multiple paths", "ls /etc /home", []string{"/etc", "/home"}},
		{"no paths", "echo hello", nil},
		{"flags skipped", "ls -la ~/projects", []string{"~/projects"}},
		{"redirect target", "echo hi >/etc/motd", []string{"/etc/motd"}},
		{"fd redirect", "make 2>/dev/null", []string{"/dev/null"}},
		{"key=value operand", "dd if=/dev/zero of=/dev/sda", []string{"/dev/zero", "/dev/sda"}},
		{"quoted path", `cat "/tmp/a b"`, []string{"/tmp/a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.ExtractPaths(tt.cmd)
			if len(result) != len(tt.paths) {
				t.Fatalf("ExtractPaths(%q) = %v, want %v", tt.cmd, result, tt.paths)
			}
			for i := range result {
				if result[i] != tt.paths[i] {
					t.Errorf("ExtractPaths(%q)[%d] = %s, want %s", tt.cmd, i, result[i], tt.paths[i])
				}
			}
		})
	}
}
