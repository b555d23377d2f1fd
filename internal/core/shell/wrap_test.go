package shell

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCommand(t *testing.T) {
	tests := []struct {
		name    string
		kind    shellKind
		line    string
		pidFile string
		want    string
	}{
		{
			name:    "posix",
			kind:    kindPOSIX,
			line:    "echo hi",
			pidFile: "/tmp/p.tmp",
			want:    "{ echo hi\n}; __code=$?; pgrep -g 0 >'/tmp/p.tmp' 2>&1; exit $__code;",
		},
		{
			name:    "trailing ampersand",
			kind:    kindPOSIX,
			line:    "sleep 10 &",
			pidFile: "/tmp/p.tmp",
			want:    "{ sleep 10 &\n}; __code=$?; pgrep -g 0 >'/tmp/p.tmp' 2>&1; exit $__code;",
		},
		{
			name:    "trailing comment",
			kind:    kindPOSIX,
			line:    "echo hi # note",
			pidFile: "/tmp/p.tmp",
			want:    "{ echo hi # note\n}; __code=$?; pgrep -g 0 >'/tmp/p.tmp' 2>&1; exit $__code;",
		},
		{
			name:    "fish",
			kind:    kindFish,
			line:    "echo hi",
			pidFile: "/tmp/p.tmp",
			want:    "begin; echo hi\nend; set __code $status; pgrep -g 0 >'/tmp/p.tmp' 2>&1; exit $__code;",
		},
		{
			name: "no listing file",
			kind: kindPOSIX,
			line: "  echo hi  ",
			want: "echo hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapCommand(tt.kind, tt.line, tt.pidFile))
		})
	}
}

func TestQuoteSingle(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, quoteSingle("it's"))
}

func TestResolveShell_Fish(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cmd.exe is always used on Windows")
	}
	sh := resolveShell("/usr/local/bin/fish")
	assert.Equal(t, kindFish, sh.kind)

	t.Setenv("SHELL", "")
	sh = resolveShell("")
	assert.Equal(t, "/bin/bash", sh.path)
	assert.Equal(t, kindPOSIX, sh.kind)
}

func TestReadPIDFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "pids.tmp")
	require.NoError(t, os.WriteFile(name, []byte("100\n200\n\nnot-a-pid\n300\n"), 0644))

	assert.Equal(t, []int{100, 300}, readPIDFile(name, 200))
	assert.Nil(t, readPIDFile(filepath.Join(t.TempDir(), "missing"), 1))
	assert.Nil(t, readPIDFile("", 1))
}
