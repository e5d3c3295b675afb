package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "a", "b", "c")

	abs, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	info, err := os.Stat(abs)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// idempotent
	again, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, again)
}

func TestWithinRoot(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"direct child", filepath.Join(base, "f.txt"), true},
		{"nested child", filepath.Join(base, "a", "b", "f.txt"), true},
		{"base itself", base, true},
		{"dotdot escape", filepath.Join(base, "..", "escape.txt"), false},
		{"dotdot inside stays", filepath.Join(base, "a", "..", "f.txt"), true},
		{"sibling with shared prefix", base + "2", false},
		{"unrelated absolute", "/etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinRoot(base, tt.target))
		})
	}
}
