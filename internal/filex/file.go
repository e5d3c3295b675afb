// Package filex contains filesystem helpers shared by the upload manager
// and the client state directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) if it does not exist and returns
// its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// WithinRoot reports whether target resolves to a path inside base
// (or base itself). Both paths are made absolute and cleaned first, so a
// relative path carrying ".." segments cannot escape.
func WithinRoot(base, target string) bool {
	baseAbs, err1 := filepath.Abs(base)
	targetAbs, err2 := filepath.Abs(target)
	if err1 != nil || err2 != nil {
		return false
	}
	baseAbs = filepath.Clean(baseAbs)
	targetAbs = filepath.Clean(targetAbs)
	if baseAbs == targetAbs {
		return true
	}
	return strings.HasPrefix(targetAbs, baseAbs+string(os.PathSeparator))
}
