package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonical resolves symlinks and returns an absolute clean path. Components that
// do not exist yet are kept as written below the deepest existing ancestor.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	rest := ""
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

// IsWithin reports whether path lies strictly inside root once both are canonicalized.
func IsWithin(root, path string) bool {
	croot, err := Canonical(root)
	if err != nil {
		return false
	}
	cpath, err := Canonical(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(croot, cpath)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// Exists reports whether something is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
