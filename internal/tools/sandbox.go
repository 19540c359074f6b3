package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveInRoot resolves path against root and rejects results outside
// it. Symlinks are resolved best-effort so links cannot escape. An empty
// root only makes the path absolute.
func resolveInRoot(root, path string) (string, error) {
	if root == "" {
		return filepath.Abs(path)
	}
	cleanRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(cleanRoot); err == nil {
		cleanRoot = real
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanRoot, resolved)
	}
	resolved = filepath.Clean(resolved)
	if real, err := evalSymlinksExisting(resolved); err == nil {
		resolved = real
	}

	if !isUnder(resolved, cleanRoot) {
		return "", fmt.Errorf("path %q is outside %q", path, root)
	}
	return resolved, nil
}

// isUnder returns true if child is equal to or a descendant of parent.
func isUnder(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// evalSymlinksExisting resolves symlinks for the longest existing prefix
// of path and appends the rest.
func evalSymlinksExisting(path string) (string, error) {
	real, err := filepath.EvalSymlinks(path)
	if err == nil {
		return real, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		return "", err
	}
	resolvedDir, err := evalSymlinksExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
