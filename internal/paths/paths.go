// Package paths knows where annot keeps its files and how source paths are
// shown relative to the workspace.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-workspace directory holding annot's state.
	DataDirName = ".annot"

	ConfigFileName  = "config.json"
	JournalFileName = "journal.db"
	LogsSubdir      = "logs"
	LogFileName     = "annot.log"
)

// ErrNoWorkspace is returned by FindRoot when no ancestor holds DataDirName.
var ErrNoWorkspace = errors.New("no .annot directory found")

// DataDir is the state directory of the workspace at root.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// ConfigPath is the workspace configuration file.
func ConfigPath(root string) string {
	return filepath.Join(DataDir(root), ConfigFileName)
}

// LogPath is the workspace log file.
func LogPath(root string) string {
	return filepath.Join(DataDir(root), LogsSubdir, LogFileName)
}

// EnsureDataDir creates the workspace state directory.
func EnsureDataDir(root string) (string, error) {
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// FindRoot walks up from start to the nearest directory containing
// DataDirName.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, DataDirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks on both sides when they exist.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot reports whether path lies inside root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Display renders path relative to root when it lies inside it, and as
// given otherwise. An empty root leaves the path untouched.
func Display(path string, root string) string {
	if root == "" || !filepath.IsAbs(path) || !IsWithinRoot(path, root) {
		return path
	}
	rel, err := CanonicalizePath(path, root)
	if err != nil {
		return path
	}
	return rel
}

// NormalizePath converts OS separators to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRoot joins root with a forward-slash relative path.
func JoinRoot(root string, canonicalPath string) string {
	parts := strings.Split(strings.ReplaceAll(canonicalPath, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// Absolute resolves path against root unless it is already absolute.
func Absolute(path string, root string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return JoinRoot(root, path)
}
