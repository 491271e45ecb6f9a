// Package filex holds small filesystem helpers for locating local state
// (the server's default SQLite file, the CLI's session store).
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubdDir creates dirName under the current working directory if it
// does not exist and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return ensureDir(filepath.Join(cwd, dirName))
}

// EnsureHomeSubdDir creates dirName under the user's home directory with
// owner-only permissions and returns its absolute path.
func EnsureHomeSubdDir(dirName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return ensureDir(filepath.Join(home, dirName))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}
