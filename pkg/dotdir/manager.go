// Package dotdir manages the .fastrag/ and ~/.fastrag directories that hold
// the configuration file and the default vector index.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the fastrag directory.
	dirName = ".fastrag"

	// indexFile is the default sqlite-vec index inside the directory.
	indexFile = "index.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to an existing .fastrag/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.fastrag/ dir
//  3. Home ~/.fastrag/ dir
//
// When none of these exist and no override is given, Target returns "".
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating fastrag directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, dirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if global := filepath.Join(home, dirName); isDir(global) {
		return global, nil
	}

	return "", nil
}

// Resolve is Target, falling back to creating ~/.fastrag/ when no
// directory exists yet.
func (m *Manager) Resolve(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating fastrag directory %s: %w", dir, err)
	}
	return dir, nil
}

// IndexPath returns the default sqlite-vec index path inside dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, indexFile)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
