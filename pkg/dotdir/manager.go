// Package dotdir locates and manages chatgate's state directory.
//
// The directory holds config.toml, credentials.toml and transcript.json, the
// last interactive chat session kept for --resume. A project-local
// ./.chatgate shadows the per-user ~/.chatgate.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the chatgate directory.
const DirName = ".chatgate"

const dirPerm = 0o755

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Resolve returns the absolute directory chatgate should use without
// creating anything. A non-empty override wins, then ./.chatgate if it
// exists, then ~/.chatgate.
func (m *Manager) Resolve(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}

	local, err := localDir()
	if err != nil {
		return "", err
	}
	if isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Target is Resolve followed by creating the directory if needed.
func (m *Manager) Target(override string) (string, error) {
	dir, err := m.Resolve(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating chatgate directory %s: %w", dir, err)
	}
	return dir, nil
}

// InitLocal creates ./.chatgate. created is false when it already existed.
func (m *Manager) InitLocal() (dir string, created bool, err error) {
	dir, err = localDir()
	if err != nil {
		return "", false, err
	}
	if isDir(dir) {
		return dir, false, nil
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", false, fmt.Errorf("creating %s directory: %w", DirName, err)
	}
	return dir, true, nil
}

func localDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return filepath.Join(cwd, DirName), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
