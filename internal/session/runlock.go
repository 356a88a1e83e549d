package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const lockName = "ghosttype.pid"

// runLock keeps two injector processes from interleaving keystrokes into the
// same focused window. It is a pid file under the user cache dir; a lock
// held by a dead process is treated as stale and removed.
type runLock struct {
	path string
}

func acquireRunLock() (*runLock, error) {
	path, err := lockPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve run lock path: %w", err)
	}
	l := &runLock{path: path}
	if err := l.checkExisting(); err != nil {
		return nil, err
	}
	if err := l.create(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *runLock) checkExisting() error {
	pidData, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading run lock: %w", err)
	}

	pid, err := strconv.Atoi(string(pidData))
	if err != nil {
		log.Printf("Session: invalid pid in run lock, removing stale file: %v", err)
		l.removeStaleFile()
		return nil
	}

	if isProcessAlive(pid) {
		return fmt.Errorf("another injector is running with PID %d", pid)
	}

	log.Printf("Session: process %d not alive, removing stale run lock", pid)
	l.removeStaleFile()
	return nil
}

func (l *runLock) create() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("failed to create run lock directory: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("failed to write run lock: %w", err)
	}
	return nil
}

func (l *runLock) release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Session: warning: failed to remove run lock: %v", err)
	}
}

func (l *runLock) removeStaleFile() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Session: warning: failed to remove stale run lock: %v", err)
	}
}

func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func lockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ghosttype", lockName), nil
}
