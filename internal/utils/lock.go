package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// FileLock is an advisory lock guarding writes to a single file.
type FileLock struct {
	lock *flock.Flock
	path string
}

// NewFileLock creates a lock for target, backed by "<target>.lock".
// Each FileLock owns its own descriptor, so two FileLocks on the same target
// exclude each other even inside one process.
func NewFileLock(target string) *FileLock {
	lockPath := target + lockFileSuffix
	return &FileLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}
}

// Lock acquires the lock, waiting if necessary.
func (l *FileLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Debugf("Another writer holds %s, waiting for it to finish", l.path)
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// ResolvePath returns path as an absolute path, or ~/.config/lootscope/<name> when path is empty.
func ResolvePath(path, name string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "lootscope", name), nil
	}
	return filepath.Abs(path)
}
