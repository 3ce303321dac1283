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

// MirrorLock manages a file-based lock for the sqlite mirror.
type MirrorLock struct {
	lock *flock.Flock
	path string
}

// NewMirrorLock creates a new lock for the given database path.
func NewMirrorLock(dbPath string) (*MirrorLock, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute mirror path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &MirrorLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the mirror lock, waiting if necessary.
// It will log a message if it has to wait.
func (l *MirrorLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Warn("Another audimetria process is writing to the mirror, waiting for it to finish...")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the mirror lock.
func (l *MirrorLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
