package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
)

const (
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// LockPath returns the advisory lock file guarding the corpus at path.
func LockPath(path string) string {
	return path + ".lock"
}

// readLock takes a shared lock for path. Failing to lock is not fatal, the corpus is
// read anyway and a warning is logged.
func readLock(path string) func() {
	fl := flock.New(LockPath(path))

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		log.Warnf("Could not lock corpus %s, reading without lock: %v", path, err)
		return func() {}
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warnf("Failed to release corpus lock: %v", err)
		}
	}
}

// LockForWrite takes the exclusive lock for path, waiting until ctx is done.
// The returned func releases it.
func LockForWrite(ctx context.Context, path string) (func() error, error) {
	fl := flock.New(LockPath(path))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", LockPath(path), err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: lock is held", LockPath(path))
	}
	return fl.Unlock, nil
}
