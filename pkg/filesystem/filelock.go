package filesystem

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	log "github.com/stellarops/calpipe/pkg/logger"
)

const (
	// maxLockRetries is the number of times to retry acquiring a lock.
	maxLockRetries = 50
	// lockRetryDelay is the delay between lock retry attempts.
	lockRetryDelay = 10 * time.Millisecond
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("file is locked by another process")

// FileLock grants exclusive cross-process access to a file.
type FileLock interface {
	Lock() error
	Unlock() error
}

// flockFileLock implements FileLock using flock.
type flockFileLock struct {
	lock *flock.Flock
}

// NewFileLock creates a FileLock for the given path. The lock file is created
// at path + ".lock" to prevent lock loss during atomic renames.
func NewFileLock(path string) FileLock {
	return &flockFileLock{
		lock: flock.New(path + ".lock"),
	}
}

// Lock acquires the exclusive lock, retrying briefly for concurrent access.
func (f *flockFileLock) Lock() error {
	for i := 0; i < maxLockRetries; i++ {
		locked, err := f.lock.TryLock()
		if err != nil {
			return errors.Join(ErrLocked, err)
		}
		if locked {
			return nil
		}
		time.Sleep(lockRetryDelay)
	}
	return fmt.Errorf("%w: %s", ErrLocked, f.lock.Path())
}

// Unlock releases the lock.
func (f *flockFileLock) Unlock() error {
	if err := f.lock.Unlock(); err != nil {
		log.Trace("failed to unlock file", "error", err, "path", f.lock.Path())
		return err
	}
	return nil
}
