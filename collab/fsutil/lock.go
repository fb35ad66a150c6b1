// Package fsutil provides the on-disk primitives shared by every durable
// component of the collaboration core: an advisory exclusive file lock,
// acquired off the caller's goroutine so a blocking OS call never stalls
// callers waiting on ctx, and an atomic JSON write.
package fsutil

import (
	"context"
	"fmt"
	"os"
)

// Lock holds an OS-level exclusive advisory lock on a sibling file. The lock
// is released by Unlock, which also closes the underlying file handle.
type Lock struct {
	f *os.File
}

// LockExclusive opens (create-if-missing, read-write, no truncate) path and
// blocks until an exclusive flock is acquired. The blocking flock(2) call
// runs on a dedicated goroutine so ctx cancellation can return promptly
// instead of waiting for the OS to grant the lock.
func LockExclusive(ctx context.Context, path string) (*Lock, error) {
	type result struct {
		f   *os.File
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			done <- result{nil, fmt.Errorf("open lock file %s: %w", path, err)}
			return
		}
		if err := lockFile(f); err != nil {
			f.Close()
			done <- result{nil, fmt.Errorf("lock %s: %w", path, err)}
			return
		}
		done <- result{f, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &Lock{f: r.f}, nil
	}
}

// Unlock releases the lock and closes the underlying file handle. Safe to
// call once; callers typically defer it immediately after acquisition.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unlockFile(l.f)
	return l.f.Close()
}
