package treedb

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// dbLock is an exclusive flock(2) on "<database>.lock" held for the lifetime
// of an open database. It keeps a second process from writing the same file
// behind the cache's back.
//
// flock is advisory; only processes going through Open honor it.
type dbLock struct {
	file *os.File
}

// acquireLock takes a non-blocking exclusive lock on path, creating the file
// if needed. Returns [ErrDatabaseLocked] when another process holds it.
func acquireLock(path string) (*dbLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}

	if err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseLocked, path)
		}

		return nil, fmt.Errorf("lock: flock %s: %w", path, err)
	}

	return &dbLock{file: file}, nil
}

// Close releases the lock. Idempotent.
func (l *dbLock) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	fd := int(l.file.Fd())

	unlockErr := unix.Flock(fd, unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}
