// Package lock provides per-user locking so that a user's catch and claim
// commands run one at a time.
package lock

import (
	"context"
	"sync"
)

// userSlot is a one-token semaphore shared by every waiter on a user.
type userSlot struct {
	token   chan struct{}
	waiters int
}

// UserLock serializes work per user id. Slots are created on demand and
// dropped once nobody holds or waits on them.
type UserLock struct {
	mu    sync.Mutex
	slots map[int64]*userSlot
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[int64]*userSlot)}
}

func (ul *UserLock) acquireSlot(userID int64) *userSlot {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[userID]
	if !ok {
		s = &userSlot{token: make(chan struct{}, 1)}
		ul.slots[userID] = s
	}
	s.waiters++
	return s
}

func (ul *UserLock) releaseSlot(userID int64, s *userSlot) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(ul.slots, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	s := ul.acquireSlot(userID)
	s.token <- struct{}{}
}

// LockContext acquires the user's lock or returns ctx.Err() if ctx ends first.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	s := ul.acquireSlot(userID)
	select {
	case s.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseSlot(userID, s)
		return ctx.Err()
	}
}

// TryLock acquires the user's lock if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	s := ul.acquireSlot(userID)
	select {
	case s.token <- struct{}{}:
		return true
	default:
		ul.releaseSlot(userID, s)
		return false
	}
}

// Unlock releases the user's lock. Unlocking a lock that is not held panics.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	s, ok := ul.slots[userID]
	ul.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked user")
	}

	select {
	case <-s.token:
	default:
		panic("lock: unlock of unlocked user")
	}
	ul.releaseSlot(userID, s)
}

// WithLock runs fn while holding the user's lock.
// It returns ErrLockTimeout if ctx ends before the lock is acquired.
func (ul *UserLock) WithLock(ctx context.Context, userID int64, fn func() error) error {
	if err := ul.LockContext(ctx, userID); err != nil {
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)
	return fn()
}

// IsLocked reports whether the user's lock is currently held.
// The answer may be stale by the time it is read.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[userID]
	return ok && len(s.token) == 1
}

// Len returns the number of users with a live slot.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.slots)
}
