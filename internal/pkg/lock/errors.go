package lock

import "errors"

// ErrLockTimeout is returned when a user's lock cannot be acquired before the
// context ends.
var ErrLockTimeout = errors.New("lock acquisition timeout")
