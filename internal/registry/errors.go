package registry

import "fmt"

type LockError struct {
	key string
	err error
}

func NewLockError(key string, err error) *LockError {
	return &LockError{key: key, err: err}
}

func (e *LockError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("failed to acquire lock on %s: %v", e.key, e.err)
	}
	return fmt.Sprintf("failed to acquire lock on %s", e.key)
}

func (e *LockError) Unwrap() error {
	return e.err
}
