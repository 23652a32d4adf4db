package service

import (
	"errors"
	"fmt"
)

var (
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrSelfChat   = errors.New("cannot chat with yourself")
	ErrSelfFriend = errors.New("cannot befriend yourself")
	ErrValidation = errors.New("invalid input")
)

// StorageError wraps a failed storage call. It is reported as an internal
// error and never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
