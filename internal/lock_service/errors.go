package lock_service

import "errors"

var (
	ErrPathNotFound = errors.New("path not found")
	ErrLockNotHeld  = errors.New("no active lock on path")
)
