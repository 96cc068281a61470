package namelib

import "errors"

var (
	ErrNotFound           = errors.New("path not found")
	ErrBadRequest         = errors.New("request rejected")
	ErrNoStorageAvailable = errors.New("no storage servers available")
	ErrAlreadyRegistered  = errors.New("storage server already registered")
	ErrOutOfBounds        = errors.New("offset or length out of bounds")
	ErrRemoteFailure      = errors.New("remote operation failed")
)
