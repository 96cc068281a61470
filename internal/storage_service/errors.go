package storage_service

import "errors"

var (
	ErrFileNotFound = errors.New("file not found")
	ErrOutOfBounds  = errors.New("offset or length out of bounds")
	ErrCopyFailed   = errors.New("failed to copy file from source")
)
