package namespace_service

import "errors"

var (
	ErrPathNotFound  = errors.New("path not found")
	ErrNotADirectory = errors.New("path is not a directory")
	ErrNotAFile      = errors.New("path is not a file")
)
