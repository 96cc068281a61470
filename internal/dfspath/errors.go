package dfspath

import "errors"

var (
	ErrInvalidComponent = errors.New("invalid path component")
	ErrInvalidPath      = errors.New("invalid path string")
	ErrNoParent         = errors.New("root has no parent")
	ErrNoLast           = errors.New("root has no last component")
)
