package naming_service

import "errors"

var (
	ErrNoStorageAvailable  = errors.New("no storage servers available")
	ErrInvalidRegistration = errors.New("registration is missing a handle address")
)
