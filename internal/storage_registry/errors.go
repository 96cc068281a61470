package storage_registry

import "errors"

var (
	ErrServerAlreadyRegistered = errors.New("storage server already registered")
	ErrNoServersAvailable      = errors.New("no storage servers available")
)
