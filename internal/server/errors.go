package server

import "errors"

var (
	ErrRegistrationRejected = errors.New("naming server rejected registration")
)
