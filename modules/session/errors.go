package session

import "errors"

var (
	ErrNoSession      = errors.New("session: no session")
	ErrInvalidSession = errors.New("session: invalid session")
)
