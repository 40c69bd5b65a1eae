package relay

import "errors"

var (
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrNotFound            = errors.New("connection not found")
	ErrNotJoined           = errors.New("no room joined")
	ErrPersistenceFailed   = errors.New("message not persisted")
)
