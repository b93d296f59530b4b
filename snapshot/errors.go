package snapshot

import (
	"github.com/rotisserie/eris"
)

var (
	ErrEntityDoesNotExist  = eris.New("entity does not exist")
	ErrComponentRegistered = eris.New("component is already registered")

	// ErrUnknownComponentTag is returned when a snapshot contains a kind tag
	// that no registered component matches. Population blocks carry no length
	// prefix, so an unknown block cannot be skipped; the decode aborts.
	ErrUnknownComponentTag = eris.New("unknown component tag")

	// ErrVersionMismatch is returned when a snapshot's major version differs
	// from the world's.
	ErrVersionMismatch = eris.New("snapshot version is not compatible")
)
