package core

import "errors"

// Common errors carried inside OpResult.
var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrEntityExists  = errors.New("entity already exists")
	ErrNoModule      = errors.New("no editing module accepts this entity")
	ErrStaleAnchor   = errors.New("backing fragment no longer at expected position")
)
