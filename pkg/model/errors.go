package model

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotCached is returned when a copy is requested for an item the
	// catalog does not mark as cached. This is a programmer error, callers
	// must download through the cache first.
	ErrNotCached = errors.New("item is not marked as cached")
)
