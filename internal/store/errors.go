package store

import "errors"

var (
	ErrNotFound  = errors.New("store: resource not found")
	ErrDuplicate = errors.New("store: duplicate resource")
	// ErrUnknownTerm is returned when a category id does not exist.
	ErrUnknownTerm = errors.New("store: unknown term")
)
