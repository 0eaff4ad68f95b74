package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	ErrNotAPost      = errors.New("content item is not a post")
	ErrRunInProgress = errors.New("another run is already in progress")
)
