package services

import "errors"

// Data service errors
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNoSources means nothing is configured, or nothing has loaded yet
	ErrNoSources = errors.New("no sources loaded")

	ErrInvalidInput     = errors.New("invalid input")
	ErrReloadInProgress = errors.New("reload already in progress")
)
