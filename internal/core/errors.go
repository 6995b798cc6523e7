package core

import "go.trai.ch/zerr"

var (
	// ErrNotFound is returned when no lookup strategy could locate an entry file.
	ErrNotFound = zerr.New("worker entry not found")

	// ErrBundle is returned when the bundling tool rejects a worker entry.
	ErrBundle = zerr.New("worker bundling failed")

	// ErrIO is returned when a worker file or directory cannot be written.
	ErrIO = zerr.New("worker file write failed")

	// ErrInvalidOptions is returned for option values the plugin cannot use.
	ErrInvalidOptions = zerr.New("invalid monaco worker options")

	// ErrNotConfigured is returned when a hook runs before the host config is known.
	ErrNotConfigured = zerr.New("host configuration not resolved")
)
