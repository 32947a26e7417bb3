package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can
// branch with errors.Is without knowing the adapter.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Log source errors
	ErrLogFolderMissing = errors.New("log folder does not exist")
	ErrFileLocked       = errors.New("file is locked by another process")

	// Database errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
