package domain

import "errors"

// Sentinel errors for client operations
var (
	// ErrEngineOffline indicates the engine daemon is unreachable
	ErrEngineOffline = errors.New("download engine is unreachable")

	// ErrDownloadNotFound indicates the requested download does not exist
	ErrDownloadNotFound = errors.New("download not found")

	// ErrInvalidURL indicates the input is neither an absolute http(s) URL
	// nor a magnet link; it is surfaced before any engine call
	ErrInvalidURL = errors.New("not a valid download URL or magnet link")

	// ErrAlreadyCompleted indicates an operation on a finished download
	ErrAlreadyCompleted = errors.New("download already completed")
)
