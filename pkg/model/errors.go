package model

import "errors"

// Error kinds shared by the storage, marketplace and search packages.
// Callers classify with errors.Is.
var (
	// ErrConfig means credentials or settings are missing; fatal to a poll cycle.
	ErrConfig = errors.New("configuration error")
	// ErrDuplicateName means an active search already uses the name.
	ErrDuplicateName = errors.New("search name already in use")
	// ErrNotFound means the search does not exist or was deleted.
	ErrNotFound = errors.New("search not found")
	// ErrAuthRequired means no usable marketplace session is available.
	ErrAuthRequired = errors.New("marketplace authentication required")
	// ErrTransport means the marketplace call failed and may be retried.
	ErrTransport = errors.New("marketplace transport error")
	// ErrPersistence means a storage write failed.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidSearch means the search criteria failed validation.
	ErrInvalidSearch = errors.New("invalid search")
)
