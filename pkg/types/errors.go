package types

import "errors"

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Catalog errors.
var (
	ErrGenerationNotFound = errors.New("generation not found")
	ErrInvalidName        = errors.New("invalid databank name")
)

// Session errors. ErrSessionClosed, ErrDuplicateSequence, ErrInvalidEntryID
// and ErrInvalidNumber are caller contract violations and fail the session.
var (
	ErrSessionClosed     = errors.New("databank session is closed")
	ErrDuplicateSequence = errors.New("sequence already set for entry")
	ErrInvalidEntryID    = errors.New("invalid entry ID")
	ErrInvalidNumber     = errors.New("number must be finite")
	ErrUniqueConflict    = errors.New("unique string conflict")
	ErrSessionFailed     = errors.New("databank session failed")
)
