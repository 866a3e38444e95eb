package types

import (
	"context"
	"time"
)

// Store is a versioned databank index. Callers attach to a backend, open one
// Databank session per build, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Install creates the durable tables and indexes if they do not exist.
	Install(ctx context.Context) error

	// Open starts a build of a new generation of the named databank.
	Open(ctx context.Context, name string) (Databank, error)

	// Current returns the current generation of the named databank, or
	// ErrGenerationNotFound when no build of it was ever committed.
	Current(ctx context.Context, name string) (Generation, error)
}

// Databank is the ingestion interface of one build session. Operations only
// append to the session's staging area; nothing is durable until Close
// commits. Every operation returns ErrSessionClosed after Close.
type Databank interface {
	// Name returns the databank name the session builds.
	Name() string

	// Generation returns the generation allocated for this build.
	Generation() Generation

	// IndexString records a string attribute. Newlines become spaces.
	IndexString(entryID, key, s string) error

	// IndexUniqueString records a string that must be unique per
	// (generation, key). Duplicates fail the commit with ErrUniqueConflict.
	IndexUniqueString(entryID, key, s string) error

	// IndexNumber records a numeric attribute.
	IndexNumber(entryID, key string, number float64) error

	// IndexDate records a calendar date, stored as YYYY-MM-DD.
	IndexDate(entryID, key string, date time.Time) error

	// IndexText tokenizes text and records one word attribute per distinct
	// token.
	IndexText(entryID, key, text string) error

	// SetSequence records the entry's sequence. A second call for the same
	// entry returns ErrDuplicateSequence and fails the session.
	SetSequence(entryID, sequence string) error

	// IndexLink records a cross-link to otherEntryID in the current
	// generation of otherName. When otherName has no generation the fact is
	// recorded as a string attribute under key otherName instead.
	IndexLink(entryID, otherName, otherEntryID string) error

	// Close ends the session. With success it commits the staged facts and
	// reclaims older generations; otherwise, or after a failed operation, it
	// discards them. Staging storage is released either way.
	Close(ctx context.Context, success bool) error
}
