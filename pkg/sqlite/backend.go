// Package sqlite provides the public API for the SQLite databank store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/prs/internal/sqlite"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// NewBackend creates a new SQLite store.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".prs-db",
//	})
//	defer store.Detach()
//	err = store.Install(ctx)
//
//	db, err := store.Open(ctx, "sprot")
//	err = db.IndexString("P12345", "ac", "P12345")
//	err = db.Close(ctx, true)
func NewBackend() types.Store {
	return sqlite.NewBackend()
}
