package types

import "time"

// Generation is one build of a named databank. The committed generation with
// the latest CreatedAt is the current one for its name.
type Generation struct {
	ID          int64     `json:"id"`           // Catalog row id; tags every attribute row of the build.
	Name        string    `json:"name"`         // Databank name, e.g. "sprot".
	CreatedAt   time.Time `json:"created_at"`   // Set when the build session opened.
	CommittedAt time.Time `json:"committed_at"` // Zero while the build is in progress.
}

// Committed reports whether the generation finished its bulk load.
func (g Generation) Committed() bool {
	return !g.CommittedAt.IsZero()
}
