// This file implements the commit engine: bulk load of the staged buffers
// under the new generation id, then reclamation of stale generations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/prs/internal/logger"
	"github.com/mesh-intelligence/prs/internal/staging"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// insertSQL maps each kind to the statement that loads one staged record.
var insertSQL = map[types.Kind]string{
	types.KindSequence:     "INSERT INTO entries_sequences (generation_id, entry_id, sequence) VALUES (?, ?, ?)",
	types.KindWord:         "INSERT INTO words_entries (generation_id, entry_id, key, word) VALUES (?, ?, ?, ?)",
	types.KindString:       "INSERT INTO strings_entries (generation_id, entry_id, key, string) VALUES (?, ?, ?, ?)",
	types.KindUniqueString: "INSERT INTO unique_strings_entries (generation_id, entry_id, key, string) VALUES (?, ?, ?, ?)",
	types.KindNumber:       "INSERT INTO numbers_entries (generation_id, entry_id, key, number) VALUES (?, ?, ?, ?)",
	types.KindDate:         "INSERT INTO dates_entries (generation_id, entry_id, key, date) VALUES (?, ?, ?, ?)",
	types.KindLink:         "INSERT INTO links (generation_id, entry_id, other_generation_id, other_entry_id) VALUES (?, ?, ?, ?)",
}

// staleWhere selects the generations a commit of generation (name, id)
// supersedes: every other committed generation of name, plus uncommitted
// ones opened before it. Uncommitted generations opened later belong to a
// build still in progress. Arguments: name, id, id.
const staleWhere = "name = ? AND id != ? AND (committed_at IS NOT NULL OR id < ?)"

// load bulk loads every staged buffer of area into the attribute tables,
// tagged with gen.ID, and marks gen committed. Everything happens in one
// transaction: either all rows and the committed mark become visible
// together, or none do. Returns the number of rows loaded per kind.
func (b *Backend) load(ctx context.Context, db *sql.DB, gen types.Generation, area *staging.Area, log *logger.Logger) (map[types.Kind]int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[types.Kind]int, len(types.Kinds))
	for _, kind := range types.Kinds {
		start := time.Now()
		n, err := loadKind(ctx, tx, gen.ID, area, kind)
		log.LogLoad(kind.Table(), n, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		counts[kind] = n

		if b.loadHook != nil {
			if err := b.loadHook(gen, kind); err != nil {
				return nil, err
			}
		}
	}

	if err := markCommitted(ctx, tx, gen.ID, b.now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing load transaction: %w", err)
	}
	return counts, nil
}

// loadKind streams the staged records of one kind through a prepared insert.
func loadKind(ctx context.Context, tx *sql.Tx, generationID int64, area *staging.Area, kind types.Kind) (int, error) {
	if area.Count(kind) == 0 {
		return 0, nil
	}

	table := kind.Table()
	stmt, err := tx.PrepareContext(ctx, insertSQL[kind])
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	n := 0
	exec := func(args ...any) error {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
		n++
		return nil
	}

	switch kind {
	case types.KindSequence:
		err = staging.Each(area, kind, func(r staging.SequenceRecord) error {
			return exec(generationID, r.EntryID, r.Sequence)
		})
	case types.KindNumber:
		err = staging.Each(area, kind, func(r staging.NumberFact) error {
			return exec(generationID, r.EntryID, r.Key, r.Number)
		})
	case types.KindLink:
		err = staging.Each(area, kind, func(r staging.LinkRecord) error {
			return exec(generationID, r.EntryID, r.OtherGenerationID, r.OtherEntryID)
		})
	default:
		err = staging.Each(area, kind, func(r staging.Fact) error {
			return exec(generationID, r.EntryID, r.Key, r.Value)
		})
	}
	if err != nil {
		if isUniqueViolation(err) {
			return n, fmt.Errorf("loading %s: %w: %w", table, types.ErrUniqueConflict, err)
		}
		return n, fmt.Errorf("loading %s: %w", table, err)
	}
	return n, nil
}

// reclaim deletes the stale generations superseded by gen: attribute rows
// first, table by table in reverse load order, then the catalog rows.
// Returns the number of generations reclaimed.
func reclaim(ctx context.Context, db *sql.DB, gen types.Generation) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning reclaim transaction: %w", err)
	}
	defer tx.Rollback()

	args := []any{gen.Name, gen.ID, gen.ID}
	for i := len(types.Kinds) - 1; i >= 0; i-- {
		table := types.Kinds[i].Table()
		query := fmt.Sprintf(
			"DELETE FROM %s WHERE generation_id IN (SELECT id FROM databanks WHERE %s)", table, staleWhere)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("reclaiming %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM databanks WHERE "+staleWhere, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaiming databanks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaiming databanks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing reclaim transaction: %w", err)
	}
	return int(n), nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
