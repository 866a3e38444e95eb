// This file implements the read side used by the query layer and the CLI:
// entry hydration and value lookups against the current generation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// Entry returns every attribute row of entryID in the current generation of
// databank. The returned Entry is empty when the entry has no rows.
func (b *Backend) Entry(ctx context.Context, databank, entryID string) (*types.Entry, error) {
	var e *types.Entry
	err := b.withDB(func(db *sql.DB) error {
		gen, err := b.catalog.Current(ctx, databank)
		if err != nil {
			return err
		}
		e = types.NewEntry(databank, gen.ID, entryID)
		return hydrateEntry(ctx, db, e)
	})
	return e, err
}

// FindByWord returns the ids of the entries in the current generation of
// databank that have word under key, sorted.
func (b *Backend) FindByWord(ctx context.Context, databank, key, word string) ([]string, error) {
	return b.findEntries(ctx, databank,
		"SELECT DISTINCT entry_id FROM words_entries WHERE generation_id = ? AND key = ? AND word = ? ORDER BY entry_id",
		key, word)
}

// FindByString returns the ids of the entries in the current generation of
// databank that have s under key, in either string table, sorted.
func (b *Backend) FindByString(ctx context.Context, databank, key, s string) ([]string, error) {
	return b.findEntries(ctx, databank,
		`SELECT entry_id FROM strings_entries WHERE generation_id = ?1 AND key = ?2 AND string = ?3
		 UNION
		 SELECT entry_id FROM unique_strings_entries WHERE generation_id = ?1 AND key = ?2 AND string = ?3
		 ORDER BY entry_id`,
		key, s)
}

// CountRows returns the number of rows of kind tagged with generationID.
func (b *Backend) CountRows(ctx context.Context, kind types.Kind, generationID int64) (int, error) {
	table := kind.Table()
	if table == "" {
		return 0, fmt.Errorf("unknown kind %q", kind)
	}
	var n int
	err := b.withDB(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE generation_id = ?", table), generationID).Scan(&n)
	})
	return n, err
}

func (b *Backend) findEntries(ctx context.Context, databank, query string, args ...any) ([]string, error) {
	var ids []string
	err := b.withDB(func(db *sql.DB) error {
		gen, err := b.catalog.Current(ctx, databank)
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx, query, append([]any{gen.ID}, args...)...)
		if err != nil {
			return fmt.Errorf("querying %s: %w", databank, err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning entry id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// hydrateEntry loads every attribute table into e.
func hydrateEntry(ctx context.Context, db *sql.DB, e *types.Entry) error {
	err := db.QueryRowContext(ctx,
		"SELECT sequence FROM entries_sequences WHERE generation_id = ? AND entry_id = ?",
		e.GenerationID, e.EntryID).Scan(&e.Sequence)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("loading sequence: %w", err)
	}

	keyed := []struct {
		query string
		add   func(key string, value string) error
	}{
		{
			"SELECT key, string FROM strings_entries WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
			func(k, v string) error { e.Strings[k] = append(e.Strings[k], v); return nil },
		},
		{
			"SELECT key, string FROM unique_strings_entries WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
			func(k, v string) error { e.UniqueStrings[k] = append(e.UniqueStrings[k], v); return nil },
		},
		{
			"SELECT key, word FROM words_entries WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
			func(k, v string) error { e.Words[k] = append(e.Words[k], v); return nil },
		},
		{
			"SELECT key, date FROM dates_entries WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
			func(k, v string) error {
				t, err := time.Parse(dateLayout, v)
				if err != nil {
					return fmt.Errorf("parsing date %q: %w", v, err)
				}
				e.Dates[k] = append(e.Dates[k], t)
				return nil
			},
		},
	}
	for _, q := range keyed {
		if err := scanPairs(ctx, db, q.query, e, q.add); err != nil {
			return err
		}
	}

	rows, err := db.QueryContext(ctx,
		"SELECT key, number FROM numbers_entries WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
		e.GenerationID, e.EntryID)
	if err != nil {
		return fmt.Errorf("loading numbers: %w", err)
	}
	for rows.Next() {
		var (
			key    string
			number float64
		)
		if err := rows.Scan(&key, &number); err != nil {
			rows.Close()
			return fmt.Errorf("scanning number: %w", err)
		}
		e.Numbers[key] = append(e.Numbers[key], number)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading numbers: %w", err)
	}

	rows, err = db.QueryContext(ctx,
		"SELECT other_generation_id, other_entry_id FROM links WHERE generation_id = ? AND entry_id = ? ORDER BY rowid",
		e.GenerationID, e.EntryID)
	if err != nil {
		return fmt.Errorf("loading links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		l := types.Link{GenerationID: e.GenerationID, EntryID: e.EntryID}
		if err := rows.Scan(&l.OtherGenerationID, &l.OtherEntryID); err != nil {
			return fmt.Errorf("scanning link: %w", err)
		}
		e.Links = append(e.Links, l)
	}
	return rows.Err()
}

func scanPairs(ctx context.Context, db *sql.DB, query string, e *types.Entry, add func(string, string) error) error {
	rows, err := db.QueryContext(ctx, query, e.GenerationID, e.EntryID)
	if err != nil {
		return fmt.Errorf("loading entry attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning entry attribute: %w", err)
		}
		if err := add(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}
