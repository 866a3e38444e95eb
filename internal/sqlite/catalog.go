// This file implements the generation catalog and the cross-link resolver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/prs/pkg/types"
)

// Catalog maps databank names to their generations. The current generation
// of a name is its committed generation with the latest created_at; ties go
// to the higher id.
type Catalog struct {
	db *sql.DB
}

const selectGeneration = "SELECT id, name, created_at, committed_at FROM databanks"

// Current returns the current generation of name, or ErrGenerationNotFound
// when no build of name was ever committed.
func (c *Catalog) Current(ctx context.Context, name string) (types.Generation, error) {
	row := c.db.QueryRowContext(ctx,
		selectGeneration+" WHERE name = ? AND committed_at IS NOT NULL ORDER BY created_at DESC, id DESC LIMIT 1",
		name)
	gen, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Generation{}, fmt.Errorf("%w: %s", types.ErrGenerationNotFound, name)
	}
	if err != nil {
		return types.Generation{}, fmt.Errorf("resolving current generation of %s: %w", name, err)
	}
	return gen, nil
}

// Resolve returns the id of the current generation of name. Links recorded
// with it keep pointing at that generation even after name is rebuilt.
func (c *Catalog) Resolve(ctx context.Context, name string) (int64, error) {
	gen, err := c.Current(ctx, name)
	if err != nil {
		return 0, err
	}
	return gen.ID, nil
}

// Get returns the generation with the given id.
func (c *Catalog) Get(ctx context.Context, id int64) (types.Generation, error) {
	gen, err := scanGeneration(c.db.QueryRowContext(ctx, selectGeneration+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Generation{}, fmt.Errorf("%w: id %d", types.ErrGenerationNotFound, id)
	}
	return gen, err
}

// Generations returns every catalog row of name, committed or not, oldest
// first.
func (c *Catalog) Generations(ctx context.Context, name string) ([]types.Generation, error) {
	rows, err := c.db.QueryContext(ctx,
		selectGeneration+" WHERE name = ? ORDER BY created_at, id", name)
	if err != nil {
		return nil, fmt.Errorf("listing generations of %s: %w", name, err)
	}
	defer rows.Close()

	var gens []types.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

// Names returns the distinct databank names in the catalog, sorted.
func (c *Catalog) Names(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT DISTINCT name FROM databanks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing databanks: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning databank name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// create allocates the catalog row of a new, uncommitted generation.
func (c *Catalog) create(ctx context.Context, name string, at time.Time) (types.Generation, error) {
	res, err := c.db.ExecContext(ctx,
		"INSERT INTO databanks (name, created_at) VALUES (?, ?)", name, at.UnixNano())
	if err != nil {
		return types.Generation{}, fmt.Errorf("creating generation of %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Generation{}, fmt.Errorf("reading generation id: %w", err)
	}
	return types.Generation{ID: id, Name: name, CreatedAt: at}, nil
}

// retract deletes the catalog row of a generation that never committed.
// Committed generations are left alone.
func (c *Catalog) retract(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx,
		"DELETE FROM databanks WHERE id = ? AND committed_at IS NULL", id); err != nil {
		return fmt.Errorf("retracting generation %d: %w", id, err)
	}
	return nil
}

// markCommitted flags a generation as fully loaded. It runs inside the load
// transaction, so the generation becomes current together with its rows.
func markCommitted(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE databanks SET committed_at = ? WHERE id = ? AND committed_at IS NULL", at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("marking generation %d committed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking generation %d committed: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("marking generation %d committed: %w", id, types.ErrGenerationNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (types.Generation, error) {
	var (
		gen         types.Generation
		createdAt   int64
		committedAt sql.NullInt64
	)
	if err := row.Scan(&gen.ID, &gen.Name, &createdAt, &committedAt); err != nil {
		return types.Generation{}, err
	}
	gen.CreatedAt = time.Unix(0, createdAt).UTC()
	if committedAt.Valid {
		gen.CommittedAt = time.Unix(0, committedAt.Int64).UTC()
	}
	return gen, nil
}
