// This file implements the build session: a Databank that stages facts for
// one new generation and commits or discards them on Close.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/prs/internal/logger"
	"github.com/mesh-intelligence/prs/internal/metrics"
	"github.com/mesh-intelligence/prs/internal/staging"
	"github.com/mesh-intelligence/prs/internal/words"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// dateLayout is the storage format of date attributes.
const dateLayout = "2006-01-02"

// databank is one build session. It is not safe for concurrent use.
type databank struct {
	// ctx is the context the session was opened with. Catalog reads made
	// while indexing run under it.
	ctx       context.Context
	backend   *Backend
	gen       types.Generation
	area      *staging.Area
	log       *logger.Logger
	sequences map[string]struct{}
	closed    bool

	// err is the first failure of an ingestion operation. A failed session
	// can only be discarded.
	err error
}

var _ types.Databank = (*databank)(nil)

// Open allocates a new generation of name and a private staging area for
// it. The generation is not current until Close commits it.
func (b *Backend) Open(ctx context.Context, name string) (types.Databank, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}

	var gen types.Generation
	err := b.write(ctx, func(*sql.DB) error {
		var err error
		gen, err = b.catalog.create(ctx, name, b.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	area, err := staging.NewArea(b.config.StagingDir, name)
	if err != nil {
		if rerr := b.retract(ctx, gen); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, err
	}

	session := uuid.Must(uuid.NewV7()).String()
	d := &databank{
		ctx:       ctx,
		backend:   b,
		gen:       gen,
		area:      area,
		log:       b.log.Databank(name, gen.ID, session),
		sequences: make(map[string]struct{}),
	}
	d.log.Info().Str("staging", area.Dir()).Msg("session opened")
	return d, nil
}

func (d *databank) Name() string {
	return d.gen.Name
}

func (d *databank) Generation() types.Generation {
	return d.gen
}

func (d *databank) IndexString(entryID, key, s string) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	return d.append(types.KindString, staging.Fact{EntryID: entryID, Key: key, Value: flatten(s)})
}

func (d *databank) IndexUniqueString(entryID, key, s string) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	return d.append(types.KindUniqueString, staging.Fact{EntryID: entryID, Key: key, Value: flatten(s)})
}

func (d *databank) IndexNumber(entryID, key string, number float64) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return d.fail(fmt.Errorf("%w: %s %s", types.ErrInvalidNumber, entryID, key))
	}
	return d.append(types.KindNumber, staging.NumberFact{EntryID: entryID, Key: key, Number: number})
}

func (d *databank) IndexDate(entryID, key string, date time.Time) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	return d.append(types.KindDate, staging.Fact{EntryID: entryID, Key: key, Value: date.Format(dateLayout)})
}

func (d *databank) IndexText(entryID, key, text string) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	for _, w := range words.Tokenize(text) {
		if err := d.append(types.KindWord, staging.Fact{EntryID: entryID, Key: key, Value: w}); err != nil {
			return err
		}
	}
	return nil
}

func (d *databank) SetSequence(entryID, sequence string) error {
	if err := d.check(entryID); err != nil {
		return err
	}
	if _, ok := d.sequences[entryID]; ok {
		return d.fail(fmt.Errorf("%w: %s", types.ErrDuplicateSequence, entryID))
	}
	d.sequences[entryID] = struct{}{}
	return d.append(types.KindSequence, staging.SequenceRecord{EntryID: entryID, Sequence: sequence})
}

func (d *databank) IndexLink(entryID, otherName, otherEntryID string) error {
	if err := d.check(entryID); err != nil {
		return err
	}

	var otherID int64
	err := d.backend.withDB(func(*sql.DB) error {
		var err error
		otherID, err = d.backend.catalog.Resolve(d.ctx, otherName)
		return err
	})
	if errors.Is(err, types.ErrGenerationNotFound) {
		d.log.Warn().
			Str("entry", entryID).
			Str("other_databank", otherName).
			Str("other_entry", otherEntryID).
			Msg("link target has no generation, recording as string")
		d.backend.metrics.RecordUnresolvedLink(d.gen.Name, otherName)
		return d.append(types.KindString, staging.Fact{EntryID: entryID, Key: otherName, Value: flatten(otherEntryID)})
	}
	if err != nil {
		return d.fail(err)
	}
	return d.append(types.KindLink, staging.LinkRecord{
		EntryID:           entryID,
		OtherGenerationID: otherID,
		OtherEntryID:      otherEntryID,
	})
}

// Close commits the session when success is true and no ingestion
// operation failed; otherwise it discards the staged facts and retracts the
// generation. The staging area is released on every path.
func (d *databank) Close(ctx context.Context, success bool) (err error) {
	if d.closed {
		return types.ErrSessionClosed
	}
	d.closed = true

	defer func() {
		if rerr := d.area.Release(); rerr != nil {
			d.log.Error().Err(rerr).Msg("releasing staging area")
			err = errors.Join(err, rerr)
		}
	}()

	if !success || d.err != nil {
		derr := d.discard(ctx)
		if d.err != nil && success {
			return errors.Join(fmt.Errorf("%w: %w", types.ErrSessionFailed, d.err), derr)
		}
		return derr
	}
	return d.commit(ctx)
}

// commit runs the commit engine: bulk load, then reclamation. Reclamation
// never starts unless the load committed, so readers resolving the current
// generation see either the previous generation or this one, complete.
func (d *databank) commit(ctx context.Context) error {
	b := d.backend
	start := time.Now()

	if err := d.area.Flush(); err != nil {
		return d.abort(ctx, err)
	}

	// Load and reclaim under one turn as writer, so no other commit of this
	// process lands between them.
	var (
		counts    map[types.Kind]int
		reclaimed int
	)
	err := b.write(ctx, func(db *sql.DB) error {
		var err error
		if counts, err = b.load(ctx, db, d.gen, d.area, d.log); err != nil {
			return err
		}
		reclaimed, err = reclaim(ctx, db, d.gen)
		return err
	})
	if counts == nil {
		return d.abort(ctx, err)
	}

	total := 0
	for kind, n := range counts {
		total += n
		b.metrics.RecordRows(d.gen.Name, string(kind), n)
	}

	duration := time.Since(start)
	b.metrics.ObserveCommit(d.gen.Name, duration.Seconds())
	if err != nil {
		// The new generation is committed and current; the stale ones are
		// reclaimed by the next successful build of this name.
		d.log.LogCommit(total, 0, duration, err)
		b.metrics.RecordSession(d.gen.Name, metrics.StatusFailed)
		return fmt.Errorf("reclaiming stale generations of %s: %w", d.gen.Name, err)
	}

	d.log.LogCommit(total, reclaimed, duration, nil)
	b.metrics.RecordReclaimed(d.gen.Name, reclaimed)
	b.metrics.RecordSession(d.gen.Name, metrics.StatusCommitted)
	return nil
}

// abort handles a failed bulk load. The load transaction rolled back, so
// only the uncommitted catalog row is left to retract.
func (d *databank) abort(ctx context.Context, cause error) error {
	d.log.LogCommit(0, 0, 0, cause)
	d.backend.metrics.RecordSession(d.gen.Name, metrics.StatusFailed)
	if err := d.backend.retract(ctx, d.gen); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (d *databank) discard(ctx context.Context) error {
	d.log.Info().
		AnErr("cause", d.err).
		Msg("session discarded")
	d.backend.metrics.RecordSession(d.gen.Name, metrics.StatusDiscarded)
	return d.backend.retract(ctx, d.gen)
}

// check rejects operations on a closed session or with an empty entry id.
func (d *databank) check(entryID string) error {
	if d.closed {
		return types.ErrSessionClosed
	}
	if entryID == "" {
		return d.fail(types.ErrInvalidEntryID)
	}
	return nil
}

func (d *databank) append(kind types.Kind, rec any) error {
	if err := d.area.Append(kind, rec); err != nil {
		return d.fail(err)
	}
	return nil
}

// fail records the first failure of the session and returns err.
func (d *databank) fail(err error) error {
	if d.err == nil {
		d.err = err
	}
	return err
}

// retract removes the catalog row of an uncommitted generation. It ignores
// cancellation of ctx so an aborted build does not leak its row.
func (b *Backend) retract(ctx context.Context, gen types.Generation) error {
	ctx = context.WithoutCancel(ctx)
	return b.write(ctx, func(*sql.DB) error {
		return b.catalog.retract(ctx, gen.ID)
	})
}

// flatten replaces newlines so a string fact stays on one logical line.
func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
