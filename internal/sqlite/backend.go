// Package sqlite implements the SQLite backend of the databank index.
// SQLite holds the generation catalog and the attribute tables; each build
// session stages its facts in JSONL files and bulk loads them on commit.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/prs/internal/logger"
	"github.com/mesh-intelligence/prs/internal/metrics"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// DatabaseFile is the SQLite file name inside Config.DataDir.
const DatabaseFile = "prs.db"

// DefaultBusyTimeout is how long a write transaction waits for another
// process holding the database write lock.
const DefaultBusyTimeout = 30 * time.Second

// dsn opens the database in WAL mode so readers keep seeing the last
// committed generation while a bulk load is in progress. Write transactions
// take the write lock up front and wait up to busyTimeout for it.
func dsn(path string, busyTimeout time.Duration) string {
	return path + "?_pragma=journal_mode(WAL)" +
		fmt.Sprintf("&_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()) +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
}

// Backend implements types.Store on a SQLite database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	catalog  *Catalog

	log         *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	busyTimeout time.Duration

	// writer is held by the write transaction in progress. SQLite has a
	// single write lock and a bulk load holds it for as long as it runs, so
	// writers of this process queue here rather than on the busy timeout.
	writer chan struct{}

	// loadHook runs inside the load transaction after each kind is loaded.
	// Tests use it to fail a commit part way through.
	loadHook func(types.Generation, types.Kind) error
}

var _ types.Store = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for sessions and commits.
func WithLogger(l *logger.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics sets the metrics sessions and commits report to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Backend) {
		b.metrics = m
	}
}

// WithBusyTimeout sets how long a write transaction waits for the database
// write lock held by another process. Defaults to DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.busyTimeout = d
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log:         logger.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
		busyTimeout: DefaultBusyTimeout,
		writer:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database in config.DataDir, creating it and
// config.StagingDir if needed. The schema is not created; see Install.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if config.StagingDir != "" {
		if err := os.MkdirAll(config.StagingDir, 0o755); err != nil {
			return fmt.Errorf("creating staging directory: %w", err)
		}
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dsn(dbPath, b.busyTimeout))
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}

	b.db = db
	b.config = config
	b.catalog = &Catalog{db: db}
	b.attached = true

	b.log.Debug().Str("database", dbPath).Msg("store attached")
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrDetached. Detach is idempotent. Open sessions fail on their next
// durable operation.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	b.catalog = nil
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// Install creates the durable tables and indexes. It is idempotent and is
// meant to run once when the data directory is provisioned.
func (b *Backend) Install(ctx context.Context) error {
	return b.write(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning install transaction: %w", err)
		}
		defer tx.Rollback()

		for _, stmt := range schemaDDL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating table: %w", err)
			}
		}
		for _, stmt := range indexDDL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating index: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Catalog returns the generation catalog of the attached database.
func (b *Backend) Catalog() (*Catalog, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	return b.catalog, nil
}

// Current returns the current generation of the named databank.
func (b *Backend) Current(ctx context.Context, name string) (types.Generation, error) {
	var gen types.Generation
	err := b.withDB(func(*sql.DB) error {
		var err error
		gen, err = b.catalog.Current(ctx, name)
		return err
	})
	return gen, err
}

// Build runs fn against a new session for name and closes it: committed
// when fn returns nil, discarded when fn returns an error or panics.
func (b *Backend) Build(ctx context.Context, name string, fn func(types.Databank) error) error {
	db, err := b.Open(ctx, name)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = db.Close(context.WithoutCancel(ctx), false)
			panic(r)
		}
	}()

	if err := fn(db); err != nil {
		return errors.Join(err, db.Close(ctx, false))
	}
	return db.Close(ctx, true)
}

// withDB runs fn while holding the read lock, so Detach cannot close the
// database underneath it.
func (b *Backend) withDB(fn func(*sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrDetached
	}
	return fn(b.db)
}

// write runs fn as the only writer of this process. Waiting for the turn
// stops when ctx is done.
func (b *Backend) write(ctx context.Context, fn func(*sql.DB) error) error {
	select {
	case b.writer <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.writer }()
	return b.withDB(fn)
}

// validName reports whether name can be used as a databank name. Names end
// up in staging directory names, so path separators are rejected.
func validName(name string) bool {
	if strings.TrimSpace(name) != name || name == "" {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
