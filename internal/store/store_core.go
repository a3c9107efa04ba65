package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"livecatalog/internal/clock"
	"livecatalog/internal/config"
	"livecatalog/internal/logging"
)

// Store is the local structured store backed by SQLite.
type Store struct {
	dataDir       string
	dbPath        string
	busyTimeoutMS int
	minFreeMiB    int
	clock         clock.Clock
	logger        *slog.Logger

	mu sync.RWMutex
	db *sql.DB

	// failLink lets tests force the frame-link step of
	// CreateProductFromFrame to fail.
	failLink func(*CapturedFrame) error
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "store")
	}
}

// WithClock replaces the time source used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open constructs a store for the configured database. The database file is
// not touched until Initialize.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("store: config is required")
	}
	s := &Store{
		dataDir:       cfg.Paths.DataDir,
		dbPath:        cfg.DatabasePath(),
		busyTimeoutMS: cfg.Store.BusyTimeoutMS,
		minFreeMiB:    cfg.Storage.MinFreeMiB,
		clock:         clock.System{},
		logger:        logging.NewComponentLogger(nil, "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Initialize opens the database, creating it and every collection on first
// run. Later calls are no-ops while the store stays open.
func (s *Store) Initialize(ctx context.Context) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if err := preflight(s.dataDir, s.minFreeMiB); err != nil {
		return err
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		s.dbPath, s.busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: open sqlite db: %w", ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: connect %s: %w", ErrStorageUnavailable, s.dbPath, err)
	}

	if err := retryOnBusy(ctx, func() error { return initSchema(ctx, db) }); err != nil {
		_ = db.Close()
		if isHostUnavailable(err) {
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		return err
	}
	if err := retryOnBusy(ctx, func() error { return applyMigrations(ctx, db) }); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.logger.Debug("store initialized", logging.String("path", s.dbPath))
	return nil
}

// preflight verifies the data directory can hold the database.
func preflight(dir string, minFreeMiB int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir %s: %w", ErrStorageUnavailable, dir, err)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%w: data dir %s not writable: %w", ErrStorageUnavailable, dir, err)
	}
	if minFreeMiB <= 0 {
		return nil
	}
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return fmt.Errorf("%w: statfs %s: %w", ErrStorageUnavailable, dir, err)
	}
	free := st.Bavail * uint64(st.Bsize)
	need := uint64(minFreeMiB) << 20
	if free < need {
		return fmt.Errorf("%w: %s free in %s, need %s",
			ErrStorageUnavailable, humanize.IBytes(free), dir, humanize.IBytes(need))
	}
	return nil
}

// Initialized reports whether the database is open.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Close closes the underlying database connection. A closed store may be
// initialized again.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	db, err := s.handle()
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// writeError classifies a failed write. Constraint violations become
// ErrDuplicateKey; other host failures become ErrPersistence.
func writeError(action string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrInvalidRecord),
		errors.Is(err, ErrUnknownCollection),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", action, err)
	case isConstraintViolation(err):
		return fmt.Errorf("%s: %w: %w", action, ErrDuplicateKey, err)
	default:
		return fmt.Errorf("%s: %w: %w", action, ErrPersistence, err)
	}
}
