package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "ecommerce/pkg/domain-errors"
)

// DefaultTimeout bounds a unit of work when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

// Runner executes fn as one atomic unit of work. fn receives a context that
// stores use to join the transaction. Nested calls join the outer unit.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Option configures a runner.
type Option func(*config)

type config struct {
	timeout time.Duration
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func newConfig(opts []Option) config {
	c := config{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// boundedContext rejects cancelled contexts and applies the default timeout.
func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// SQLRunner wraps fn in a database/sql transaction carried through the context.
type SQLRunner struct {
	db  *sql.DB
	cfg config
}

func NewSQLRunner(db *sql.DB, opts ...Option) *SQLRunner {
	return &SQLRunner{db: db, cfg: newConfig(opts)}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	ctx, cancel, err := boundedContext(ctx, r.cfg.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}

// InTx runs fn on the caller's transaction, or on a new one when ctx carries
// none. Stores use it for multi-statement writes.
func InTx(ctx context.Context, db *sql.DB, fn func(q Querier) error) error {
	if sqlTx, ok := From(ctx); ok {
		return fn(sqlTx)
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()
	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Snapshotter is implemented by in-memory stores taking part in a MemoryRunner
// unit of work. Snapshot captures current state and returns a func restoring it.
type Snapshotter interface {
	Snapshot() (restore func())
}

type memoryTxKey struct{}

// MemoryRunner serializes units of work with a mutex and rolls participating
// stores back to their snapshots when fn fails.
type MemoryRunner struct {
	mu           sync.Mutex
	participants []Snapshotter
	cfg          config
}

func NewMemoryRunner(participants []Snapshotter, opts ...Option) *MemoryRunner {
	return &MemoryRunner{participants: participants, cfg: newConfig(opts)}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) == r {
		return fn(ctx)
	}
	ctx, cancel, err := boundedContext(ctx, r.cfg.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), 0, len(r.participants))
	for _, p := range r.participants {
		restores = append(restores, p.Snapshot())
	}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, r)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
