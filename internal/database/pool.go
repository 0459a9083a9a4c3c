package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/tvrec/internal/config"
	"github.com/jmylchreest/tvrec/internal/observability"
)

// flushQuery is issued on one connection before the pool is closed.
const flushQuery = "select 1;"

// OpenFunc opens a new pool for the given configuration.
type OpenFunc func(cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error)

// PoolManager owns the process's single database pool. The pool is created
// on first use and can be closed and recreated any number of times.
type PoolManager struct {
	mu     sync.Mutex
	cfg    config.DatabaseConfig
	logger *slog.Logger
	open   OpenFunc
	db     *DB
}

// NewPoolManager returns a PoolManager for cfg. No connection is made until Pool is called.
func NewPoolManager(cfg config.DatabaseConfig, logger *slog.Logger) *PoolManager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = config.DefaultIdleTimeout
	}
	return &PoolManager{
		cfg:    cfg,
		logger: observability.WithComponent(logger, "database"),
		open:   openPostgres,
	}
}

func openPostgres(cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	return New(cfg, logger, nil)
}

// WithOpener replaces the function used to open the pool.
func (p *PoolManager) WithOpener(fn OpenFunc) *PoolManager {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = fn
	return p
}

// Driver returns the configured driver name.
func (p *PoolManager) Driver() string {
	if p.cfg.Driver == "" {
		return "postgres"
	}
	return p.cfg.Driver
}

// Pool returns the live pool, opening it if none exists.
func (p *PoolManager) Pool(ctx context.Context) (*DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	db, err := p.open(p.cfg, p.logger)
	if err != nil {
		return nil, connectivityError("opening pool", err)
	}
	p.db = db

	p.logger.DebugContext(ctx, "database pool created",
		slog.String("driver", p.Driver()),
		slog.Duration("idle_timeout", p.cfg.IdleTimeout),
	)
	return db, nil
}

// acquire checks a connection out of the pool. Callers must Close it.
func (p *PoolManager) acquire(ctx context.Context) (*sql.Conn, error) {
	db, err := p.Pool(ctx)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.SQL()
	if err != nil {
		return nil, connectivityError("acquiring connection", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, connectivityError("acquiring connection", err)
	}
	return conn, nil
}

// End flushes and closes the pool. The handle is cleared only after the close
// completes, so a later Pool call creates a fresh pool. End on a pool that was
// never opened does nothing.
func (p *PoolManager) End(ctx context.Context) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	db := p.db

	done := observability.TimedOperationWithError(ctx, p.logger, "end_pool", &err)
	defer done()

	db.LogStats(ctx)

	var flushErr error
	sqlDB, err := db.SQL()
	if err != nil {
		flushErr = err
	} else if conn, connErr := sqlDB.Conn(ctx); connErr != nil {
		flushErr = connectivityError("acquiring connection", connErr)
	} else {
		if _, execErr := conn.ExecContext(ctx, flushQuery); execErr != nil {
			flushErr = connectivityError("flushing pool", execErr)
		}
		if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, sql.ErrConnDone) {
			p.logger.WarnContext(ctx, "releasing flush connection", slog.String("error", closeErr.Error()))
		}
	}

	closeErr := db.Close()
	p.db = nil

	return errors.Join(flushErr, closeErr)
}
