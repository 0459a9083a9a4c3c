package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/tvrec/internal/observability"
)

// Operator executes SQL against the pool. Every call borrows one connection
// and returns it before the call completes.
type Operator interface {
	Dialect

	// Ping verifies the pool can serve a trivial query.
	Ping(ctx context.Context) error
	// End flushes and closes the pool.
	End(ctx context.Context) error
	// Query runs a statement and returns all result rows.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// Insert runs an insert and returns the generated id, or 0 when none was returned.
	Insert(ctx context.Context, query string, args ...any) (int64, error)
	// Transaction runs fn inside begin/commit on a single connection.
	Transaction(ctx context.Context, fn TxFunc) error
	// Exists reports whether a table with the given name exists.
	Exists(ctx context.Context, table string) (bool, error)
}

// Querier is the subset of Operator needed by QueryAs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// SQLOperator is the Operator backed by a PoolManager.
type SQLOperator struct {
	Dialect
	pool   *PoolManager
	logger *slog.Logger
}

var _ Operator = (*SQLOperator)(nil)

// NewOperator returns an operator that uses dialect for SQL fragments.
func NewOperator(pool *PoolManager, dialect Dialect, logger *slog.Logger) *SQLOperator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLOperator{
		Dialect: dialect,
		pool:    pool,
		logger:  observability.WithComponent(logger, "sql"),
	}
}

// NewOperatorForDriver returns an operator using the dialect registered for the pool's driver.
func NewOperatorForDriver(pool *PoolManager, logger *slog.Logger) (*SQLOperator, error) {
	dialect, err := DialectFor(pool.Driver())
	if err != nil {
		return nil, err
	}
	return NewOperator(pool, dialect, logger), nil
}

// Ping implements Operator.
func (o *SQLOperator) Ping(ctx context.Context) error {
	if _, err := o.Query(ctx, "select 1;"); err != nil {
		return connectivityError("ping", err)
	}
	return nil
}

// End implements Operator.
func (o *SQLOperator) End(ctx context.Context) error {
	return o.pool.End(ctx)
}

// Query implements Operator.
func (o *SQLOperator) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	var result []Row
	err := o.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return o.statementError(ctx, query, err)
		}
		defer func() { _ = rows.Close() }()

		result, err = scanRows(rows)
		if err != nil {
			return o.statementError(ctx, query, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Insert implements Operator. The statement should end with ReturningStr()
// when the caller needs the generated id.
func (o *SQLOperator) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	rows, err := o.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		if id, ok := rows[0].Int64("id"); ok {
			return id, nil
		}
	}

	o.logger.WarnContext(ctx, "insert returned no id", slog.String("sql", truncateSQL(query)))
	return 0, nil
}

// Exists implements Operator.
func (o *SQLOperator) Exists(ctx context.Context, table string) (bool, error) {
	query, args := o.TableExistsQuery(table)
	rows, err := o.Query(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}
	return len(rows) > 0, nil
}

// withConn runs fn on a borrowed connection and releases it afterwards.
func (o *SQLOperator) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := o.pool.acquire(ctx)
	if err != nil {
		o.logger.ErrorContext(ctx, "connect error", slog.String("error", err.Error()))
		return err
	}
	defer o.release(ctx, conn)
	return fn(conn)
}

func (o *SQLOperator) release(ctx context.Context, conn *sql.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		o.logger.WarnContext(ctx, "releasing connection", slog.String("error", err.Error()))
	}
}

func (o *SQLOperator) statementError(ctx context.Context, query string, err error) error {
	attrs := []any{
		slog.String("sql", truncateSQL(query)),
		slog.String("error", err.Error()),
	}
	if code := SQLState(err); code != "" {
		attrs = append(attrs, slog.String("sqlstate", code))
	}
	o.logger.DebugContext(ctx, "statement failed", attrs...)

	if isConnectivityError(err) {
		return connectivityError("executing statement", err)
	}
	return &StatementError{Query: query, Err: err}
}
