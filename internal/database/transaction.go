package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/tvrec/internal/observability"
)

// ExecFunc runs one statement inside a transaction.
type ExecFunc func(ctx context.Context, query string, args ...any) error

// TxFunc is the body of a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, exec ExecFunc) error

// Transaction implements Operator. begin, every exec, commit and rollback run
// on the same connection, which is released exactly once. When any phase
// fails the transaction is rolled back and the error from that phase is
// returned; a rollback failure is only logged.
func (o *SQLOperator) Transaction(ctx context.Context, fn TxFunc) error {
	conn, err := o.pool.acquire(ctx)
	if err != nil {
		o.logger.ErrorContext(ctx, "transaction connect error", slog.String("error", err.Error()))
		return err
	}
	defer o.release(ctx, conn)

	// A panicking body must not leave an open transaction on a pooled connection.
	defer func() {
		if r := recover(); r != nil {
			o.rollback(ctx, conn, "transaction panic", fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if _, err := conn.ExecContext(ctx, "begin"); err != nil {
		return o.rollback(ctx, conn, "transaction begin error", o.statementError(ctx, "begin", err))
	}

	exec := func(ctx context.Context, query string, args ...any) error {
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			return o.statementError(ctx, query, err)
		}
		return nil
	}

	if err := fn(ctx, exec); err != nil {
		return o.rollback(ctx, conn, "transaction callback error", err)
	}

	if _, err := conn.ExecContext(ctx, "commit"); err != nil {
		return o.rollback(ctx, conn, "transaction commit error", o.statementError(ctx, "commit", err))
	}
	return nil
}

// rollback logs cause, issues rollback on conn and returns cause.
func (o *SQLOperator) rollback(ctx context.Context, conn *sql.Conn, phase string, cause error) error {
	o.logger.ErrorContext(ctx, phase, slog.String("error", cause.Error()))

	if _, err := conn.ExecContext(context.WithoutCancel(ctx), "rollback"); err != nil {
		observability.Fatal(ctx, o.logger, "transaction rollback error",
			slog.String("phase", phase),
			slog.String("error", err.Error()),
		)
	}
	return cause
}
