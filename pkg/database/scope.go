package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by connections and transactions.
// Repositories run every statement through the Querier found in the context.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type contextKey string

const scopeKey contextKey = "dbScope"

// Scope is a request-scoped database handle. Tx is set while a transaction
// started by InTx is open.
type Scope struct {
	Conn *pgxpool.Conn
	Tx   pgx.Tx

	pool *pgxpool.Pool
}

// Querier returns the open transaction if any, otherwise the connection.
func (s *Scope) Querier() Querier {
	if s.Tx != nil {
		return s.Tx
	}
	return s.Conn
}

// Close releases the connection back to the pool.
// This MUST be called once the request is finished.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
}

// Acquire takes a connection from the pool for the duration of a request.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn, pool: db.Pool}, nil
}

// GetScope retrieves the request's database scope from context.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(*Scope)
	return scope, ok
}

// SetScope stores a database scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// QuerierFrom returns the Querier for the scope in ctx.
func QuerierFrom(ctx context.Context) (Querier, error) {
	scope, ok := GetScope(ctx)
	if !ok || scope == nil {
		return nil, fmt.Errorf("no database scope in context")
	}
	if scope.Conn == nil && scope.Tx == nil {
		return nil, fmt.Errorf("database scope has no connection")
	}
	return scope.Querier(), nil
}

// Detached runs fn with the scope's connection returned to the pool, then
// acquires a fresh connection for the scope. fn sees no database scope and
// must not query. Without a scope, or inside a transaction, fn runs as is.
func Detached(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok || scope == nil || scope.Tx != nil || scope.pool == nil {
		return fn(ctx)
	}

	if scope.Conn != nil {
		scope.Conn.Release()
		scope.Conn = nil
	}
	fnErr := fn(SetScope(ctx, nil))

	// Reacquire even if the caller has gone so the outcome can be recorded.
	conn, err := scope.pool.Acquire(context.WithoutCancel(ctx))
	if err != nil {
		return errors.Join(fnErr, fmt.Errorf("failed to reacquire database connection: %w", err))
	}
	scope.Conn = conn
	return fnErr
}

// InTx runs fn inside a transaction on the context's scope. Repositories called
// with the context passed to fn join the transaction. The transaction commits
// when fn returns nil and rolls back otherwise. Nested calls reuse the outer
// transaction.
func InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scope, ok := GetScope(ctx)
	if !ok || scope == nil {
		return fmt.Errorf("no database scope in context")
	}
	if scope.Tx != nil {
		return fn(ctx)
	}
	if scope.Conn == nil {
		return fmt.Errorf("database scope has no connection")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txScope := &Scope{Conn: scope.Conn, Tx: tx}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(SetScope(ctx, txScope)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
