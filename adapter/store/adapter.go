package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

type Adapter struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

type Option func(*Adapter)

func WithDialect(dialect Dialect) Option {
	return func(a *Adapter) {
		a.dialect = dialect
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(db *sql.DB, options ...Option) *Adapter {
	a := &Adapter{
		db:      db,
		dialect: DialectSQLite,
		logger:  zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With("dialect", a.dialect).Info("init store adapter")

	return a
}

type Scannable interface {
	Scan(dest ...any) error
}

type Query interface {
	SQL() (string, []any)
}

func (a *Adapter) rebind(query string) string {
	return rebind(a.dialect, query)
}

func (a *Adapter) execQuery(ctx context.Context, tx *sql.Tx, q Query) error {
	query, args := q.SQL()
	stmt, err := tx.PrepareContext(ctx, a.rebind(query))
	if err != nil {
		return fmt.Errorf("prepare statement failed: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("exec context failed: %w", err)
	}

	return nil
}

func (a *Adapter) execQueryCheckRowsAffected(ctx context.Context, tx *sql.Tx, q Query) error {
	query, args := q.SQL()
	stmt, err := tx.PrepareContext(ctx, a.rebind(query))
	if err != nil {
		return fmt.Errorf("prepare statement failed: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("exec context failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected failed: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows affected")
	}

	return nil
}
