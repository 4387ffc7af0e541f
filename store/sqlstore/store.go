/*
Package sqlstore implements stamp.Repository on SQLite or PostgreSQL.

PURPOSE:
  Persists tenants, stores, the stamp ledger, progress counters, reward
  rules and coupons. Every statement is built by a query.Composer bound to
  the transaction's tenant, so tenant isolation does not depend on the
  caller writing the right WHERE clause.

DRIVERS:
  sqlite3:  Embedded; the pool is limited to one connection, which
            serializes writers.
  postgres: lib/pq; ON CONFLICT upserts under READ COMMITTED.

KEY TABLES:
  user_store_stamps: Append-only ledger, UNIQUE (user_id, store_id)
  user_progress:     Cached stamp count, one row per user
  user_coupons:      Issued coupons, UNIQUE (user_id, coupon_id)

ERRORS:
  Unique violations map to stamp.ErrConflict, connection failures and lock
  contention to stamp.ErrTransient. A skipped ledger insert is reported as
  stamp.ErrDuplicateStamp.

USAGE:
  st, err := sqlstore.Open(ctx, "sqlite3", "./data/stamps.db", log)
  if err != nil {
      return err
  }
  defer st.Close()
  engine := stamp.NewEngine(st, resolver, log)

SEE ALSO:
  - stamp/repository.go: Interface definitions
  - query/composer.go: Statement composition
*/
package sqlstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/query"
	"github.com/warp/stamp-engine/stamp"
)

// Store implements stamp.Repository.
type Store struct {
	db      *sqlx.DB
	dialect query.Dialect
	now     func() time.Time
	log     *slog.Logger
}

// Open connects to the database, applies the schema and returns the store.
// For sqlite3 the dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string, log *slog.Logger) (*Store, error) {
	if driver == query.SQLite.Driver {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == query.SQLite.Driver {
		db.SetMaxOpenConns(1)
	}

	s, err := New(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// New wraps an existing pool. The dialect follows the pool's driver name.
func New(db *sqlx.DB, log *slog.Logger) (*Store, error) {
	d, err := query.DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:      db,
		dialect: d,
		now:     time.Now,
		log:     log.With(sl.Module("sqlstore")),
	}, nil
}

func sqliteDSN(path string) string {
	opts := "_foreign_keys=on&_busy_timeout=5000"
	if path != ":memory:" {
		opts += "&_journal_mode=WAL"
	}
	if strings.Contains(path, "?") {
		return path + "&" + opts
	}
	return path + "?" + opts
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := sqliteSchema
	if s.dialect.Driver == query.Postgres.Driver {
		ddl = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Debug("schema applied", slog.String("driver", s.dialect.Driver))
	return nil
}

// WithTx executes fn within a transaction bound to tenantID.
// If fn returns error, the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, tenantID string, fn func(stamp.Tx) error) error {
	if tenantID == "" {
		return &stamp.ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	defer sqlTx.Rollback()

	tx := &txStore{
		tx:  sqlTx,
		q:   query.New(s.dialect, tenantID),
		now: s.now,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}
