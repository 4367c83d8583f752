// Package warehouse is the SQL collaborator used by loads and by the
// relational journal. Conn wraps a database/sql handle with an explicit
// Closed/Open state and a single pending transaction, so that every statement
// issued between Open and Commit/Rollback lands in the same unit of work.
package warehouse

import (
	"context"
	"database/sql"
	"iter"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class for connection misuse and driver failures.
var Error = errs.Class("warehouse")

// State is the lifecycle state of a Conn.
type State int

const (
	// Closed means no database handle is held.
	Closed State = iota
	// Opened means a handle is held; a transaction begins on first use.
	Opened
)

func (s State) String() string {
	if s == Opened {
		return "open"
	}
	return "closed"
}

// Executor is the subset of Conn the load steps depend on.
type Executor interface {
	Open(ctx context.Context) error
	Exec(ctx context.Context, query string, args ...any) error
	HasRows(ctx context.Context, query string, args ...any) (bool, error)
	Commit() error
	Rollback() error
}

// Conn is a lazily opened, single-connection database handle.
//
// Conn is not safe for concurrent use; loads run strictly sequentially.
type Conn struct {
	log    *zap.Logger
	driver string
	dsn    string
	redact []string

	state State
	db    *sql.DB
	tx    *sql.Tx
}

var _ Executor = (*Conn)(nil)

// NewConn returns a closed Conn for the given database/sql driver and DSN.
func NewConn(log *zap.Logger, driver, dsn string) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{
		log:    log.Named("conn").With(zap.String("driver", driver)),
		driver: driver,
		dsn:    dsn,
	}
}

// Redact hides secrets from logged statements.
func (c *Conn) Redact(secrets ...string) {
	for _, s := range secrets {
		if s != "" {
			c.redact = append(c.redact, s)
		}
	}
}

// State reports whether c currently holds a database handle.
func (c *Conn) State() State { return c.state }

// Open acquires the database handle. It is a no-op when already open.
func (c *Conn) Open(ctx context.Context) error {
	if c.state == Opened {
		return nil
	}

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return Error.New("open: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return Error.New("ping: %v", err)
	}

	c.db = db
	c.state = Opened
	c.log.Debug("opened")
	return nil
}

func (c *Conn) begin(ctx context.Context) (*sql.Tx, error) {
	if c.state != Opened {
		return nil, Error.New("connection is closed")
	}
	if c.tx == nil {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		c.tx = tx
	}
	return c.tx, nil
}

// Exec runs query inside the pending transaction.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	tx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	c.log.Debug("exec", zap.String("sql", c.redacted(query)))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// HasRows reports whether query yields at least one row.
func (c *Conn) HasRows(ctx context.Context, query string, args ...any) (bool, error) {
	tx, err := c.begin(ctx)
	if err != nil {
		return false, err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return false, Error.Wrap(err)
	}
	defer func() { _ = rows.Close() }()

	found := rows.Next()
	return found, Error.Wrap(rows.Err())
}

// FetchAll runs query and yields its rows one by one. Iteration stops at the
// first error, which is yielded with a nil row.
func (c *Conn) FetchAll(ctx context.Context, query string, args ...any) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		tx, err := c.begin(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, Error.Wrap(err))
			return
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, Error.Wrap(err))
			return
		}
		for rows.Next() {
			row := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range row {
				ptrs[i] = &row[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, Error.Wrap(err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, Error.Wrap(err))
		}
	}
}

// Commit commits the pending transaction, if any.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	c.log.Debug("commit", zap.Error(err))
	return Error.Wrap(err)
}

// Rollback discards the pending transaction, if any.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	c.log.Debug("rollback", zap.Error(err))
	return Error.Wrap(err)
}

// Close rolls back any pending transaction and releases the handle.
func (c *Conn) Close() error {
	if c.state == Closed {
		return nil
	}
	err := c.Rollback()
	err = errs.Combine(err, Error.Wrap(c.db.Close()))
	c.db = nil
	c.state = Closed
	return err
}

func (c *Conn) redacted(query string) string {
	for _, s := range c.redact {
		query = strings.ReplaceAll(query, s, "***")
	}
	return query
}
