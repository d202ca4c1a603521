// Package ports defines interfaces (contracts) between layers.
// The ORM talks to databases only through these interfaces.
// Implementations live in core/dialect and adapters/.
package ports

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielafriyie/raccy-orm/core/schema"
)

// -----------------------------------------------------------------------------
// Database Ports
// -----------------------------------------------------------------------------

// Database is an open connection to a database of a known dialect.
type Database interface {
	// Dialect names the registered dialect able to drive this database.
	Dialect() string

	// SQL exposes the underlying pool.
	SQL() *sql.DB

	// Close releases the connection.
	Close() error
}

// Row is one decoded result tuple, in select-list order.
type Row []any

// Mapper translates schemas into dialect SQL and executes statements on
// one Database. Values are always bound as parameters.
//
// Transactions travel in the context: Begin returns a context carrying
// the transaction, and every call made with that context runs inside it.
type Mapper interface {
	// Dialect returns the dialect name.
	Dialect() string

	// Database returns the bound database.
	Database() Database

	// ColumnSQL renders a column definition, e.g. "VARCHAR (60) NOT NULL".
	ColumnSQL(f schema.Field) string

	// CreateTableSQL renders the statements that create a model's table.
	CreateTableSQL(s *schema.Schema) []string

	// EnsureTable creates the table of s and of its foreign key targets
	// once per mapper.
	EnsureTable(ctx context.Context, s *schema.Schema) error

	// Placeholder returns the bind parameter marker for the nth (1-based)
	// argument.
	Placeholder(n int) string

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a query and decodes every row.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Insert adds one row and returns the generated primary key.
	Insert(ctx context.Context, table, pk string, columns []string, values []any) (int64, error)

	// Begin starts a transaction and returns a context carrying it.
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction carried by ctx.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction carried by ctx.
	Rollback(ctx context.Context) error

	// InTx reports whether ctx carries a transaction of this mapper.
	InTx(ctx context.Context) bool

	// Atomic runs fn inside a transaction. If ctx already carries one,
	// fn joins it; otherwise a new transaction commits when fn succeeds
	// and rolls back when it fails. fn's error is returned unchanged.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Observer receives ORM activity. A nil Observer is never called.
type Observer interface {
	// Operation records one Manager or Instance operation.
	Operation(model, op string, err error, elapsed time.Duration)

	// Signal records one lifecycle signal dispatch.
	Signal(name string, err error)

	// Transaction records a transaction outcome: "commit" or "rollback".
	Transaction(outcome string)
}
