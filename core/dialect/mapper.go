package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/danielafriyie/raccy-orm/core/convention"
	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/schema"
	"github.com/danielafriyie/raccy-orm/ports"
	"github.com/rs/zerolog"
)

// Mapper implements ports.Mapper for one dialect and one database.
type Mapper struct {
	dialect *Dialect
	db      ports.Database
	logger  zerolog.Logger

	mu       sync.Mutex
	observer ports.Observer
	created  map[string]bool
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the statement and transaction logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mapper) { m.logger = logger }
}

// WithObserver reports transaction outcomes to o.
func WithObserver(o ports.Observer) Option {
	return func(m *Mapper) { m.observer = o }
}

// New binds a mapper to db using dialect d.
func New(d *Dialect, db ports.Database, opts ...Option) *Mapper {
	m := &Mapper{
		dialect: d,
		db:      db,
		logger:  zerolog.Nop(),
		created: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMapper binds a mapper to db using the registered dialect db reports.
func NewMapper(db ports.Database, opts ...Option) (*Mapper, error) {
	if db == nil {
		return nil, errs.Configf("database is required")
	}
	d, ok := Lookup(db.Dialect())
	if !ok {
		return nil, &UnknownDialectError{Name: db.Dialect(), Available: Names()}
	}
	return New(d, db, opts...), nil
}

// SetObserver replaces the transaction observer. Nil disables it.
func (m *Mapper) SetObserver(o ports.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// Dialect returns the dialect name.
func (m *Mapper) Dialect() string { return m.dialect.Name }

// Descriptor returns the dialect descriptor.
func (m *Mapper) Descriptor() *Dialect { return m.dialect }

// Database returns the bound database.
func (m *Mapper) Database() ports.Database { return m.db }

// Placeholder returns the nth (1-based) bind marker.
func (m *Mapper) Placeholder(n int) string { return m.dialect.Bind(n) }

// ColumnSQL renders a column definition on this dialect.
func (m *Mapper) ColumnSQL(f schema.Field) string {
	return f.Definition(m.dialect.SQLType(f))
}

// CreateTableSQL renders the statements creating the table of s. Abstract
// schemas produce none.
func (m *Mapper) CreateTableSQL(s *schema.Schema) []string {
	if s.IsAbstract() {
		return nil
	}

	var stmts []string
	seq := convention.SequenceName(s.Table())
	if m.dialect.Sequences {
		stmts = append(stmts, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", seq))
	}

	var defs []string
	for _, nf := range s.Fields() {
		def := nf.Name + " " + m.ColumnSQL(nf.Field)
		if nf.Field.Type == schema.TypePrimaryKey && m.dialect.Sequences {
			def += fmt.Sprintf(" DEFAULT nextval('%s')", seq)
		}
		defs = append(defs, def)
	}
	if m.dialect.ForeignKeys {
		for _, fk := range s.ForeignKeys() {
			defs = append(defs, fk.Field.ForeignKeySQL(fk.Name))
		}
	}

	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Table(), strings.Join(defs, ", ")))
	return stmts
}

// EnsureTable creates the tables of s and its foreign key targets. Tables
// created inside a transaction count as created once it commits.
func (m *Mapper) EnsureTable(ctx context.Context, s *schema.Schema) error {
	if s == nil {
		return errs.Configf("cannot create a table without a schema")
	}
	if s.IsAbstract() {
		return errs.Configf("abstract model %q has no table", s.Name())
	}
	return m.ensure(ctx, s, make(map[*schema.Schema]bool))
}

func (m *Mapper) ensure(ctx context.Context, s *schema.Schema, visiting map[*schema.Schema]bool) error {
	if visiting[s] || m.isCreated(ctx, s.Table()) {
		return nil
	}
	visiting[s] = true

	for _, fk := range s.ForeignKeys() {
		if fk.Field.To != nil && fk.Field.To != s {
			if err := m.ensure(ctx, fk.Field.To, visiting); err != nil {
				return err
			}
		}
	}

	for _, stmt := range m.CreateTableSQL(s) {
		if _, err := m.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", s.Table(), err)
		}
	}

	m.markCreated(ctx, s.Table())
	m.logger.Debug().Str("table", s.Table()).Msg("table ensured")
	return nil
}

func (m *Mapper) isCreated(ctx context.Context, table string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.created[table] {
		return true
	}
	if st := m.txState(ctx); st != nil {
		return st.created[table]
	}
	return false
}

func (m *Mapper) markCreated(ctx context.Context, table string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st := m.txState(ctx); st != nil {
		st.created[table] = true
		return
	}
	m.created[table] = true
}

// Exec runs a statement and returns the number of affected rows.
func (m *Mapper) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	m.trace(query, args)

	res, err := m.executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errs.Database(err, "exec")
	}

	n, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows for DDL.
		return 0, nil
	}
	return n, nil
}

// Query runs a query and decodes every row. []byte values are returned as
// strings.
func (m *Mapper) Query(ctx context.Context, query string, args ...any) ([]ports.Row, error) {
	m.trace(query, args)

	rows, err := m.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Database(err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Database(err, "columns")
	}

	var out []ports.Row
	for rows.Next() {
		row := make(ports.Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.Database(err, "scan")
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(err, "rows")
	}

	return out, nil
}

// Insert adds one row and returns the generated primary key.
func (m *Mapper) Insert(ctx context.Context, table, pk string, columns []string, values []any) (int64, error) {
	if len(columns) != len(values) {
		return 0, errs.Insertf("%s: %d columns but %d values", table, len(columns), len(values))
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		marks := make([]string, len(columns))
		for i := range columns {
			marks[i] = m.Placeholder(i + 1)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(columns, ", "), strings.Join(marks, ", "))
	}

	exec := m.executor(ctx)

	if m.dialect.Returning {
		query += " RETURNING " + pk
		m.trace(query, values)

		var id int64
		if err := exec.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
			return 0, errs.Insert(err, table)
		}
		return id, nil
	}

	m.trace(query, values)
	res, err := exec.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, errs.Insert(err, table)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Insert(err, table)
	}
	return id, nil
}

func (m *Mapper) trace(query string, args []any) {
	m.logger.Debug().
		Str("dialect", m.dialect.Name).
		Str("sql", query).
		Int("args", len(args)).
		Msg("statement")
}

// executor is the subset of *sql.DB and *sql.Tx the mapper needs.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *Mapper) executor(ctx context.Context) executor {
	if st := m.txState(ctx); st != nil {
		return st.tx
	}
	return m.db.SQL()
}
