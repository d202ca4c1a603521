// Package dialect maps the field type system onto concrete SQL engines and
// executes statements for the ORM.
//
// A Dialect is a plain descriptor: type names, placeholder style and the
// few engine capabilities the ORM depends on. Adapters register their
// dialect in init(); the active configuration looks it up by the name the
// open Database reports.
package dialect

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/schema"
	"github.com/danielafriyie/raccy-orm/ports"
)

// Dialect describes one SQL engine.
type Dialect struct {
	// Name is the registry key, e.g. "sqlite" or "postgres".
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// Types overrides Field.SQLType per field type.
	Types map[schema.FieldType]string

	// Placeholder renders the nth (1-based) bind marker. Nil means "?".
	Placeholder func(n int) string

	// Returning fetches generated keys with INSERT ... RETURNING instead
	// of LastInsertId.
	Returning bool

	// Sequences backs each primary key with a named sequence created
	// before the table.
	Sequences bool

	// ForeignKeys renders foreign key constraints with cascade actions.
	ForeignKeys bool

	// Open connects to a database of this dialect.
	Open func(dsn string) (ports.Database, error)
}

// SQLType returns the column type for f on this engine.
func (d *Dialect) SQLType(f schema.Field) string {
	if t, ok := d.Types[f.Type]; ok {
		return t
	}
	return f.SQLType()
}

// Bind returns the nth (1-based) bind marker.
func (d *Dialect) Bind(n int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(n)
}

// Dollar renders PostgreSQL-style "$n" markers.
func Dollar(n int) string {
	return "$" + strconv.Itoa(n)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Dialect)
)

// Register adds a dialect to the registry. Called by adapters in their
// init() functions. Registering a name twice replaces the earlier entry.
func Register(d *Dialect) {
	if d == nil || d.Name == "" {
		panic("dialect: Register requires a named dialect")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Lookup retrieves a dialect by name.
func Lookup(name string) (*Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns all registered dialect names (sorted).
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects to dsn with the named dialect.
func Open(name, dsn string) (ports.Database, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, &UnknownDialectError{Name: name, Available: Names()}
	}
	if d.Open == nil {
		return nil, errs.Configf("dialect %q cannot open databases", name)
	}

	db, err := d.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", name, err)
	}
	return db, nil
}

// UnknownDialectError is returned when no dialect is registered under a
// name.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("%s: unknown dialect %q (available: %v)", errs.ErrImproperlyConfigured, e.Name, e.Available)
}

// Unwrap classifies the error as a configuration error.
func (e *UnknownDialectError) Unwrap() error {
	return errs.ErrImproperlyConfigured
}
