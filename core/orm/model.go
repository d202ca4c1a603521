// Package orm maps model schemas onto tables of the active database.
//
// A Model is defined once from a schema builder. Its Objects manager
// creates, fetches, filters and deletes rows; rows come back as Instances
// that can be updated or deleted in turn. Every mutation runs inside a
// transaction taken from the active Mapper and is bracketed by the
// lifecycle signals in signals.go:
//
//	before_* receivers -> write -> after_* receivers
//
// A receiver error before the write aborts it; after the write it rolls
// the write back. Receivers that write other models with the context they
// are given join the same transaction.
package orm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/danielafriyie/raccy-orm/config"
	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/registry"
	"github.com/danielafriyie/raccy-orm/core/schema"
	"github.com/rs/zerolog"
)

// Values maps field names to values.
type Values map[string]any

// Model is a registered schema together with its manager.
type Model struct {
	schema *schema.Schema

	// Objects is the manager for this model's rows.
	Objects *Manager
}

// Schema returns the model schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

// Name returns the declared model name.
func (m *Model) Name() string { return m.schema.Name() }

// TableName returns the table name. Abstract models have none.
func (m *Model) TableName() string { return m.schema.Table() }

// IsAbstract reports whether the model is a field template only.
func (m *Model) IsAbstract() bool { return m.schema.IsAbstract() }

// String implements fmt.Stringer.
func (m *Model) String() string { return m.schema.Name() }

// New creates an unsaved instance. Unknown field names, the primary key
// and values the field cannot hold are insert errors.
func (m *Model) New(values Values) (*Instance, error) {
	inst := newInstance(m)
	for name, v := range values {
		f, ok := m.schema.Field(name)
		if !ok || f.Type == schema.TypePrimaryKey {
			return nil, errs.Insertf("%s has no field %q", m.Name(), name)
		}
		cv, err := f.Coerce(v)
		if err != nil {
			return nil, errs.Insertf("%s.%s: %v", m.Name(), name, err)
		}
		if err := inst.rec.Set(name, cv); err != nil {
			return nil, errs.Insertf("%s: %v", m.Name(), err)
		}
	}
	return inst, nil
}

var (
	mu      sync.RWMutex
	schemas = registry.New()
	models  = make(map[string]*Model)
	logger  = zerolog.Nop()
)

// SetLogger sets the logger used for model registration and signal
// dispatch.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()

	for _, sig := range allSignals() {
		sig.SetLogger(l)
	}
}

// Define builds a schema and registers it as a model.
func Define(b *schema.Builder) (*Model, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Register(s)
}

// MustDefine is Define that panics on error. Intended for package-level
// model declarations.
func MustDefine(b *schema.Builder) *Model {
	m, err := Define(b)
	if err != nil {
		panic(err)
	}
	return m
}

// Register adds a built schema as a model. Model names are unique and no
// two concrete models may share a table. Concrete models become senders
// of every lifecycle signal.
func Register(s *schema.Schema) (*Model, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := schemas.Register(s); err != nil {
		return nil, err
	}

	m := &Model{schema: s}
	m.Objects = &Manager{model: m}
	models[s.Name()] = m

	if !s.IsAbstract() {
		for _, sig := range allSignals() {
			sig.Register(m)
		}
	}

	logger.Debug().
		Str("model", s.Name()).
		Str("table", s.Table()).
		Bool("abstract", s.IsAbstract()).
		Msg("model registered")
	return m, nil
}

// Load parses every YAML model declaration under dir and registers the
// resulting models, parents and foreign key targets first.
func Load(dir string) ([]*Model, error) {
	decls, err := schema.ParseDir(dir)
	if err != nil {
		return nil, err
	}

	built, err := schema.Resolve(decls)
	if err != nil {
		return nil, err
	}

	out := make([]*Model, 0, len(built))
	for _, s := range built {
		m, err := Register(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Lookup returns a registered model by name.
func Lookup(name string) (*Model, bool) {
	mu.RLock()
	defer mu.RUnlock()

	m, ok := models[name]
	return m, ok
}

// Models returns every registered model sorted by name.
func Models() []*Model {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]*Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// CreateTables creates the table of every concrete model on the active
// database, foreign key targets first.
func CreateTables(ctx context.Context) error {
	mapper, err := config.Mapper()
	if err != nil {
		return err
	}

	mu.RLock()
	concrete := schemas.Concrete()
	mu.RUnlock()

	for _, s := range concrete {
		if err := mapper.EnsureTable(ctx, s); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// Reset forgets every model and disconnects every signal receiver.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	schemas.Reset()
	models = make(map[string]*Model)
	for _, sig := range allSignals() {
		sig.Reset()
	}
}
