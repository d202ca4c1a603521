// Package registry tracks model schemas and detects conflicts between them.
// Model names are unique, and no two concrete models may claim the same
// table.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/schema"
)

// Registry holds registered schemas by name.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// schemas by model name
	schemas map[string]*schema.Schema

	// tables to model names
	tables map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		schemas: make(map[string]*schema.Schema),
		tables:  make(map[string]string),
	}
}

// Register adds a schema. Abstract schemas claim a name but no table.
func (r *Registry) Register(s *schema.Schema) error {
	if s == nil {
		return errs.Configf("cannot register a nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Name()]; exists {
		return &ConflictError{Kind: "model", Name: s.Name(), Existing: s.Name(), Claimant: s.Name()}
	}

	if !s.IsAbstract() {
		if existing, exists := r.tables[s.Table()]; exists {
			return &ConflictError{Kind: "table", Name: s.Table(), Existing: existing, Claimant: s.Name()}
		}
		r.tables[s.Table()] = s.Name()
	}

	r.schemas[s.Name()] = s
	return nil
}

// Unregister removes a schema by model name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.schemas[name]
	if !exists {
		return fmt.Errorf("model %q not registered", name)
	}

	if !s.IsAbstract() {
		delete(r.tables, s.Table())
	}
	delete(r.schemas, name)

	return nil
}

// Get returns a registered schema by model name.
func (r *Registry) Get(name string) (*schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	return s, ok
}

// Table returns the model name claiming a table.
func (r *Registry) Table(table string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.tables[table]
	return name, ok
}

// List returns all registered schemas sorted by model name.
func (r *Registry) List() []*schema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*schema.Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})

	return out
}

// Concrete returns the concrete schemas in dependency order: foreign key
// targets before the models that reference them, otherwise by name.
func (r *Registry) Concrete() []*schema.Schema {
	var out []*schema.Schema
	seen := make(map[*schema.Schema]bool)

	var visit func(s *schema.Schema)
	visit = func(s *schema.Schema) {
		if seen[s] {
			return
		}
		seen[s] = true
		for _, fk := range s.ForeignKeys() {
			if fk.Field.To != nil {
				visit(fk.Field.To)
			}
		}
		out = append(out, s)
	}

	for _, s := range r.List() {
		if !s.IsAbstract() {
			visit(s)
		}
	}
	return out
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// Reset removes every schema.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas = make(map[string]*schema.Schema)
	r.tables = make(map[string]string)
}

// ConflictError reports a model name or table claimed twice.
type ConflictError struct {
	// Kind is "model" or "table".
	Kind string

	// Name is the contested model or table name.
	Name string

	// Existing is the model that holds the claim.
	Existing string

	// Claimant is the model that tried to claim it.
	Claimant string
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	if e.Kind == "model" {
		return fmt.Sprintf("%s: model %q already registered", errs.ErrImproperlyConfigured, e.Name)
	}
	return fmt.Sprintf("%s: table %q of model %q already claimed by model %q",
		errs.ErrImproperlyConfigured, e.Name, e.Claimant, e.Existing)
}

// Unwrap classifies conflicts as configuration errors.
func (e *ConflictError) Unwrap() error {
	return errs.ErrImproperlyConfigured
}
