package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/record"
	"github.com/danielafriyie/raccy-orm/core/schema"
	"github.com/danielafriyie/raccy-orm/ports"
)

// Instance is one row of a model. Its primary key is set once the row is
// inserted or fetched.
type Instance struct {
	model *Model
	rec   *record.Record
}

func newInstance(m *Model) *Instance {
	return &Instance{model: m, rec: record.New(m.schema.FieldNames()...)}
}

// Model returns the model the instance belongs to.
func (i *Instance) Model() *Model { return i.model }

// PK returns the primary key and whether the instance has been saved.
func (i *Instance) PK() (int64, bool) {
	pk := i.model.schema.PrimaryKey()
	if pk == "" || !i.rec.IsSet(pk) {
		return 0, false
	}
	v, _ := i.rec.Get(pk)
	n, ok := v.(int64)
	return n, ok
}

// Get returns the value of a field. Unset fields read as nil; undeclared
// fields are a record.ErrUnknownAttribute error.
func (i *Instance) Get(name string) (any, error) {
	v, err := i.rec.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", i.model.Name(), err)
	}
	return v, nil
}

// Set changes a field in memory. Use Update to persist changes.
func (i *Instance) Set(name string, value any) error {
	if !i.rec.Has(name) {
		return fmt.Errorf("%s: %w: %q", i.model.Name(), record.ErrUnknownAttribute, name)
	}

	f, _ := i.model.schema.Field(name)
	if f.Type == schema.TypePrimaryKey {
		return errs.Queryf("%s: primary key %q is read-only", i.model.Name(), name)
	}

	v, err := f.Coerce(value)
	if err != nil {
		return errs.Queryf("%s.%s: %v", i.model.Name(), name, err)
	}
	return i.rec.Set(name, v)
}

// Values returns a copy of the populated fields, primary key included.
func (i *Instance) Values() Values {
	return Values(i.rec.Map())
}

// Equal reports whether other belongs to the same model and holds the
// same populated values. Two instances with nothing set are equal.
func (i *Instance) Equal(other *Instance) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.model == other.model && i.rec.Equal(other.rec)
}

// String renders the populated fields in table order, e.g.
// "Dog(pk=1, name=Rex, age=5)".
func (i *Instance) String() string {
	var parts []string
	for _, name := range i.rec.Keys() {
		if !i.rec.IsSet(name) {
			continue
		}
		v, _ := i.rec.Get(name)
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return fmt.Sprintf("%s(%s)", i.model.Name(), strings.Join(parts, ", "))
}

func (i *Instance) clone() *Instance {
	return &Instance{model: i.model, rec: i.rec.Clone()}
}

// Update changes the given fields and persists them. Receivers of
// BeforeUpdate see the proposed state and the persisted state; an error
// from any receiver leaves both the row and the instance unchanged.
// An empty values map is a no-op: nothing is written and no update
// signal fires.
func (i *Instance) Update(ctx context.Context, values Values) (err error) {
	m := i.model.Objects
	defer m.observe("update", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return err
	}

	pk, ok := i.PK()
	if !ok {
		return errs.Queryf("cannot update an unsaved %s", i.model.Name())
	}
	if len(values) == 0 {
		return nil
	}

	old := i.clone()
	updated := i.clone()
	for name, v := range values {
		if err := updated.Set(name, v); err != nil {
			return err
		}
	}

	err = mapper.Atomic(ctx, func(ctx context.Context) error {
		if err := BeforeUpdate.notify(ctx, updated, old); err != nil {
			return err
		}
		if err := m.update(ctx, mapper, pk, updated, values); err != nil {
			return err
		}
		return AfterUpdate.notify(ctx, updated, old)
	})
	if err != nil {
		return err
	}

	i.rec = updated.rec
	return nil
}

// Delete removes the row. Receivers of BeforeDelete can abort it; an error
// from an AfterDelete receiver restores it. After a successful delete the
// instance is unsaved again.
func (i *Instance) Delete(ctx context.Context) (err error) {
	m := i.model.Objects
	defer m.observe("delete", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return err
	}

	if _, ok := i.PK(); !ok {
		return errs.Queryf("cannot delete an unsaved %s", i.model.Name())
	}

	err = mapper.Atomic(ctx, func(ctx context.Context) error {
		return m.remove(ctx, mapper, i)
	})
	if err != nil {
		return err
	}

	i.rec.Unset(i.model.schema.PrimaryKey())
	return nil
}

// columns returns the populated writable fields in table order.
func (i *Instance) columns() ([]string, []any) {
	var cols []string
	var vals []any
	for _, name := range i.model.schema.Columns() {
		if !i.rec.IsSet(name) {
			continue
		}
		v, _ := i.rec.Get(name)
		cols = append(cols, name)
		vals = append(vals, v)
	}
	return cols, vals
}

// materialize builds an instance from a row selected in table order.
func materialize(m *Model, row ports.Row) (*Instance, error) {
	fields := m.schema.Fields()
	if len(row) != len(fields) {
		return nil, errs.Queryf("%s: row has %d columns, want %d", m.Name(), len(row), len(fields))
	}

	inst := newInstance(m)
	for n, nf := range fields {
		v, err := nf.Field.Coerce(row[n])
		if err != nil {
			return nil, errs.Database(err, "decode "+m.TableName()+"."+nf.Name)
		}
		if err := inst.rec.Set(nf.Name, v); err != nil {
			return nil, errs.Queryf("%s: %v", m.Name(), err)
		}
	}
	return inst, nil
}
