package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielafriyie/raccy-orm/config"
	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/ports"
)

// Manager runs queries for one model against the active database.
type Manager struct {
	model *Model
}

// TableName returns the model's table name.
func (m *Manager) TableName() string { return m.model.TableName() }

// PrimaryKey returns the primary key field name.
func (m *Manager) PrimaryKey() string { return m.model.schema.PrimaryKey() }

// Fields returns every field name in table order, primary key first.
func (m *Manager) Fields() []string { return m.model.schema.FieldNames() }

// CreateTable creates the model's table and those it references.
func (m *Manager) CreateTable(ctx context.Context) error {
	mapper, err := m.mapper()
	if err != nil {
		return err
	}
	return mapper.EnsureTable(ctx, m.model.schema)
}

// Create inserts one row. BeforeInsert receivers run first and can abort
// the insert; AfterInsert receivers see the generated primary key.
func (m *Manager) Create(ctx context.Context, values Values) (inst *Instance, err error) {
	defer m.observe("create", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return nil, err
	}

	inst, err = m.model.New(values)
	if err != nil {
		return nil, err
	}

	err = mapper.Atomic(ctx, func(ctx context.Context) error {
		return m.insert(ctx, mapper, inst)
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// BulkInsert inserts rows in one transaction: all of them or none.
// Signals fire once per row, in order.
func (m *Manager) BulkInsert(ctx context.Context, rows ...Values) (out []*Instance, err error) {
	defer m.observe("bulk_insert", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return nil, err
	}

	insts := make([]*Instance, len(rows))
	for n, values := range rows {
		if insts[n], err = m.model.New(values); err != nil {
			return nil, err
		}
	}

	err = mapper.Atomic(ctx, func(ctx context.Context) error {
		for _, inst := range insts {
			if err := m.insert(ctx, mapper, inst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insts, nil
}

// Get returns the row matching every predicate exactly. Zero matches is
// an errs.ErrDoesNotExist error; several matches return the one with the
// lowest primary key.
func (m *Manager) Get(ctx context.Context, preds Values) (inst *Instance, err error) {
	defer m.observe("get", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return nil, err
	}

	rows, err := m.selectRows(ctx, mapper, preds, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.DoesNotExistf("%s matching %s", m.model.Name(), describe(preds))
	}
	return materialize(m.model, rows[0])
}

// All returns a query set over every row.
func (m *Manager) All() *QuerySet {
	return m.Filter(nil)
}

// Filter returns a query set over the rows matching every predicate
// exactly. Unknown fields surface as an errs.ErrQuery error when the set
// is iterated, before any SQL runs.
func (m *Manager) Filter(preds Values) *QuerySet {
	qs := &QuerySet{manager: m, preds: preds}
	if m.model.IsAbstract() {
		qs.err = m.abstractErr()
	} else {
		_, _, qs.err = m.where(nil, preds, 0)
	}
	return qs
}

// Count returns the number of rows matching every predicate.
func (m *Manager) Count(ctx context.Context, preds Values) (n int64, err error) {
	defer m.observe("count", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return 0, err
	}

	where, args, err := m.where(mapper, preds, 0)
	if err != nil {
		return 0, err
	}
	if err := mapper.EnsureTable(ctx, m.model.schema); err != nil {
		return 0, err
	}

	rows, err := mapper.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", m.TableName(), where), args...)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, errs.Queryf("%s: unexpected count result", m.model.Name())
	}

	switch v := rows[0][0].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, errs.Queryf("%s: unexpected count type %T", m.model.Name(), v)
	}
}

// Delete removes every row matching the predicates, firing the delete
// signals once per row in primary key order. A receiver error removes
// nothing. It returns the number of deleted rows.
func (m *Manager) Delete(ctx context.Context, preds Values) (n int64, err error) {
	defer m.observe("delete", now(), &err)

	mapper, err := m.mapper()
	if err != nil {
		return 0, err
	}

	var deleted []*Instance
	err = mapper.Atomic(ctx, func(ctx context.Context) error {
		rows, err := m.selectRows(ctx, mapper, preds, 0)
		if err != nil {
			return err
		}
		for _, row := range rows {
			inst, err := materialize(m.model, row)
			if err != nil {
				return err
			}
			if err := m.remove(ctx, mapper, inst); err != nil {
				return err
			}
			deleted = append(deleted, inst)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, inst := range deleted {
		inst.rec.Unset(m.PrimaryKey())
	}
	return int64(len(deleted)), nil
}

func (m *Manager) mapper() (ports.Mapper, error) {
	if m.model.IsAbstract() {
		return nil, m.abstractErr()
	}
	return config.Mapper()
}

func (m *Manager) abstractErr() error {
	return errs.Configf("abstract model %s is not queryable", m.model.Name())
}

func (m *Manager) insert(ctx context.Context, mapper ports.Mapper, inst *Instance) error {
	if err := mapper.EnsureTable(ctx, m.model.schema); err != nil {
		return err
	}
	if err := BeforeInsert.notify(ctx, inst); err != nil {
		return err
	}

	cols, vals := inst.columns()
	pk, err := mapper.Insert(ctx, m.TableName(), m.PrimaryKey(), cols, vals)
	if err != nil {
		return err
	}
	if err := inst.rec.Set(m.PrimaryKey(), pk); err != nil {
		return err
	}

	return AfterInsert.notify(ctx, inst)
}

func (m *Manager) update(ctx context.Context, mapper ports.Mapper, pk int64, updated *Instance, changed Values) error {
	var sets []string
	var args []any
	for _, name := range m.model.schema.Columns() {
		if _, ok := changed[name]; !ok {
			continue
		}
		v, _ := updated.rec.Get(name)
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", name, mapper.Placeholder(len(args))))
	}
	args = append(args, pk)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		m.TableName(), strings.Join(sets, ", "), m.PrimaryKey(), mapper.Placeholder(len(args)))

	n, err := mapper.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.DoesNotExistf("%s with %s=%d", m.model.Name(), m.PrimaryKey(), pk)
	}
	return nil
}

func (m *Manager) remove(ctx context.Context, mapper ports.Mapper, inst *Instance) error {
	pk, _ := inst.PK()

	if err := BeforeDelete.notify(ctx, inst); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", m.TableName(), m.PrimaryKey(), mapper.Placeholder(1))
	n, err := mapper.Exec(ctx, query, pk)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.DoesNotExistf("%s with %s=%d", m.model.Name(), m.PrimaryKey(), pk)
	}

	return AfterDelete.notify(ctx, inst)
}

// selectRows fetches matching rows in primary key order. limit <= 0
// means no limit.
func (m *Manager) selectRows(ctx context.Context, mapper ports.Mapper, preds Values, limit int) ([]ports.Row, error) {
	where, args, err := m.where(mapper, preds, 0)
	if err != nil {
		return nil, err
	}
	if err := mapper.EnsureTable(ctx, m.model.schema); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s ASC",
		strings.Join(m.Fields(), ", "), m.TableName(), where, m.PrimaryKey())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return mapper.Query(ctx, query, args...)
}

// where renders an equality-AND clause over preds, keys sorted, with
// placeholders numbered after offset. A nil mapper only validates. A nil
// value matches NULL.
func (m *Manager) where(mapper ports.Mapper, preds Values, offset int) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(preds))
	for k := range preds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []string
	var args []any
	for _, k := range keys {
		f, ok := m.model.schema.Field(k)
		if !ok {
			return "", nil, errs.Queryf("%s has no field %q", m.model.Name(), k)
		}
		v, err := f.Coerce(preds[k])
		if err != nil {
			return "", nil, errs.Queryf("%s.%s: %v", m.model.Name(), k, err)
		}
		if v == nil {
			conds = append(conds, k+" IS NULL")
			continue
		}
		args = append(args, v)
		if mapper != nil {
			conds = append(conds, fmt.Sprintf("%s = %s", k, mapper.Placeholder(offset+len(args))))
		}
	}

	if mapper == nil {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (m *Manager) observe(op string, start time.Time, err *error) {
	if o := config.Global().Metrics(); o != nil {
		o.Operation(m.model.Name(), op, *err, time.Since(start))
	}
}

// describe renders predicates for error messages, keys sorted.
func describe(preds Values) string {
	if len(preds) == 0 {
		return "no predicates"
	}
	keys := make([]string, 0, len(preds))
	for k := range preds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for n, k := range keys {
		parts[n] = fmt.Sprintf("%s=%v", k, preds[k])
	}
	return strings.Join(parts, ", ")
}

var now = time.Now
