package orm

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/danielafriyie/raccy-orm/core/errs"
)

// QuerySet is a lazy, single-pass query over the rows of one model.
// Nothing runs until the set is iterated; rows are fetched in primary key
// order and wrapped into instances one at a time.
type QuerySet struct {
	manager  *Manager
	preds    Values
	err      error
	consumed atomic.Bool
}

// Err returns the predicate validation error, if any.
func (qs *QuerySet) Err() error { return qs.err }

// Seq runs the query and yields each row. A second iteration yields an
// errs.ErrQuery error. Iteration stops after the first error.
func (qs *QuerySet) Seq(ctx context.Context) iter.Seq2[*Instance, error] {
	return func(yield func(*Instance, error) bool) {
		if !qs.consumed.CompareAndSwap(false, true) {
			yield(nil, errs.Queryf("query set over %s already consumed", qs.manager.model.Name()))
			return
		}
		if qs.err != nil {
			yield(nil, qs.err)
			return
		}

		var err error
		defer qs.manager.observe("select", now(), &err)

		mapper, err := qs.manager.mapper()
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := qs.manager.selectRows(ctx, mapper, qs.preds, 0)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, row := range rows {
			inst, ierr := materialize(qs.manager.model, row)
			if ierr != nil {
				err = ierr
				yield(nil, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// Collect runs the query and returns every instance.
func (qs *QuerySet) Collect(ctx context.Context) ([]*Instance, error) {
	var out []*Instance
	for inst, err := range qs.Seq(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// First runs the query and returns the row with the lowest primary key,
// or an errs.ErrDoesNotExist error when nothing matches.
func (qs *QuerySet) First(ctx context.Context) (*Instance, error) {
	for inst, err := range qs.Seq(ctx) {
		return inst, err
	}
	return nil, errs.DoesNotExistf("%s matching %s", qs.manager.model.Name(), describe(qs.preds))
}
