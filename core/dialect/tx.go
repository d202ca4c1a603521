package dialect

import (
	"context"
	"database/sql"
	"errors"
	"maps"

	"github.com/danielafriyie/raccy-orm/core/errs"
)

type txKey struct{}

// txState is the transaction a context carries.
type txState struct {
	mapper  *Mapper
	tx      *sql.Tx
	created map[string]bool
}

var (
	errTxActive = errors.New("transaction already in progress")
	errNoTx     = errors.New("no transaction in progress")
)

func (m *Mapper) txState(ctx context.Context) *txState {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok || st.mapper != m {
		return nil
	}
	return st
}

// InTx reports whether ctx carries a transaction of this mapper.
func (m *Mapper) InTx(ctx context.Context) bool {
	return m.txState(ctx) != nil
}

// Begin starts a transaction and returns a context carrying it.
func (m *Mapper) Begin(ctx context.Context) (context.Context, error) {
	if m.InTx(ctx) {
		return ctx, errs.Database(errTxActive, "begin")
	}

	tx, err := m.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return ctx, errs.Database(err, "begin")
	}

	m.logger.Debug().Str("dialect", m.dialect.Name).Msg("transaction started")
	return context.WithValue(ctx, txKey{}, &txState{
		mapper:  m,
		tx:      tx,
		created: make(map[string]bool),
	}), nil
}

// Commit commits the transaction carried by ctx.
func (m *Mapper) Commit(ctx context.Context) error {
	st := m.txState(ctx)
	if st == nil {
		return errs.Database(errNoTx, "commit")
	}

	if err := st.tx.Commit(); err != nil {
		m.observe("rollback")
		return errs.Database(err, "commit")
	}

	m.mu.Lock()
	maps.Copy(m.created, st.created)
	m.mu.Unlock()

	m.observe("commit")
	m.logger.Debug().Str("dialect", m.dialect.Name).Msg("transaction committed")
	return nil
}

// Rollback aborts the transaction carried by ctx.
func (m *Mapper) Rollback(ctx context.Context) error {
	st := m.txState(ctx)
	if st == nil {
		return errs.Database(errNoTx, "rollback")
	}

	m.observe("rollback")
	if err := st.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errs.Database(err, "rollback")
	}

	m.logger.Debug().Str("dialect", m.dialect.Name).Msg("transaction rolled back")
	return nil
}

// Atomic runs fn inside a transaction. A context that already carries one
// is reused so nested writes share the outer outcome.
func (m *Mapper) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if m.InTx(ctx) {
		return fn(ctx)
	}

	txCtx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = m.Rollback(txCtx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := m.Rollback(txCtx); rbErr != nil {
			m.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	return m.Commit(txCtx)
}

func (m *Mapper) observe(outcome string) {
	m.mu.Lock()
	o := m.observer
	m.mu.Unlock()

	if o != nil {
		o.Transaction(outcome)
	}
}
