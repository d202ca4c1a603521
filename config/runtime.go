package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/ports"
	"github.com/rs/zerolog"
)

// Runtime is the process-wide active configuration: the database every
// model reads and writes, the Mapper bound to it, the logger and the
// optional metrics observer.
//
// It starts uninitialized. Reading the database or mapper before one is
// assigned is a configuration error.
type Runtime struct {
	mu       sync.RWMutex
	db       ports.Database
	mapper   *dialect.Mapper
	logger   zerolog.Logger
	observer ports.Observer
}

var global = &Runtime{logger: zerolog.Nop()}

// Global returns the process-wide runtime.
func Global() *Runtime { return global }

// SetDatabase makes db the active database and binds a Mapper for its
// dialect. On failure the previous database and mapper stay active.
func (r *Runtime) SetDatabase(db ports.Database) error {
	if isNil(db) {
		return errs.Configf("database must be a valid Database, got %T", db)
	}
	if db.SQL() == nil {
		return errs.Configf("database %T has no connection", db)
	}

	r.mu.RLock()
	logger, observer := r.logger, r.observer
	r.mu.RUnlock()

	mapper, err := dialect.NewMapper(db,
		dialect.WithLogger(logger),
		dialect.WithObserver(observer),
	)
	if err != nil {
		return err
	}

	if err := db.SQL().Ping(); err != nil {
		return fmt.Errorf("%w: ping %s database: %w", errs.ErrImproperlyConfigured, db.Dialect(), err)
	}

	r.mu.Lock()
	r.db = db
	r.mapper = mapper
	r.mu.Unlock()

	logger.Info().Str("dialect", db.Dialect()).Msg("database activated")
	return nil
}

// Database returns the active database.
func (r *Runtime) Database() (ports.Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return nil, errs.Configf("database is not configured")
	}
	return r.db, nil
}

// Mapper returns the Mapper bound to the active database.
func (r *Runtime) Mapper() (ports.Mapper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.mapper == nil {
		return nil, errs.Configf("database mapper is not configured")
	}
	return r.mapper, nil
}

// SetLogger sets the logger handed to mappers bound from now on.
func (r *Runtime) SetLogger(logger zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Logger returns the process logger.
func (r *Runtime) Logger() zerolog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// SetMetrics installs the metrics observer, including on the current
// mapper. Nil disables metrics.
func (r *Runtime) SetMetrics(o ports.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observer = o
	if r.mapper != nil {
		r.mapper.SetObserver(o)
	}
}

// Metrics returns the metrics observer, or nil.
func (r *Runtime) Metrics() ports.Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observer
}

// Reset returns the runtime to its uninitialized state. The previous
// database is not closed.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.db = nil
	r.mapper = nil
	r.logger = zerolog.Nop()
	r.observer = nil
}

// SetDatabase makes db the active database of the global runtime.
func SetDatabase(db ports.Database) error { return global.SetDatabase(db) }

// Database returns the active database of the global runtime.
func Database() (ports.Database, error) { return global.Database() }

// Mapper returns the active mapper of the global runtime.
func Mapper() (ports.Mapper, error) { return global.Mapper() }

// Reset returns the global runtime to its uninitialized state.
func Reset() { global.Reset() }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
