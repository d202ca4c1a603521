package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to file configuration with hot reload
// support, and keeps the global runtime's database in step with it.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopCh   chan struct{}
	stopOnce sync.Once

	runtime *Runtime
	active  ports.Database
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		config:  cfg,
		path:    absPath,
		logger:  logger,
		stopCh:  make(chan struct{}),
		runtime: Global(),
	}

	return h, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Activate opens the configured database and makes it the runtime's
// active database. The runtime logger is set from the logging section.
func (h *Holder) Activate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activate(h.config)
}

func (h *Holder) activate(cfg *Config) error {
	h.runtime.SetLogger(h.logger)

	db, err := dialect.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SQL().SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	if err := h.runtime.SetDatabase(db); err != nil {
		db.Close()
		return err
	}

	if h.active != nil {
		if err := h.active.Close(); err != nil {
			h.logger.Warn().Err(err).Msg("closing previous database failed")
		}
	}
	h.active = db

	h.logger.Info().
		Str("driver", cfg.Database.Driver).
		Msg("database activated from configuration")
	return nil
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config). If the database
// section changed after Activate, the new database is activated; if that
// fails the old configuration and database stay in place.
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	if h.active != nil && oldCfg.Database != newCfg.Database {
		if err := h.activate(newCfg); err != nil {
			h.mu.Unlock()
			h.logger.Error().Err(err).Msg("database reactivation failed, keeping old config")
			return fmt.Errorf("reload config: %w", err)
		}
	}
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the config file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals. The active database
// stays open.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

// Close stops watching and closes the database opened by Activate.
func (h *Holder) Close() error {
	h.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active == nil {
		return nil
	}
	err := h.active.Close()
	h.active = nil
	return err
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to our config file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.Database.Driver != new.Database.Driver {
		h.logger.Info().
			Str("old", old.Database.Driver).
			Str("new", new.Database.Driver).
			Msg("database driver changed")
	}

	if old.Database.DSN != new.Database.DSN {
		h.logger.Info().Msg("database dsn changed")
	}

	if old.Models.Dir != new.Models.Dir {
		h.logger.Info().
			Str("old", old.Models.Dir).
			Str("new", new.Models.Dir).
			Msg("models directory changed")
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"database.driver",
		"database.dsn",
		"database.max_open_conns",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"logging.level",
		"logging.format",
		"metrics.enabled",
		"metrics.namespace",
		"models.dir",
	}
}
