package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/danielafriyie/raccy-orm/adapters/sqlite"
	"github.com/danielafriyie/raccy-orm/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	cfg := writeConfig(t, validConfig())

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Database.DSN != ":memory:" {
		t.Errorf("Database.DSN = %s, want :memory:", got.Database.DSN)
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Verify initial config
	if got := h.Get().Models.Dir; got != "models" {
		t.Errorf("initial Models.Dir = %s, want models", got)
	}

	newContent := `
database:
  driver: sqlite
  dsn: ":memory:"
models:
  dir: other
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Models.Dir; got != "other" {
		t.Errorf("reloaded Models.Dir = %s, want other", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var called bool
	var receivedCfg *config.Config

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		called = true
		receivedCfg = cfg
		mu.Unlock()
	})

	newContent := validConfig() + "logging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Error("OnChange callback was not called")
	}
	if receivedCfg == nil {
		t.Error("received nil config in callback")
	} else if receivedCfg.Logging.Level != "debug" {
		t.Errorf("callback received level = %s, want debug", receivedCfg.Logging.Level)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	invalidContent := `
logging:
  level: "very-loud"
`
	if err := os.WriteFile(path, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}

	// Old config should still be valid
	if got := h.Get().Logging.Level; got != "info" {
		t.Errorf("should keep old config, got Logging.Level = %s", got)
	}
}

func TestHolder_Activate(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Close()

	if err := h.Activate(); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	db, err := config.Database()
	if err != nil {
		t.Fatalf("Database error: %v", err)
	}
	if db.Dialect() != "sqlite" {
		t.Errorf("Dialect = %s, want sqlite", db.Dialect())
	}

	mapper, err := config.Mapper()
	if err != nil {
		t.Fatalf("Mapper error: %v", err)
	}
	if mapper.Database() != db {
		t.Error("mapper is not bound to the active database")
	}
}

func TestHolder_ReloadReactivatesDatabase(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Close()

	if err := h.Activate(); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	first, _ := config.Database()

	dbPath := filepath.Join(t.TempDir(), "ro.db")
	newContent := "database:\n  driver: sqlite\n  dsn: " + dbPath + "\n"
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	second, _ := config.Database()
	if second == first {
		t.Error("database was not re-activated")
	}
	if err := first.SQL().Ping(); err == nil {
		t.Error("previous database should be closed")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("new database file not created: %v", err)
	}

	// An unknown driver keeps the current database and configuration.
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	err = h.Reload()
	if err == nil || !strings.Contains(err.Error(), "oracle") {
		t.Errorf("Reload error = %v, want unknown dialect", err)
	}
	if current, _ := config.Database(); current != second {
		t.Error("failed reload replaced the active database")
	}
	if got := h.Get().Database.DSN; got != dbPath {
		t.Errorf("Database.DSN = %s, want %s", got, dbPath)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var callCount int

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	newContent := validConfig() + "models:\n  dir: watched\n"
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// Wait for file watcher to trigger
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Get().Models.Dir == "watched" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	if callCount == 0 {
		t.Error("file watcher did not trigger reload")
	}
	mu.Unlock()

	if got := h.Get().Models.Dir; got != "watched" {
		t.Errorf("after file watch, Models.Dir = %s, want watched", got)
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}

	h.Stop()
	h.Stop()
	if err := h.Close(); err != nil {
		t.Errorf("Close without Activate error: %v", err)
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Start many readers
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := h.Get()
				if cfg == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	// Concurrent reloads
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	assertContains(t, config.ReloadableFields(), "database.driver", "database.dsn")
}

func TestNonReloadableFields(t *testing.T) {
	assertContains(t, config.NonReloadableFields(), "logging.level", "models.dir")
}

// Helpers

func assertContains(t *testing.T, fields []string, expected ...string) {
	t.Helper()

	if len(fields) == 0 {
		t.Fatal("no fields returned")
	}
	for _, e := range expected {
		found := false
		for _, f := range fields {
			if f == e {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s not in %v", e, fields)
		}
	}
}

func validConfig() string {
	return `
database:
  driver: sqlite
  dsn: ":memory:"
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
