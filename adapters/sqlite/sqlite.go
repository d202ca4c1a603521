// Package sqlite provides the embedded single-file dialect.
//
// Two openers share one dialect: Open uses the cgo driver
// (mattn/go-sqlite3), OpenPure the pure-Go driver (modernc.org/sqlite).
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/ports"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// Name is the dialect name of databases opened with Open.
	Name = "sqlite"

	// PureName is the dialect name of databases opened with OpenPure.
	PureName = "sqlite-pure"
)

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
	dialect string
}

// Dialect implements ports.Database.
func (db *DB) Dialect() string { return db.dialect }

// SQL implements ports.Database.
func (db *DB) SQL() *sql.DB { return db.DB }

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Open creates a new SQLite database connection using the cgo driver.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*DB, error) {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	if !isMemory(path) {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	}
	return open("sqlite3", Name, path, params)
}

// OpenPure creates a new SQLite database connection using the pure-Go
// driver.
func OpenPure(path string) (*DB, error) {
	params := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !isMemory(path) {
		params = append(params, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return open("sqlite", PureName, path, params)
}

func open(driver, name, path string, params []string) (*DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	db, err := sql.Open(driver, path+sep+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	return &DB{DB: db, dialect: name}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Dialect returns the descriptor for databases opened with Open. Field
// types render with their default names.
func Dialect() *dialect.Dialect {
	return &dialect.Dialect{
		Name:        Name,
		Driver:      "sqlite3",
		ForeignKeys: true,
		Open: func(dsn string) (ports.Database, error) {
			return asDatabase(Open(dsn))
		},
	}
}

// PureDialect returns the descriptor for databases opened with OpenPure.
func PureDialect() *dialect.Dialect {
	d := Dialect()
	d.Name = PureName
	d.Driver = "sqlite"
	d.Open = func(dsn string) (ports.Database, error) {
		return asDatabase(OpenPure(dsn))
	}
	return d
}

func asDatabase(db *DB, err error) (ports.Database, error) {
	if err != nil {
		return nil, err
	}
	return db, nil
}

func init() {
	dialect.Register(Dialect())
	dialect.Register(PureDialect())
}
