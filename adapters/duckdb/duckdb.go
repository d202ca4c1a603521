// Package duckdb provides the DuckDB dialect.
//
// DuckDB has no auto-increment column type, so every primary key draws
// from a sequence named after its table. Foreign keys are not declared:
// DuckDB rejects the cascade actions the ORM relies on.
package duckdb

import (
	"database/sql"
	"fmt"

	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/core/schema"
	"github.com/danielafriyie/raccy-orm/ports"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the dialect name.
const Name = "duckdb"

// DB wraps a DuckDB connection.
type DB struct {
	*sql.DB
}

// Dialect implements ports.Database.
func (db *DB) Dialect() string { return Name }

// SQL implements ports.Database.
func (db *DB) SQL() *sql.DB { return db.DB }

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Open opens a DuckDB database file. Use ":memory:" or "" for an
// in-memory database.
func Open(path string) (*DB, error) {
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &DB{DB: db}, nil
}

// Dialect returns the DuckDB descriptor.
func Dialect() *dialect.Dialect {
	return &dialect.Dialect{
		Name:   Name,
		Driver: "duckdb",
		Types: map[schema.FieldType]string{
			schema.TypePrimaryKey: "INTEGER PRIMARY KEY",
			schema.TypeDateTime:   "TIMESTAMP",
		},
		Returning: true,
		Sequences: true,
		Open: func(dsn string) (ports.Database, error) {
			db, err := Open(dsn)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	}
}

func init() {
	dialect.Register(Dialect())
}
