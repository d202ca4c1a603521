// Command ro manages the tables of models declared in YAML.
package main

import (
	_ "github.com/danielafriyie/raccy-orm/adapters/duckdb"
	_ "github.com/danielafriyie/raccy-orm/adapters/postgres"
	_ "github.com/danielafriyie/raccy-orm/adapters/sqlite"
)

func main() {
	Execute()
}
