package main

import (
	"fmt"
	"os"

	"github.com/danielafriyie/raccy-orm/config"
	"github.com/danielafriyie/raccy-orm/core/orm"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables of every declared model",
	Long: `Create the table of every concrete model on the configured database.

Tables are created with CREATE TABLE IF NOT EXISTS, foreign key targets
first. Existing tables are left untouched.

Examples:
  ro migrate
  ro migrate --config /etc/ro/ro.yaml --models ./models`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Logging, os.Stderr)

	models, err := loadModels(cfg, logger)
	if err != nil {
		return err
	}

	closeDB, err := activate(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := orm.CreateTables(cmd.Context()); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Model", "Table", "Fields"})

	created := 0
	for _, m := range models {
		if m.IsAbstract() {
			continue
		}
		t.AppendRow(table.Row{m.Name(), m.TableName(), len(m.Objects.Fields())})
		created++
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d tables ensured on %s\n", created, cfg.Database.Driver)
	return nil
}
