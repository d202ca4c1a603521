package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danielafriyie/raccy-orm/core/dialect"
	"github.com/danielafriyie/raccy-orm/core/orm"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the fields and column SQL of every declared model",
	Long: `Show every declared model with its fields in table order.

Column SQL is rendered for the configured database driver; use --dialect
to render for another one. No database connection is opened.

Examples:
  ro inspect
  ro inspect --sql --dialect postgres`,
	RunE: runInspect,
}

var (
	inspectSQL     bool
	inspectDialect string
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectSQL, "sql", false, "also print CREATE statements")
	inspectCmd.Flags().StringVar(&inspectDialect, "dialect", "", "render SQL for this dialect instead of database.driver")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	models, err := loadModels(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	name := cfg.Database.Driver
	if inspectDialect != "" {
		name = inspectDialect
	}
	d, ok := dialect.Lookup(name)
	if !ok {
		return &dialect.UnknownDialectError{Name: name, Available: dialect.Names()}
	}

	return renderModels(cmd.OutOrStdout(), dialect.New(d, nil), models, inspectSQL)
}

// renderModels prints one table per model and, with withSQL, the
// statements creating the concrete ones.
func renderModels(w io.Writer, mapper *dialect.Mapper, models []*orm.Model, withSQL bool) error {
	for _, m := range models {
		title := fmt.Sprintf("%s -> %s", m.Name(), m.TableName())
		if m.IsAbstract() {
			title = m.Name() + " (abstract)"
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.SetTitle(title)
		t.AppendHeader(table.Row{"Field", "Type", "SQL"})

		for _, nf := range m.Schema().Fields() {
			sqlType := mapper.ColumnSQL(nf.Field)
			if nf.Field.To != nil {
				sqlType += fmt.Sprintf(" -> %s (%s)", nf.Field.To.Table(), nf.Field.OnField)
			}
			t.AppendRow(table.Row{nf.Name, string(nf.Field.Type), sqlType})
		}
		t.Render()

		if withSQL && !m.IsAbstract() {
			for _, stmt := range mapper.CreateTableSQL(m.Schema()) {
				fmt.Fprintln(w, strings.TrimSpace(stmt)+";")
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
