package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/oqlc/internal/store"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Tables []*store.Table `json:"tables"`
	DDL    []string       `json:"ddl"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the table DDL the mapping schema implies",
		Long: `Load the CUE mapping schema and print one create table statement
per mapped table: entity tables first, then collection tables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	schema, err := opts.loadSchema(formatter)
	if err != nil {
		return err
	}
	tables, err := store.Tables(schema.Catalog)
	if err != nil {
		return outputCommandError(formatter, ErrCodeSchemaFailed, err.Error(), nil)
	}

	ddl := make([]string, len(tables))
	for i, t := range tables {
		ddl[i] = t.CreateSQL()
	}

	if formatter.Format == "json" {
		return formatter.Success(SchemaResult{Tables: tables, DDL: ddl})
	}
	for _, stmt := range ddl {
		fmt.Fprintf(formatter.Writer, "%s;\n", stmt)
	}
	return nil
}
