package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DBPath string
}

// CheckResult is the JSON payload of a successful check.
type CheckResult struct {
	Plan     *plan.Plan `json:"plan"`
	Database string     `json:"database"`
	Prepared bool       `json:"prepared"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <query.yaml>",
		Short: "Compile a query and have SQLite prepare the SQL",
		Long: `Compile a query, then prepare the rendered SQL against a SQLite
database holding the schema's tables. Nothing is executed.

The database is in memory unless --db or check.database in the
configuration names a file; its tables are created if missing.

Exit codes:
  0 - The query compiled and SQLite accepted it
  1 - The query did not compile or SQLite rejected it
  2 - Command error (schema, paths, configuration)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database file (default in memory)")

	return cmd
}

func runCheck(opts *CheckOptions, queryPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	schema, p, err := compileQuery(opts.RootOptions, formatter, queryPath, cmd)
	if err != nil {
		return err
	}

	dbPath := opts.databasePath()
	st, err := store.Open(dbPath, schema.Catalog)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	formatter.VerboseLog("Preparing statement against %s", dbPath)
	if err := st.Check(cmd.Context(), p); err != nil {
		details := map[string]any{"sql": p.SQL}
		var ce *store.CheckError
		if errors.As(err, &ce) && ce.Code != "" {
			details["sqlite_code"] = ce.Code
		}
		_ = formatter.Error(ErrCodeCheckFailed, err.Error(), details)
		return WrapExitError(ExitFailure, "statement rejected", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CheckResult{Plan: p, Database: dbPath, Prepared: true})
	}
	writePlanText(formatter, p)
	fmt.Fprintf(formatter.Writer, "\n✓ SQLite prepared the statement (%d parameter(s))\n", len(p.Binders))
	return nil
}

func (o *CheckOptions) databasePath() string {
	if o.DBPath != "" {
		return o.DBPath
	}
	if o.config != nil && o.config.Check.Database != "" {
		return o.config.Check.Database
	}
	return store.MemoryPath
}
