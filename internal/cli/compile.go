package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/oqlc/internal/compiler"
	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/sqlast"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml>",
		Short: "Compile a parse-tree query to SQL",
		Long: `Compile a YAML parse-tree query against the mapping schema.

Prints the SQL, its parameter binders in placeholder order and the
result descriptors. With --output the plan is also written as canonical
JSON.

Exit codes:
  0 - The query compiled
  1 - The query did not compile
  2 - Command error (schema, paths, configuration)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the plan as canonical JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, queryPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	_, p, err := compileQuery(opts.RootOptions, formatter, queryPath, cmd)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		if err := writePlanToFile(p, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(p)
	}
	writePlanText(formatter, p)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote plan to %s\n", opts.Output)
	}
	return nil
}

// compileQuery loads the schema and compiles the query file, reporting
// every failure through formatter.
func compileQuery(opts *RootOptions, formatter *OutputFormatter, queryPath string, cmd *cobra.Command) (*compiler.Schema, *plan.Plan, error) {
	schema, err := opts.loadSchema(formatter)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(queryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("query file not found: %s", queryPath), nil)
		}
		return nil, nil, outputCommandError(formatter, ErrCodeReadFailed, err.Error(), nil)
	}

	formatter.VerboseLog("Compiling %s", queryPath)
	p, err := opts.newEngine(schema).CompileDocument(cmd.Context(), data)
	if err != nil {
		return nil, nil, outputQueryError(formatter, err)
	}
	return schema, p, nil
}

// outputQueryError reports a query that did not compile (exit code 1).
func outputQueryError(formatter *OutputFormatter, err error) error {
	kind := engine.ErrorKind(err)
	details := map[string]any{}
	var se *engine.StageError
	if errors.As(err, &se) {
		details["stage"] = string(se.Stage)
		if se.Token != "" {
			details["compilation"] = se.Token
		}
		err = se.Err
	}
	_ = formatter.Error(kind, err.Error(), details)
	return WrapExitError(ExitFailure, "query did not compile", err)
}

// writePlanText prints a plan for humans.
func writePlanText(formatter *OutputFormatter, p *plan.Plan) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s statement (%s)\n\n", p.StatementType, p.Dialect)
	fmt.Fprintf(w, "%s\n", p.SQL)

	if len(p.Binders) > 0 {
		fmt.Fprintln(w, "\nBinders:")
		for i, b := range p.Binders {
			fmt.Fprintf(w, "  %d. %s\n", i+1, b)
		}
	}
	if len(p.Returns) > 0 {
		fmt.Fprintln(w, "\nReturns:")
		for i, r := range p.Returns {
			fmt.Fprintf(w, "  %d. %s\n", i+1, describeReturn(r))
		}
	}
}

func describeReturn(r *sqlast.Return) string {
	var sb strings.Builder
	sb.WriteString(string(r.Kind))
	if r.Type != "" {
		sb.WriteString(" " + r.Type)
	}
	if r.Alias != "" {
		sb.WriteString(" as " + r.Alias)
	}
	if r.Columns == 1 {
		sb.WriteString(" (1 column)")
	} else {
		fmt.Fprintf(&sb, " (%d columns)", r.Columns)
	}
	if len(r.Args) > 0 {
		args := make([]string, len(r.Args))
		for i, a := range r.Args {
			args[i] = describeReturn(a)
		}
		sb.WriteString(" of [" + strings.Join(args, ", ") + "]")
	}
	return sb.String()
}

// writePlanToFile writes the plan in canonical JSON.
func writePlanToFile(p *plan.Plan, filename string) error {
	data, err := p.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
