package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/oqlc/internal/compiler"
	"github.com/roach88/oqlc/internal/config"
	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/querysql"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Schema     string // CUE schema directory
	Dialect    string

	config *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the oqlc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "oqlc",
		Short: "oqlc - object query compiler",
		Long: `Compile object queries over a mapped entity model into SQL.

Queries are parse trees written as YAML; the mapping schema is written in CUE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "CUE mapping schema directory")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|ansi)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Commands report their own failures; anything else (unknown flags, wrong
// argument counts) is printed to stderr here.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	return exitErr.Code
}

// setup validates global flags, merges the configuration file under them
// and installs the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		f := &OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}
		msg := fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats)
		return outputCommandError(f, ErrCodeConfig, msg, nil)
	}
	f := o.formatter(cmd)

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return outputCommandError(f, ErrCodeConfig, err.Error(), nil)
	}
	o.config = cfg
	flags := cmd.Flags()
	if !flags.Changed("schema") && cfg.Schema != "" {
		o.Schema = cfg.Schema
	}
	if !flags.Changed("dialect") && cfg.Dialect != "" {
		o.Dialect = cfg.Dialect
	}
	if _, err := querysql.DialectByName(o.Dialect); err != nil {
		return outputCommandError(f, ErrCodeConfig, err.Error(), nil)
	}

	level, err := cfg.Level()
	if err != nil {
		return outputCommandError(f, ErrCodeConfig, err.Error(), nil)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// loadSchema compiles the configured schema directory, reporting failures
// through f.
func (o *RootOptions) loadSchema(f *OutputFormatter) (*compiler.Schema, error) {
	if o.Schema == "" {
		return nil, outputCommandError(f, ErrCodeConfig,
			"no schema directory: pass --schema or set schema in "+config.DefaultFile, nil)
	}
	f.VerboseLog("Loading schema from %s", o.Schema)
	schema, err := compiler.LoadDir(o.Schema)
	if err != nil {
		var details any
		var ce *compiler.CompileError
		if errors.As(err, &ce) && ce.Pos.IsValid() {
			details = map[string]any{
				"file":   ce.Pos.Filename(),
				"line":   ce.Pos.Line(),
				"column": ce.Pos.Column(),
				"field":  ce.Field,
			}
		}
		return nil, outputCommandError(f, ErrCodeSchemaFailed, err.Error(), details)
	}
	f.VerboseLog("Loaded %d entities", len(schema.Catalog.Entities()))
	return schema, nil
}

// newEngine builds an engine for schema in the configured dialect.
func (o *RootOptions) newEngine(schema *compiler.Schema) *engine.Engine {
	d, err := querysql.DialectByName(o.Dialect)
	if err != nil {
		d = querysql.SQLite
	}
	return engine.New(schema.Catalog, schema.Symbols,
		engine.WithDialect(d),
		engine.WithLogger(o.log()),
	)
}

// outputCommandError reports a command-level failure (exit code 2).
func outputCommandError(f *OutputFormatter, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
