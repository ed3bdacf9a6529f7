package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/oqlc/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compilation scenarios",
		Long: `Run every scenario file in a directory against the schema.

A scenario passes when its query compiles to the expected SQL and
binders, or fails with the expected error kind, and its assertions hold.
When <scenarios-dir>/golden/<name>.golden exists the plan must also match
it; --update rewrites the golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  oqlc test ./scenarios --schema ./schema
  oqlc test ./scenarios --filter "update_*"
  oqlc test ./scenarios --update
  oqlc test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name (glob pattern)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return outputCommandError(formatter, ErrCodeConfig, fmt.Sprintf("invalid filter pattern: %v", err), nil)
		}
	}

	schema, err := opts.loadSchema(formatter)
	if err != nil {
		return err
	}
	scenarios, err := harness.LoadScenarios(scenariosDir)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to load scenarios: %v", err), nil)
	}

	h, err := harness.New(schema, harness.WithLogger(opts.log()))
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	defer h.Close()

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, sc := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, sc.Name); !ok {
				continue
			}
		}
		scenResult, err := runScenario(h, sc, scenariosDir, opts, cmd)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("scenario %s: %v", sc.Name, err), nil)
		}
		result.Scenarios = append(result.Scenarios, scenResult)
		result.Total++
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runScenario runs one scenario and settles its golden file.
func runScenario(h *harness.Harness, sc *harness.Scenario, dir string, opts *TestOptions, cmd *cobra.Command) (ScenarioResult, error) {
	result, err := h.Run(cmd.Context(), sc)
	if err != nil {
		return ScenarioResult{}, err
	}
	out := ScenarioResult{Name: sc.Name, Pass: result.Pass, Errors: result.Errors}
	if result.Plan == nil {
		return out, nil
	}

	goldenPath := goldenFilePath(dir, sc.Name)
	snapshot := harness.Snapshot(result.Plan)
	if opts.Update {
		if err := updateGoldenFile(goldenPath, snapshot); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("writing golden file: %v", err))
		}
		return out, nil
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		// No golden file - expect clause and assertions only
		return out, nil
	}
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("golden comparison failed: %v", err))
		return out, nil
	}
	if !bytes.Equal(golden, snapshot) {
		out.Pass = false
		out.Errors = append(out.Errors, "plan does not match golden file (run with --update to regenerate)")
	}
	return out, nil
}

func goldenFilePath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

func updateGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, snapshot, 0644)
}

// failed is the command error for a run with failing scenarios.
func (r TestResult) failed() error {
	if r.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", r.Failed))
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	for _, sc := range result.Scenarios {
		mark := "✓"
		if !sc.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, sc.Name)
		for _, e := range sc.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return result.failed()
}

// outputTestJSON writes an indented CLIResponse. A run with failures has
// status "error" and still carries every scenario result.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	failure := result.failed()
	if failure != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return failure
}
