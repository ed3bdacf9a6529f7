package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/querysql"
)

// Scenario is one compilation case: a parse-tree query and what compiling it
// must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario covers.
	Description string `yaml:"description"`

	// Dialect selects the SQL dialect. Empty means sqlite.
	Dialect string `yaml:"dialect,omitempty"`

	// Query is the parse-tree document, inline.
	Query yaml.Node `yaml:"query"`

	// Expect is either the compiled statement or the error.
	Expect ExpectClause `yaml:"expect"`

	// Assertions are extra checks on a successful plan.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the compilation outcome.
type ExpectClause struct {
	// SQL is the exact rendered statement.
	SQL string `yaml:"sql,omitempty"`

	// Statement is the statement type: select, update or delete.
	Statement string `yaml:"statement,omitempty"`

	// Binders lists the expected binders in placeholder order, each in the
	// form querysql.Binder.String produces. Nil skips the check; an empty list
	// requires none.
	Binders []string `yaml:"binders,omitempty"`

	// Error is the expected error kind (an error kind name, INVARIANT or
	// OTHER).
	Error string `yaml:"error,omitempty"`

	// Stage is the expected failing stage. Only valid with Error.
	Stage string `yaml:"stage,omitempty"`
}

// Assertion is an extra check on a compiled plan.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_contains": the SQL contains Text
	// - "sql_excludes": the SQL does not contain Text
	// - "binder_count": the plan has exactly Count binders
	// - "column_count": the plan returns exactly Count columns
	// - "prepares": SQLite accepts the SQL against the schema's tables
	Type string `yaml:"type"`

	// Text is the fragment for sql_contains and sql_excludes.
	Text string `yaml:"text,omitempty"`

	// Count is the expected number for binder_count and column_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains = "sql_contains"
	AssertSQLExcludes = "sql_excludes"
	AssertBinderCount = "binder_count"
	AssertColumnCount = "column_count"
	AssertPrepares    = "prepares"
)

var errorKinds = map[string]bool{
	string(qerr.KindUnresolvedName):    true,
	string(qerr.KindSemantic):          true,
	string(qerr.KindStructuralParse):   true,
	string(qerr.KindNotYetImplemented): true,
	string(qerr.KindLiteralFormat):     true,
	"INVARIANT":                        true,
	"OTHER":                            true,
}

var stages = map[string]bool{
	string(engine.StageDecode):   true,
	string(engine.StageAnalyze):  true,
	string(engine.StageLower):    true,
	string(engine.StageValidate): true,
	string(engine.StageRender):   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, ordered by file name.
// Scenario names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	seen := map[string]string{}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", filepath.Base(path), sc.Name, prev)
		}
		seen[sc.Name] = filepath.Base(path)
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Query.Kind == 0 {
		return fmt.Errorf("query is required")
	}

	if _, err := querysql.DialectByName(s.Dialect); err != nil {
		return err
	}

	e := s.Expect
	switch {
	case e.SQL == "" && e.Error == "":
		return fmt.Errorf("expect requires sql or error")
	case e.SQL != "" && e.Error != "":
		return fmt.Errorf("expect takes sql or error, not both")
	}
	if e.Error != "" {
		if !errorKinds[e.Error] {
			return fmt.Errorf("expect.error: unknown error kind %q", e.Error)
		}
		if e.Stage != "" && !stages[e.Stage] {
			return fmt.Errorf("expect.stage: unknown stage %q", e.Stage)
		}
		if e.Statement != "" || e.Binders != nil {
			return fmt.Errorf("expect.error cannot be combined with statement or binders")
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions require a successful compilation")
		}
	} else if e.Stage != "" {
		return fmt.Errorf("expect.stage requires expect.error")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSQLContains, AssertSQLExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: %s requires text", index, a.Type)
		}
	case AssertBinderCount, AssertColumnCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: %s count must be non-negative", index, a.Type)
		}
	case AssertPrepares:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
