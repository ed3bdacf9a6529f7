package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the rendered SQL to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "  SQL: %s\n", e.SQL)
	}
	return buf.String()
}

// checkExpect compares the compilation outcome with the expect clause.
func checkExpect(result *Result, expect ExpectClause) {
	if expect.Error != "" {
		if result.Err == nil {
			result.AddError(fmt.Sprintf("expected %s error, compiled to: %s", expect.Error, result.Plan.SQL))
			return
		}
		if result.Kind != expect.Error {
			result.AddError(fmt.Sprintf("expected %s error, got %s: %v", expect.Error, result.Kind, result.Err))
		}
		if expect.Stage != "" && string(result.Stage) != expect.Stage {
			result.AddError(fmt.Sprintf("expected failure in stage %s, got %s", expect.Stage, result.Stage))
		}
		return
	}

	if result.Err != nil {
		result.AddError(fmt.Sprintf("compilation failed: %v", result.Err))
		return
	}
	p := result.Plan
	if p.SQL != expect.SQL {
		result.AddError(fmt.Sprintf("sql mismatch:\n  want: %s\n  got:  %s", expect.SQL, p.SQL))
	}
	if expect.Statement != "" && p.StatementType != expect.Statement {
		result.AddError(fmt.Sprintf("expected %s statement, got %s", expect.Statement, p.StatementType))
	}
	if expect.Binders != nil {
		if diff := cmp.Diff(expect.Binders, FormatBinders(p)); diff != "" {
			result.AddError(fmt.Sprintf("binders mismatch (-want +got):\n%s", diff))
		}
	}
}

func assertSQLContains(p *plan.Plan, a Assertion) error {
	if strings.Contains(p.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("SQL containing %q", a.Text),
		Actual:   "not found",
		SQL:      p.SQL,
	}
}

func assertSQLExcludes(p *plan.Plan, a Assertion) error {
	if !strings.Contains(p.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("SQL without %q", a.Text),
		Actual:   "found",
		SQL:      p.SQL,
	}
}

func assertCount(kind string, got int, a Assertion, sql string) error {
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, kind),
		Actual:   fmt.Sprintf("%d %s", got, kind),
		SQL:      sql,
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against a compiled plan.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the database for prepares assertions.
func EvaluateAssertions(p *plan.Plan, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSQLContains:
			err = assertSQLContains(p, assertion)
		case AssertSQLExcludes:
			err = assertSQLExcludes(p, assertion)
		case AssertBinderCount:
			err = assertCount("binders", len(p.Binders), assertion, p.SQL)
		case AssertColumnCount:
			err = assertCount("columns", p.Columns(), assertion, p.SQL)
		case AssertPrepares:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: prepares requires a database", i)
			} else if cerr := actx.Store.Check(actx.Ctx, p); cerr != nil {
				err = &AssertionError{
					Type:     assertion.Type,
					Expected: "statement prepares",
					Actual:   cerr.Error(),
					SQL:      p.SQL,
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
