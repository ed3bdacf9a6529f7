package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/oqlc/internal/plan"
)

// FormatBinders formats every binder of p in placeholder order, one
// Binder.String line each.
func FormatBinders(p *plan.Plan) []string {
	out := make([]string, len(p.Binders))
	for i, b := range p.Binders {
		out[i] = b.String()
	}
	return out
}

// Snapshot renders the parts of a plan a golden file pins down.
func Snapshot(p *plan.Plan) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dialect: %s\n", p.Dialect)
	fmt.Fprintf(&sb, "statement: %s\n", p.StatementType)
	fmt.Fprintf(&sb, "sql: %s\n", p.SQL)
	if len(p.Binders) == 0 {
		sb.WriteString("binders: []\n")
	} else {
		sb.WriteString("binders:\n")
		for _, line := range FormatBinders(p) {
			fmt.Fprintf(&sb, "  - %s\n", line)
		}
	}
	return []byte(sb.String())
}

// RunWithGolden runs a scenario and compares its plan against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Scenarios that expect an error have no golden file; the result is
// returned for the caller to check.
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if result.Plan != nil {
		AssertGolden(t, scenario.Name, result.Plan)
	}
	return result, nil
}

// AssertGolden compares a plan's snapshot against a golden file.
func AssertGolden(t *testing.T, name string, p *plan.Plan) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(p))
}
