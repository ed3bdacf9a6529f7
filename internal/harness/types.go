package harness

import (
	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/plan"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the expect clause and every assertion matched.
	Pass bool `json:"pass"`

	// Plan is the compiled statement, nil when compilation failed.
	Plan *plan.Plan `json:"plan,omitempty"`

	// Stage and Kind describe a compilation failure.
	Stage engine.Stage `json:"stage,omitempty"`
	Kind  string       `json:"kind,omitempty"`

	// Err is the compilation error, if any.
	Err error `json:"-"`

	// Errors lists every mismatch. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
