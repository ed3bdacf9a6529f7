package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/oqlc/internal/compiler"
	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/querysql"
	"github.com/roach88/oqlc/internal/store"
)

// Harness runs scenarios against one mapping schema.
//
// It owns an in-memory SQLite database holding the schema's tables, used by
// prepares assertions. Close releases it.
type Harness struct {
	schema *compiler.Schema
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the engine. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a harness for schema.
func New(schema *compiler.Schema, opts ...Option) (*Harness, error) {
	st, err := store.Open(store.MemoryPath, schema.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h := &Harness{
		schema: schema,
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Close releases the harness database.
func (h *Harness) Close() error {
	return h.store.Close()
}

// Run compiles a scenario's query and checks the outcome.
//
// The compilation token is the scenario name, so logs of a run can be
// matched to the scenario. An error is returned only when the scenario
// cannot be run at all; compilation failures are part of the Result.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	dialect, err := querysql.DialectByName(sc.Dialect)
	if err != nil {
		return nil, err
	}
	eng := engine.New(h.schema.Catalog, h.schema.Symbols,
		engine.WithDialect(dialect),
		engine.WithLogger(h.logger),
		engine.WithTokenGenerator(engine.NewFixedGenerator(sc.Name)),
	)

	result := NewResult()
	tree, err := parsetree.DecodeNode(&sc.Query)
	if err == nil {
		result.Plan, err = eng.Compile(ctx, tree)
	} else {
		err = &engine.StageError{Stage: engine.StageDecode, Token: sc.Name, Err: err}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		result.Err = err
		result.Stage = engine.StageOf(err)
		result.Kind = engine.ErrorKind(err)
	}

	checkExpect(result, sc.Expect)
	if result.Plan != nil {
		actx := &AssertionContext{Store: h.store, Ctx: ctx}
		for _, msg := range EvaluateAssertions(result.Plan, sc.Assertions, actx) {
			result.AddError(msg)
		}
	}
	return result, nil
}

// RunAll runs scenarios in order and stops at the first one that cannot be
// run.
func (h *Harness) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := h.Run(ctx, sc)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}
