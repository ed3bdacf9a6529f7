package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/querysql"
	"github.com/roach88/oqlc/internal/semantic"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqlgen"
)

// Engine compiles parse trees against one metamodel and symbol table.
//
// Thread-safety: Compile and CompileDocument are safe for concurrent use.
type Engine struct {
	metamodel model.Metamodel
	symbols   model.SymbolTable
	dialect   querysql.Dialect
	logger    *slog.Logger
	tokens    TokenGenerator
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithDialect selects the SQL dialect. Default: querysql.SQLite.
func WithDialect(d querysql.Dialect) EngineOption {
	return func(e *Engine) {
		e.dialect = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTokenGenerator sets the compilation token source. Default: UUIDv7Generator.
func WithTokenGenerator(gen TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = gen
	}
}

// New creates an Engine. The metamodel and symbol table are only read.
func New(m model.Metamodel, symbols model.SymbolTable, opts ...EngineOption) *Engine {
	e := &Engine{
		metamodel: m,
		symbols:   symbols,
		dialect:   querysql.SQLite,
		logger:    slog.Default(),
		tokens:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if symbols == nil {
		e.symbols = model.Symbols{}
	}
	return e
}

// Dialect returns the dialect plans are rendered in.
func (e *Engine) Dialect() querysql.Dialect {
	return e.dialect
}

// CompileDocument decodes a YAML parse-tree document and compiles it.
func (e *Engine) CompileDocument(ctx context.Context, data []byte) (*plan.Plan, error) {
	tree, err := parsetree.Decode(data)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	return e.Compile(ctx, tree)
}

// Compile runs one parse tree through analysis, lowering, validation and
// rendering. The context is checked between stages.
func (e *Engine) Compile(ctx context.Context, tree parsetree.Statement) (*plan.Plan, error) {
	token := e.tokens.Generate()
	log := e.logger.With("compilation", token)
	start := time.Now()
	log.Debug("compilation started", "dialect", e.dialect.Name())

	p, stage, err := e.run(ctx, tree, log)
	if err != nil {
		log.Warn("compilation failed",
			"stage", string(stage),
			"kind", ErrorKind(err),
			"error", err,
		)
		return nil, &StageError{Stage: stage, Token: token, Err: err}
	}

	log.Info("compilation finished",
		"statement", p.StatementType,
		"binders", len(p.Binders),
		"elapsed", time.Since(start),
	)
	return p, nil
}

func (e *Engine) run(ctx context.Context, tree parsetree.Statement, log *slog.Logger) (*plan.Plan, Stage, error) {
	if err := ctx.Err(); err != nil {
		return nil, StageAnalyze, err
	}
	stmt, err := semantic.Analyze(tree, semantic.Options{
		Metamodel: e.metamodel,
		Symbols:   e.symbols,
		Logger:    log,
	})
	if err != nil {
		return nil, StageAnalyze, err
	}

	if err := ctx.Err(); err != nil {
		return nil, StageLower, err
	}
	lowered, err := sqlgen.Lower(stmt, log)
	if err != nil {
		return nil, StageLower, err
	}

	if res := sqlast.Validate(lowered); !res.Valid {
		return nil, StageValidate, qerr.Invariant("lowered statement is inconsistent: %s",
			strings.Join(res.Problems, "; "))
	}

	if err := ctx.Err(); err != nil {
		return nil, StageRender, err
	}
	rendered, err := querysql.Render(lowered, e.dialect)
	if err != nil {
		return nil, StageRender, err
	}
	log.Debug("statement rendered", "sql", rendered.SQL)

	p, err := plan.New(lowered, rendered, e.dialect)
	if err != nil {
		return nil, StageRender, qerr.Invariant("%v", err)
	}
	return p, "", nil
}

// ErrorKind classifies a compilation error for reporting: the qerr kind,
// INVARIANT for internal inconsistencies, or OTHER.
func ErrorKind(err error) string {
	if qerr.IsInvariant(err) {
		return "INVARIANT"
	}
	if k := qerr.KindOf(err); k != "" {
		return string(k)
	}
	return "OTHER"
}
