package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/querysql"
	"github.com/roach88/oqlc/internal/testutil"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestEngine(opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithLogger(discard())}, opts...)
	return New(testutil.Catalog(), testutil.Symbols(), opts...)
}

const companyByName = `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
where: {eq: [{path: c.name}, {param: name}]}
`

func TestEngine_CompileDocument(t *testing.T) {
	e := newTestEngine()

	p, err := e.CompileDocument(context.Background(), []byte(companyByName))
	require.NoError(t, err)

	assert.Equal(t, "select c1_0.name from company c1_0 where c1_0.name=?", p.SQL)
	assert.Equal(t, "select", p.StatementType)
	assert.Equal(t, "sqlite", p.Dialect)
	require.Len(t, p.Binders, 1)
	assert.Equal(t, querysql.BindNamed, p.Binders[0].Source)
	assert.Equal(t, "name", p.Binders[0].Name)
	require.Len(t, p.Returns, 1)
	assert.Equal(t, "string", p.Returns[0].Type)
}

func TestEngine_Dialect(t *testing.T) {
	doc := []byte("select: {items: [{expr: {mod: [{path: c.id}, {int: \"7\"}]}}]}\nfrom: [{root: {entity: Company, alias: c}}]")

	sqlite, err := newTestEngine().CompileDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "select (c1_0.id%7) from company c1_0", sqlite.SQL)

	e := newTestEngine(WithDialect(querysql.ANSI))
	assert.Equal(t, "ansi", e.Dialect().Name())
	ansi, err := e.CompileDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "select mod(c1_0.id,7) from company c1_0", ansi.SQL)
	assert.NotEqual(t, sqlite.MustFingerprint(), ansi.MustFingerprint())
}

func TestEngine_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		stage Stage
		check func(error) bool
	}{
		{
			name:  "malformed document",
			doc:   "from: [",
			stage: StageDecode,
			check: func(err error) bool { return err != nil },
		},
		{
			name:  "unknown entity",
			doc:   "from: [{root: {entity: Nope, alias: n}}]",
			stage: StageAnalyze,
			check: qerr.IsUnresolvedName,
		},
		{
			name:  "collection used as a value",
			doc:   "select: {items: [{expr: {path: p.phones}}]}\nfrom: [{root: {entity: Person, alias: p}}]",
			stage: StageLower,
			check: qerr.IsSemantic,
		},
		{
			name:  "update through an association",
			doc:   "update: {entity: Person, alias: p, set: [{path: p.name, value: {string: x}}], where: {eq: [{path: p.employer.name}, {string: y}]}}",
			stage: StageLower,
			check: qerr.IsNotYetImplemented,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestEngine().CompileDocument(context.Background(), []byte(tc.doc))
			require.Error(t, err)
			assert.Equal(t, tc.stage, StageOf(err))
			assert.True(t, tc.check(err), "unexpected error: %v", err)
		})
	}
}

func TestEngine_ErrorCarriesToken(t *testing.T) {
	e := newTestEngine(WithTokenGenerator(NewFixedGenerator("c-42")))

	_, err := e.CompileDocument(context.Background(), []byte("from: [{root: {entity: Nope, alias: n}}]"))
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "c-42", se.Token)
	assert.Contains(t, err.Error(), "compilation=c-42")
	assert.Contains(t, err.Error(), "UNRESOLVED_NAME")
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine().CompileDocument(ctx, []byte(companyByName))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StageAnalyze, StageOf(err))
}

func TestEngine_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(testutil.Catalog(), testutil.Symbols(),
		WithLogger(logger),
		WithTokenGenerator(NewFixedGenerator("c-1", "c-2")),
	)

	_, err := e.CompileDocument(context.Background(), []byte(companyByName))
	require.NoError(t, err)
	_, err = e.CompileDocument(context.Background(), []byte("from: [{root: {entity: Nope, alias: n}}]"))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"compilation started","compilation":"c-1"`)
	assert.Contains(t, out, `"msg":"compilation finished","compilation":"c-1"`)
	assert.Contains(t, out, `"msg":"compilation failed","compilation":"c-2"`)
	assert.Contains(t, out, `"kind":"UNRESOLVED_NAME"`)
	assert.Contains(t, out, `"stage":"analyze"`)
}

func TestEngine_Deterministic(t *testing.T) {
	e := newTestEngine()
	first, err := e.CompileDocument(context.Background(), []byte(companyByName))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := e.CompileDocument(context.Background(), []byte(companyByName))
		require.NoError(t, err)
		assert.Equal(t, first.MustFingerprint(), again.MustFingerprint())
	}
}

// Compilations sharing one engine, catalog and symbol table must not
// observe each other's alias counters or from-clause stacks.
func TestEngine_ConcurrentCompilations(t *testing.T) {
	docs := []string{
		companyByName,
		"select: {items: [{expr: {path: p.name}}]}\nfrom: [{root: {entity: Person, alias: p}, joins: [{join: p.projects, alias: pr, type: left}]}]",
		"select: {items: [{expr: {path: p.name}}]}\nfrom: [{root: {entity: Person, alias: p}}]\nwhere: {is_empty: {path: p.phones}}",
		"delete: {entity: Company, where: {is_null: {path: name}}}",
	}

	e := newTestEngine()
	want := make([]string, len(docs))
	for i, doc := range docs {
		p, err := e.CompileDocument(context.Background(), []byte(doc))
		require.NoError(t, err)
		want[i] = p.MustFingerprint()
	}

	const rounds = 16
	got := make([]string, rounds*len(docs))
	g, ctx := errgroup.WithContext(context.Background())
	for i := range got {
		g.Go(func() error {
			p, err := e.CompileDocument(ctx, []byte(docs[i%len(docs)]))
			if err != nil {
				return err
			}
			got[i] = p.MustFingerprint()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, fp := range got {
		assert.Equal(t, want[i%len(docs)], fp, "compilation %d", i)
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Equal(t, "b", gen.Generate())

	assert.Equal(t, "compilation", NewFixedGenerator().Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "UNRESOLVED_NAME", ErrorKind(&StageError{Stage: StageAnalyze, Err: qerr.Unresolved("x", "unknown")}))
	assert.Equal(t, "INVARIANT", ErrorKind(qerr.Invariant("broken")))
	assert.Equal(t, "OTHER", ErrorKind(errors.New("plain")))
}
