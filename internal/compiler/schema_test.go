package compiler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/store"
	"github.com/roach88/oqlc/internal/testutil"
)

func TestLoadDir_MatchesFixture(t *testing.T) {
	schema, err := LoadDir(testutil.SchemaDir())
	require.NoError(t, err)

	want, err := store.DDL(testutil.Catalog())
	require.NoError(t, err)
	got, err := store.DDL(schema.Catalog)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	employee := schema.Catalog.ResolveEntityType("Employee")
	require.NotNil(t, employee)
	assert.Equal(t, "Person", employee.Super().Name)
	assert.Equal(t, "E", employee.Discriminator)

	registrar := schema.Catalog.ResolveEntityType("Person").FindAttribute("registrar")
	require.NotNil(t, registrar)
	assert.Equal(t, "regNo", registrar.ReferencedProperty)
}

func TestLoadDir_CompilesLikeFixture(t *testing.T) {
	schema, err := LoadDir(testutil.SchemaDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fromCUE := engine.New(schema.Catalog, schema.Symbols, engine.WithLogger(logger))
	fromGo := engine.New(testutil.Catalog(), testutil.Symbols(), engine.WithLogger(logger))

	docs := []string{
		"from: [{root: {entity: Person, alias: p}}]",
		"select: {items: [{expr: {path: x.label}}]}\nfrom: [{root: {entity: Parcel, alias: x}, joins: [{join: x.shipment, alias: s}]}]",
		"select: {items: [{expr: {path: p.name}}]}\nfrom: [{root: {entity: Person, alias: p}}]\nwhere: {gt: [{path: p.age}, {path: com.acme.Limits.MAX_AGE}]}",
	}
	for _, doc := range docs {
		a, err := fromCUE.CompileDocument(context.Background(), []byte(doc))
		require.NoError(t, err, doc)
		b, err := fromGo.CompileDocument(context.Background(), []byte(doc))
		require.NoError(t, err, doc)
		assert.Equal(t, b.MustFingerprint(), a.MustFingerprint(), doc)
	}
}

func TestCompileSchema_Classes(t *testing.T) {
	schema, err := LoadDir(testutil.SchemaDir())
	require.NoError(t, err)

	status, ok := schema.Symbols.ClassByName("com.acme.Status")
	require.True(t, ok)
	assert.True(t, status.Enum)
	assert.False(t, status.Ordinal)
	assert.Equal(t, []string{"ACTIVE", "RETIRED"}, status.Constants)

	level, ok := schema.Symbols.ClassByName("com.acme.Level")
	require.True(t, ok)
	assert.True(t, level.Ordinal)

	limits, ok := schema.Symbols.ClassByName("com.acme.Limits")
	require.True(t, ok)
	assert.Equal(t, int32(65), limits.Fields["MAX_AGE"].Value)
	assert.Same(t, model.Integer, limits.Fields["MAX_AGE"].Type)
	rate, ok := limits.Fields["RATE"].Value.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("1.25")))
	assert.False(t, limits.Fields["scratch"].Static)
	assert.True(t, limits.Fields["scratch"].Exported)
	assert.False(t, limits.Fields["SECRET"].Exported)

	summary, ok := schema.Symbols.ClassByName("com.acme.PersonSummary")
	require.True(t, ok)
	assert.False(t, summary.Enum)
	assert.Empty(t, summary.Fields)
}

func TestCompileSchema_FieldValues(t *testing.T) {
	schema, err := LoadString(`
class: K: fields: {
	c:  {type: "character", value: "y"}
	l:  {type: "long", value: 9000000000}
	bi: {type: "big_integer", value: 123456789012345678901234567890}
	f:  {type: "float", value: 1.5}
	d:  {type: "double", value: 2.25}
	b:  {type: "boolean", value: true}
	s:  {type: "date", value: "2024-01-02"}
}
`, "values.cue")
	require.NoError(t, err)

	k, ok := schema.Symbols.ClassByName("K")
	require.True(t, ok)
	assert.Equal(t, int32('y'), k.Fields["c"].Value)
	assert.Equal(t, int64(9000000000), k.Fields["l"].Value)
	assert.Equal(t, "123456789012345678901234567890", k.Fields["bi"].Value.(interface{ String() string }).String())
	assert.Equal(t, float32(1.5), k.Fields["f"].Value)
	assert.Equal(t, 2.25, k.Fields["d"].Value)
	assert.Equal(t, true, k.Fields["b"].Value)
	assert.Equal(t, "2024-01-02", k.Fields["s"].Value)
}

func TestCompileSchema_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		msg  string
	}{
		{
			name: "unknown field",
			src:  `entity: A: {table: "a", tabel: "b", id: {name: "id", type: "long"}}`,
			msg:  "not allowed",
		},
		{
			name: "unknown kind",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {kind: "many_to_few"}}`,
		},
		{
			name: "unknown basic type",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {type: "blob"}}`,
			msg:  `unknown basic type "blob"`,
		},
		{
			name: "root without id",
			src:  `entity: A: {table: "a"}`,
			msg:  "id is required for a hierarchy root",
		},
		{
			name: "subtype with id",
			src: `entity: A: {table: "a", id: {name: "id", type: "long"}}
entity: B: {table: "b", extends: "A", id: {name: "id", type: "long"}}`,
			msg: "inherits the identifier",
		},
		{
			name: "unknown supertype",
			src:  `entity: B: {table: "b", extends: "Nope"}`,
			msg:  `unknown entity "Nope"`,
		},
		{
			name: "unknown target",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {kind: "many_to_one", target: "Nope", columns: ["x_id"]}}`,
			msg:  `unknown target entity "Nope"`,
		},
		{
			name: "association without columns",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {kind: "many_to_one", target: "A"}}`,
			msg:  "requires foreign key columns",
		},
		{
			name: "collection without mapping",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {kind: "one_to_many", target: "A"}}`,
			msg:  "requires a collection mapping",
		},
		{
			name: "unknown referenced property",
			src:  `entity: A: {table: "a", id: {name: "id", type: "long"}, attributes: x: {kind: "many_to_one", target: "A", columns: ["x_code"], references: "code"}}`,
			msg:  `target A has no attribute "code"`,
		},
		{
			name: "unknown embeddable",
			src:  `entity: A: {table: "a", id: {name: "id", embeddable: "Key"}}`,
			msg:  `unknown embeddable "Key"`,
		},
		{
			name: "enum with fields",
			src:  `class: E: {enum: ["X"], fields: y: {type: "integer", value: 1}}`,
			msg:  "an enum declares constants",
		},
		{
			name: "integer out of range",
			src:  `class: K: fields: big: {type: "integer", value: 3000000000}`,
			msg:  "out of range",
		},
		{
			name: "character too long",
			src:  `class: K: fields: c: {type: "character", value: "yes"}`,
			msg:  "single character",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadString(tc.src, "bad.cue")
			require.Error(t, err)
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestCompileSchema_ErrorPosition(t *testing.T) {
	_, err := LoadString(`entity: A: {
	table: "a"
	id: {name: "id", type: "long"}
	attributes: x: {type: "blob"}
}`, "pos.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "entity.A.attributes.x", ce.Field)
	assert.Equal(t, "pos.cue", ce.Pos.Filename())
	assert.Equal(t, 4, ce.Pos.Line())
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	empty := t.TempDir()
	_, err = LoadDir(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files")

	notDir := filepath.Join(empty, "file.cue")
	require.NoError(t, os.WriteFile(notDir, []byte(`entity: {}`), 0644))
	_, err = LoadDir(notDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
