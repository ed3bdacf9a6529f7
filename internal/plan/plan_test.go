package plan

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/querysql"
	"github.com/roach88/oqlc/internal/sqlast"
)

func companyByID() (*sqlast.SelectStatement, *querysql.Result) {
	ref := &sqlast.TableReference{Table: "company", Alias: "c1_0"}
	stmt := &sqlast.SelectStatement{
		Query: &sqlast.QuerySpec{
			Selection: []*sqlast.SelectItem{{Expr: &sqlast.ColumnReference{Qualifier: "c1_0", Column: "name"}}},
			From:      &sqlast.FromClause{Spaces: []*sqlast.TableSpace{{Root: sqlast.NewEntityTableGroup(nil, "c1", ref)}}},
			Where: &sqlast.Comparison{
				Op:    sqlast.Equal,
				Left:  &sqlast.ColumnReference{Qualifier: "c1_0", Column: "id"},
				Right: &sqlast.Parameter{Source: sqlast.ParameterNamed, Name: "id", Types: []*model.BasicType{model.Long}},
			},
		},
		Returns: []*sqlast.Return{{Kind: sqlast.ReturnScalar, Type: "string", Columns: 1}},
	}
	res, err := querysql.Render(stmt, querysql.SQLite)
	if err != nil {
		panic(err)
	}
	return stmt, res
}

func TestNew(t *testing.T) {
	stmt, res := companyByID()
	p, err := New(stmt, res, querysql.SQLite)
	require.NoError(t, err)

	assert.Equal(t, "select c1_0.name from company c1_0 where c1_0.id=?", p.SQL)
	assert.Equal(t, "select", p.StatementType)
	assert.Equal(t, "sqlite", p.Dialect)
	assert.Equal(t, 1, p.Columns())

	del := &sqlast.DeleteStatement{Table: &sqlast.TableReference{Table: "company"}}
	dres, err := querysql.Render(del, querysql.ANSI)
	require.NoError(t, err)
	dp, err := New(del, dres, querysql.ANSI)
	require.NoError(t, err)
	assert.Equal(t, "delete", dp.StatementType)
	assert.NotNil(t, dp.Binders)
	assert.NotNil(t, dp.Returns)
}

func TestBind(t *testing.T) {
	p := &Plan{Binders: []*querysql.Binder{
		{Source: querysql.BindNamed, Name: "key", Column: 0, Span: 2},
		{Source: querysql.BindNamed, Name: "key", Column: 1, Span: 2},
		{Source: querysql.BindPositional, Position: 1, Span: 1},
		{Source: querysql.BindLiteral, Span: 1, Type: "string", Value: "acme"},
		{Source: querysql.BindLiteral, Span: 1, Type: "character", Value: int32('y')},
		{Source: querysql.BindLiteral, Span: 1, Type: "integer", Value: int32(7)},
		{Source: querysql.BindLiteral, Span: 1, Type: "big_integer", Value: big.NewInt(12)},
	}}

	args, err := p.Bind(map[string]any{"key": []any{int64(10), 2}}, map[int]any{1: "x"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), 2, "x", "acme", "y", int64(7), "12"}, args)
}

func TestBind_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		binder     *querysql.Binder
		named      map[string]any
		positional map[int]any
		msg        string
	}{
		{
			name:   "missing named",
			binder: &querysql.Binder{Source: querysql.BindNamed, Name: "id", Span: 1},
			msg:    "no value for parameter :id",
		},
		{
			name:   "missing positional",
			binder: &querysql.Binder{Source: querysql.BindPositional, Position: 2, Span: 1},
			msg:    "no value for parameter ?2",
		},
		{
			name:   "composite given a scalar",
			binder: &querysql.Binder{Source: querysql.BindNamed, Name: "key", Span: 2},
			named:  map[string]any{"key": 10},
			msg:    "parameter spans 2 columns",
		},
		{
			name:   "composite of the wrong length",
			binder: &querysql.Binder{Source: querysql.BindNamed, Name: "key", Span: 2},
			named:  map[string]any{"key": []any{1, 2, 3}},
			msg:    "parameter spans 2 columns",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Plan{Binders: []*querysql.Binder{tc.binder}}
			_, err := p.Bind(tc.named, tc.positional)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestMarshalCanonical(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  string
	}{
		{"sorted keys", map[string]any{"zebra": 1, "alpha": 2, "beta": 3}, `{"alpha":2,"beta":3,"zebra":1}`},
		{"nested", map[string]any{"z": map[string]any{"b": 1, "a": 2}, "a": []any{true, nil}}, `{"a":[true,null],"z":{"a":2,"b":1}}`},
		{"utf16 key order", map[string]any{"\uE000": 1, "\U0001F600": 2}, "{\"\U0001F600\":2,\"\uE000\":1}"},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"decimal", decimal.RequireFromString("3.14"), `"3.14"`},
		{"float", 2.5, "2.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestFingerprint(t *testing.T) {
	stmt, res := companyByID()
	a, err := New(stmt, res, querysql.SQLite)
	require.NoError(t, err)

	stmt2, res2 := companyByID()
	b, err := New(stmt2, res2, querysql.SQLite)
	require.NoError(t, err)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	assert.Len(t, fa, 64)
	assert.Equal(t, fa, b.MustFingerprint())

	b.Dialect = "ansi"
	assert.NotEqual(t, fa, b.MustFingerprint())

	canonical, err := a.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"binders":[{"column":0,"name":"id","source":"named","span":1,"type":"long"}],`+
		`"dialect":"sqlite","returns":[{"columns":1,"kind":"scalar","type":"string"}],`+
		`"sql":"select c1_0.name from company c1_0 where c1_0.id=?","statement_type":"select"}`, string(canonical))
}

func TestHashWithDomain_Separates(t *testing.T) {
	assert.NotEqual(t, hashWithDomain("a", []byte("bc")), hashWithDomain("ab", []byte("c")))
	assert.Equal(t, hashWithDomain(DomainPlan, []byte("{}")), hashWithDomain(DomainPlan, []byte("{}")))
}
