package querysql

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/semantic"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqlgen"
	"github.com/roach88/oqlc/internal/testutil"
)

// compile runs a parse-tree document through the whole pipeline.
func compile(t *testing.T, doc string, d Dialect) *Result {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tree, err := parsetree.Decode([]byte(doc))
	require.NoError(t, err)
	stmt, err := semantic.Analyze(tree, semantic.Options{
		Metamodel: testutil.Catalog(),
		Symbols:   testutil.Symbols(),
		Logger:    logger,
	})
	require.NoError(t, err)
	lowered, err := sqlgen.Lower(stmt, logger)
	require.NoError(t, err)
	res, err := Render(lowered, d)
	require.NoError(t, err)
	return res
}

func TestRender_Statements(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		sql  string
	}{
		{
			name: "inferred entity selection",
			doc:  "from: [{root: {entity: Company, alias: c}}]",
			sql:  "select c1_0.id,c1_0.name,c1_0.reg_no from company c1_0",
		},
		{
			name: "joined subclass",
			doc:  "select: {items: [{expr: {path: p.name}}]}\nfrom: [{root: {entity: Person, alias: p}}]",
			sql:  "select p1_0.name from person p1_0 left join employee p1_1 on p1_1.id=p1_0.id",
		},
		{
			name: "two spaces",
			doc: `
select: {items: [{expr: {path: x.label}}, {expr: {path: c.name}}]}
from: [{root: {entity: Parcel, alias: x}}, {root: {entity: Company, alias: c}}]
`,
			sql: "select p1_0.label,c1_0.name from parcel p1_0, company c1_0",
		},
		{
			name: "association joins",
			doc: `
select: {items: [{expr: {path: x.label}}]}
from:
  - root: {entity: Parcel, alias: x}
    joins: [{join: x.shipment, alias: s, type: left}]
`,
			sql: "select p1_0.label from parcel p1_0 left join shipment s1_0 on s1_0.order_no=p1_0.shipment_order_no and s1_0.line_no=p1_0.shipment_line_no",
		},
		{
			name: "outer join of a group with inner table joins nests",
			doc: `
select: {items: [{expr: {path: p.name}}]}
from:
  - root: {entity: Person, alias: p}
    joins: [{join: p.projects, alias: pr, type: left}]
`,
			sql: "select p1_0.name from person p1_0 left join employee p1_1 on p1_1.id=p1_0.id" +
				" left join (person_project p2_0 join project p2_1 on p2_1.id=p2_0.project_id) on p2_0.person_id=p1_0.id",
		},
		{
			name: "is empty",
			doc: `
select: {items: [{expr: {path: p.name}}]}
from: [{root: {entity: Person, alias: p}}]
where: {is_empty: {path: p.phones}}
`,
			sql: "select p1_0.name from person p1_0 left join employee p1_1 on p1_1.id=p1_0.id" +
				" where not exists(select 1 from phone p2_0 where p2_0.person_id=p1_0.id)",
		},
		{
			name: "junction precedence",
			doc: `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
where:
  and:
    - eq: [{path: c.name}, {param: a}]
    - or:
        - is_null: {path: c.regNo}
        - eq: [{path: c.id}, {param: b}]
`,
			sql: "select c1_0.name from company c1_0 where c1_0.name=? and (c1_0.reg_no is null or c1_0.id=?)",
		},
		{
			name: "order by",
			doc: `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
order_by:
  - {expr: {path: c.name}, collate: nocase, direction: desc}
  - {expr: {path: c.id}}
`,
			sql: "select c1_0.name from company c1_0 order by c1_0.name collate nocase desc,c1_0.id",
		},
		{
			name: "in list",
			doc: `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
where: {in: {expr: {path: c.id}, list: [{pos: 1}, {pos: 2}], not: true}}
`,
			sql: "select c1_0.name from company c1_0 where c1_0.id not in (?,?)",
		},
		{
			name: "update",
			doc:  "update: {entity: Person, alias: p, set: [{path: p.address, value: {param: addr}}], where: {eq: [{path: p.id}, {pos: 1}]}}",
			sql:  "update person set street=?,city=? where id=?",
		},
		{
			name: "delete",
			doc:  "delete: {entity: Company, where: {is_null: {path: name}}}",
			sql:  "delete from company where name is null",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := compile(t, tc.doc, SQLite)
			assert.Equal(t, tc.sql, res.SQL)
			assert.Equal(t, strings.Count(res.SQL, "?"), len(res.Binders))
		})
	}
}

func TestRender_SingleEqualityRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		span int
	}{
		{
			name: "single column",
			doc:  "select: {items: [{expr: {path: c.name}}]}\nfrom: [{root: {entity: Company, alias: c}}]\nwhere: {eq: [{path: c.id}, {param: id}]}",
			span: 1,
		},
		{
			name: "composite column",
			doc:  "select: {items: [{expr: {path: x.label}}]}\nfrom: [{root: {entity: Parcel, alias: x}}]\nwhere: {eq: [{path: x.shipment}, {param: key}]}",
			span: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := compile(t, tc.doc, SQLite)
			assert.Equal(t, 1, strings.Count(res.SQL, " where "))
			assert.Equal(t, 1, strings.Count(res.SQL, "="))
			assert.Equal(t, tc.span, strings.Count(res.SQL, "?"))
			require.Len(t, res.Binders, tc.span)
			for i, b := range res.Binders {
				assert.Equal(t, BindNamed, b.Source)
				assert.Equal(t, i, b.Column)
				assert.Equal(t, tc.span, b.Span)
			}
		})
	}

	res := compile(t, "select: {items: [{expr: {path: x.label}}]}\nfrom: [{root: {entity: Parcel, alias: x}}]\nwhere: {eq: [{path: x.shipment}, {param: key}]}", SQLite)
	assert.Equal(t, "select p1_0.label from parcel p1_0 where (p1_0.shipment_order_no,p1_0.shipment_line_no)=(?,?)", res.SQL)
	assert.Equal(t, []string{"long", "integer"}, []string{res.Binders[0].Type, res.Binders[1].Type})
}

func TestRender_LiteralsInlineOnlyInSelect(t *testing.T) {
	res := compile(t, `
select: {items: [{expr: {string: acme}}, {expr: {true: ~}}, {expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
where: {eq: [{path: c.name}, {string: acme}]}
`, SQLite)
	assert.Equal(t, "select 'acme',1,c1_0.name from company c1_0 where c1_0.name=?", res.SQL)
	require.Len(t, res.Binders, 1)
	assert.Equal(t, &Binder{Source: BindLiteral, Span: 1, Type: "string", Value: "acme"}, res.Binders[0])
}

func TestRender_DialectFunctions(t *testing.T) {
	doc := "select: {items: [{expr: {mod: [{path: c.id}, {int: \"7\"}]}}, {expr: {false: ~}}]}\nfrom: [{root: {entity: Company, alias: c}}]"

	assert.Equal(t, "select (c1_0.id%7),0 from company c1_0", compile(t, doc, SQLite).SQL)
	assert.Equal(t, "select mod(c1_0.id,7),false from company c1_0", compile(t, doc, ANSI).SQL)
}

func TestRender_SubqueryContexts(t *testing.T) {
	res := compile(t, `
select: {items: [{expr: {path: p.name}}]}
from: [{root: {entity: Person, alias: p}}]
where:
  in_subquery:
    expr: {path: p.address}
    query:
      select: {items: [{expr: {path: q.address}}]}
      from: [{root: {entity: Person, alias: q}}]
      where: {eq: [{path: q.name}, {string: x}]}
`, SQLite)
	assert.Equal(t, "select p1_0.name from person p1_0 left join employee p1_1 on p1_1.id=p1_0.id"+
		" where (p1_0.street,p1_0.city) in (select p2_0.street,p2_0.city from person p2_0"+
		" left join employee p2_1 on p2_1.id=p2_0.id where p2_0.name=?)", res.SQL)
	require.Len(t, res.Binders, 1)
	assert.Equal(t, BindLiteral, res.Binders[0].Source)
}

func TestRender_Expressions(t *testing.T) {
	col := func(c string) *sqlast.ColumnReference { return &sqlast.ColumnReference{Qualifier: "t1_0", Column: c} }
	lit := func(v any, t *model.BasicType) *sqlast.QueryLiteral { return &sqlast.QueryLiteral{Value: v, Type: t} }

	testCases := []struct {
		name string
		expr sqlast.Expression
		want string
	}{
		{
			name: "nested arithmetic keeps grouping",
			expr: &sqlast.BinaryArithmetic{Op: "-", Left: col("a"), Right: &sqlast.BinaryArithmetic{Op: "-", Left: col("b"), Right: col("c")}},
			want: "t1_0.a-(t1_0.b-t1_0.c)",
		},
		{
			name: "unary",
			expr: &sqlast.UnaryOperation{Op: "-", Operand: col("a")},
			want: "-t1_0.a",
		},
		{
			name: "concat",
			expr: &sqlast.Concat{Left: col("a"), Right: lit("x", model.String)},
			want: "t1_0.a||'x'",
		},
		{
			name: "count star",
			expr: &sqlast.FunctionCall{Name: "count", Star: true},
			want: "count(*)",
		},
		{
			name: "count distinct",
			expr: &sqlast.FunctionCall{Name: "count", Distinct: true, Args: []sqlast.Expression{col("a")}},
			want: "count(distinct t1_0.a)",
		},
		{
			name: "simple case",
			expr: &sqlast.SimpleCase{
				Operand: col("a"),
				Whens:   []*sqlast.SimpleWhen{{Value: lit(int32(1), model.Integer), Result: lit("one", model.String)}},
				Else:    lit(nil, model.String),
			},
			want: "case t1_0.a when 1 then 'one' else null end",
		},
		{
			name: "searched case",
			expr: &sqlast.SearchedCase{
				Whens: []*sqlast.SearchedWhen{{
					Condition: &sqlast.Nullness{Expr: col("a")},
					Result:    lit('y', model.Character),
				}},
			},
			want: "case when t1_0.a is null then 'y' end",
		},
		{
			name: "literal kinds",
			expr: &sqlast.Tuple{Items: []sqlast.Expression{
				lit(int64(10), model.Long),
				lit(2.5, model.Double),
				lit("it's", model.String),
			}},
			want: "10,2.5,'it''s'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := &sqlast.SelectStatement{Query: &sqlast.QuerySpec{
				Selection: []*sqlast.SelectItem{{Expr: tc.expr}},
				From:      tableFrom("t", "t1_0"),
			}}
			res, err := Render(stmt, SQLite)
			require.NoError(t, err)
			assert.Equal(t, "select "+tc.want+" from t t1_0", res.SQL)
			assert.Empty(t, res.Binders)
		})
	}
}

func TestRender_Predicates(t *testing.T) {
	a := &sqlast.ColumnReference{Qualifier: "t1_0", Column: "a"}
	b := &sqlast.ColumnReference{Qualifier: "t1_0", Column: "b"}
	pair := &sqlast.Tuple{Items: []sqlast.Expression{a, b}}
	param := &sqlast.Parameter{Source: sqlast.ParameterNamed, Name: "p", Types: []*model.BasicType{model.String}}

	testCases := []struct {
		name    string
		pred    sqlast.Predicate
		want    string
		binders int
	}{
		{
			name:    "between",
			pred:    &sqlast.Between{Expr: a, Low: param, High: param, Negated: true},
			want:    "t1_0.a not between ? and ?",
			binders: 2,
		},
		{
			name:    "like with escape",
			pred:    &sqlast.Like{Expr: a, Pattern: param, Escape: &sqlast.QueryLiteral{Value: "!", Type: model.String}},
			want:    "t1_0.a like ? escape ?",
			binders: 2,
		},
		{
			name: "grouped and negated",
			pred: &sqlast.Negated{Predicate: &sqlast.Grouped{Predicate: &sqlast.Comparison{Op: sqlast.NotEqual, Left: a, Right: b}}},
			want: "not((t1_0.a<>t1_0.b))",
		},
		{
			name: "composite is null",
			pred: &sqlast.Nullness{Expr: pair},
			want: "(t1_0.a is null and t1_0.b is null)",
		},
		{
			name: "composite is not null",
			pred: &sqlast.Nullness{Expr: pair, Negated: true},
			want: "(t1_0.a is not null or t1_0.b is not null)",
		},
		{
			name: "empty in list",
			pred: &sqlast.InList{Expr: a},
			want: "1=0",
		},
		{
			name: "empty not in list",
			pred: &sqlast.InList{Expr: a, Negated: true},
			want: "1=1",
		},
		{
			name: "nested junctions",
			pred: &sqlast.Junction{Kind: sqlast.Disjunction, Predicates: []sqlast.Predicate{
				&sqlast.Junction{Kind: sqlast.Conjunction, Predicates: []sqlast.Predicate{
					&sqlast.Nullness{Expr: a}, &sqlast.Nullness{Expr: b},
				}},
				&sqlast.Comparison{Op: sqlast.GreaterThan, Left: a, Right: b},
			}},
			want: "(t1_0.a is null and t1_0.b is null) or t1_0.a>t1_0.b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := &sqlast.DeleteStatement{Table: &sqlast.TableReference{Table: "t", Alias: "t1_0"}, Where: tc.pred}
			res, err := Render(stmt, SQLite)
			require.NoError(t, err)
			assert.Equal(t, "delete from t t1_0 where "+tc.want, res.SQL)
			assert.Len(t, res.Binders, tc.binders)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	doc := `
select: {items: [{expr: {path: p.name}}, {expr: {path: c.name}}]}
from:
  - root: {entity: Person, alias: p}
    joins: [{join: p.employer, alias: c, type: left}]
where: {and: [{eq: [{path: p.age}, {pos: 1}]}, {like: {expr: {path: c.name}, pattern: {param: pat}}}]}
`
	first := compile(t, doc, SQLite)
	second := compile(t, doc, SQLite)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, first.Binders, second.Binders)
	assert.Equal(t, []BinderSource{BindPositional, BindNamed}, []BinderSource{first.Binders[0].Source, first.Binders[1].Source})
}

func TestRender_FailsFast(t *testing.T) {
	_, err := Render(nil, SQLite)
	assert.True(t, qerr.IsInvariant(err))

	stmt := &sqlast.SelectStatement{Query: &sqlast.QuerySpec{
		Selection: []*sqlast.SelectItem{{Expr: &sqlast.ColumnReference{Qualifier: "t1_0", Column: "a"}}},
		From:      tableFrom("t", "t1_0"),
		Where:     &sqlast.Comparison{Op: sqlast.Equal},
	}}
	_, err = Render(stmt, SQLite)
	assert.True(t, qerr.IsNotYetImplemented(err))

	empty := &sqlast.SelectStatement{Query: &sqlast.QuerySpec{From: tableFrom("t", "t1_0")}}
	_, err = Render(empty, SQLite)
	assert.True(t, qerr.IsInvariant(err))

	odd := &sqlast.SelectStatement{Query: &sqlast.QuerySpec{
		Selection: []*sqlast.SelectItem{{Expr: &sqlast.QueryLiteral{Value: struct{}{}}}},
		From:      tableFrom("t", "t1_0"),
	}}
	_, err = Render(odd, SQLite)
	assert.True(t, qerr.IsNotYetImplemented(err))

	pair := &sqlast.SelectStatement{Query: &sqlast.QuerySpec{
		Selection: []*sqlast.SelectItem{{Expr: &sqlast.FunctionCall{Name: "count", Distinct: true, Args: []sqlast.Expression{
			&sqlast.Tuple{Items: []sqlast.Expression{
				&sqlast.ColumnReference{Qualifier: "t1_0", Column: "a"},
				&sqlast.ColumnReference{Qualifier: "t1_0", Column: "b"},
			}},
		}}}},
		From: tableFrom("t", "t1_0"),
	}}
	_, err = Render(pair, SQLite)
	assert.True(t, qerr.IsNotYetImplemented(err))
}

func TestRender_CompositeFunctionArgument(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tree, err := parsetree.Decode([]byte(`
select: {items: [{expr: {count: {distinct: true, arg: {path: x.shipment}}}}]}
from: [{root: {entity: Parcel, alias: x}}]
`))
	require.NoError(t, err)
	stmt, err := semantic.Analyze(tree, semantic.Options{
		Metamodel: testutil.Catalog(),
		Symbols:   testutil.Symbols(),
		Logger:    logger,
	})
	require.NoError(t, err)
	lowered, err := sqlgen.Lower(stmt, logger)
	require.NoError(t, err)

	_, err = Render(lowered, SQLite)
	require.Error(t, err)
	assert.True(t, qerr.IsNotYetImplemented(err), "unexpected error: %v", err)
	assert.Contains(t, err.Error(), "count over a 2 column argument")
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("SQLite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = DialectByName("ansi")
	require.NoError(t, err)
	assert.Equal(t, "ansi", d.Name())

	_, err = DialectByName("oracle")
	assert.Error(t, err)
}

func tableFrom(table, alias string) *sqlast.FromClause {
	root := &sqlast.TableReference{Table: table, Alias: alias}
	return &sqlast.FromClause{Spaces: []*sqlast.TableSpace{{Root: sqlast.NewEntityTableGroup(nil, alias[:2], root)}}}
}
