package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/model"
)

func personGroup() *EntityTableGroup {
	return NewEntityTableGroup(model.NewEntity("Person", "person"), "p1", &TableReference{Table: "person", Alias: "p1_0"})
}

func col(q, c string) *ColumnReference {
	return &ColumnReference{Qualifier: q, Column: c, Type: model.Long}
}

func TestValidate_WellFormedSelect(t *testing.T) {
	p := personGroup()
	c := NewEntityTableGroup(model.NewEntity("Company", "company"), "c1", &TableReference{Table: "company", Alias: "c1_0"})
	stmt := &SelectStatement{
		Query: &QuerySpec{
			Selection: []*SelectItem{{Expr: col("p1_0", "id")}},
			From: &FromClause{Spaces: []*TableSpace{{
				Root: p,
				Joins: []*TableGroupJoin{{
					Type:      JoinInner,
					Group:     c,
					Predicate: &Comparison{Op: Equal, Left: col("c1_0", "id"), Right: col("p1_0", "employer_id")},
				}},
			}}},
			Where: &Comparison{Op: Equal, Left: col("p1_0", "id"), Right: &Parameter{Name: "id", Types: []*model.BasicType{model.Long}}},
		},
		OrderBy: []*SortSpecification{{Expr: col("c1_0", "id")}},
	}

	result := Validate(stmt)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_Problems(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(q *QuerySpec)
		problem string
	}{
		{
			name: "comparison arity",
			mutate: func(q *QuerySpec) {
				q.Where = &Comparison{
					Left:  &Tuple{Items: []Expression{col("p1_0", "a"), col("p1_0", "b")}},
					Right: &Parameter{Types: []*model.BasicType{model.String}},
				}
			},
			problem: "comparison arity mismatch: 2 vs 1",
		},
		{
			name: "unknown qualifier",
			mutate: func(q *QuerySpec) {
				q.Selection = append(q.Selection, &SelectItem{Expr: col("x9_0", "id")})
			},
			problem: `references unknown alias "x9_0"`,
		},
		{
			name: "join without predicate",
			mutate: func(q *QuerySpec) {
				q.From.Spaces[0].Joins = append(q.From.Spaces[0].Joins, &TableGroupJoin{
					Type:  JoinLeft,
					Group: NewEntityTableGroup(model.NewEntity("Company", "company"), "c1", &TableReference{Table: "company", Alias: "c1_0"}),
				})
			},
			problem: "left join to company has no predicate",
		},
		{
			name: "empty junction",
			mutate: func(q *QuerySpec) {
				q.Where = &Junction{Kind: Disjunction}
			},
			problem: "empty or junction",
		},
		{
			name: "duplicate alias",
			mutate: func(q *QuerySpec) {
				q.From.Spaces = append(q.From.Spaces, &TableSpace{Root: personGroup()})
			},
			problem: "duplicate table alias p1_0",
		},
		{
			name: "subquery arity",
			mutate: func(q *QuerySpec) {
				q.Where = &InSubquery{
					Expr: col("p1_0", "id"),
					Query: &QuerySpec{
						Selection: []*SelectItem{{Expr: col("p2_0", "a")}, {Expr: col("p2_0", "b")}},
						From:      &FromClause{Spaces: []*TableSpace{{Root: NewEntityTableGroup(nil, "p2", &TableReference{Table: "person", Alias: "p2_0"})}}},
					},
				}
			},
			problem: "in subquery arity mismatch: 1 vs 2",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := &QuerySpec{
				Selection: []*SelectItem{{Expr: col("p1_0", "id")}},
				From:      &FromClause{Spaces: []*TableSpace{{Root: personGroup()}}},
			}
			tc.mutate(q)

			result := Validate(&SelectStatement{Query: q})
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Problems)
			assert.Contains(t, result.Problems[0], tc.problem)
		})
	}
}

func TestValidate_CorrelatedSubquerySeesOuterAliases(t *testing.T) {
	inner := &QuerySpec{
		Selection: []*SelectItem{{Expr: &QueryLiteral{Value: int32(1), Type: model.Integer}}},
		From:      &FromClause{Spaces: []*TableSpace{{Root: NewEntityTableGroup(nil, "n1", &TableReference{Table: "person_nickname", Alias: "n1_0"})}}},
		Where:     &Comparison{Left: col("n1_0", "person_id"), Right: col("p1_0", "id")},
	}
	stmt := &SelectStatement{Query: &QuerySpec{
		Selection: []*SelectItem{{Expr: col("p1_0", "id")}},
		From:      &FromClause{Spaces: []*TableSpace{{Root: personGroup()}}},
		Where:     &Exists{Query: inner, Negated: true},
	}}
	assert.True(t, Validate(stmt).Valid)

	// The inner alias is not visible to the outer query.
	stmt.Query.Selection = append(stmt.Query.Selection, &SelectItem{Expr: col("n1_0", "nickname")})
	assert.False(t, Validate(stmt).Valid)
}

func TestValidate_DML(t *testing.T) {
	upd := &UpdateStatement{
		Table: &TableReference{Table: "person"},
		Assignments: []*Assignment{{
			Columns: []*ColumnReference{col("", "street"), col("", "city")},
			Value:   &Parameter{Types: []*model.BasicType{model.String}},
		}},
	}
	result := Validate(upd)
	require.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], "assignment of 2 columns from a 1 column value")

	del := &DeleteStatement{
		Table: &TableReference{Table: "person"},
		Where: &Nullness{Expr: col("", "name")},
	}
	assert.True(t, Validate(del).Valid)
}

func TestValidate_DMLSubqueryCorrelation(t *testing.T) {
	phones := func(owner *ColumnReference) *Exists {
		return &Exists{Negated: true, Query: &QuerySpec{
			Selection: []*SelectItem{{Expr: &QueryLiteral{Value: int32(1), Type: model.Integer}}},
			From: &FromClause{Spaces: []*TableSpace{{
				Root: NewEntityTableGroup(model.NewEntity("Phone", "phone"), "p1", &TableReference{Table: "phone", Alias: "p1_0"}),
			}}},
			Where: &Comparison{Left: col("p1_0", "person_id"), Right: owner},
		}}
	}

	del := &DeleteStatement{Table: &TableReference{Table: "person"}, Where: phones(col("person", "id"))}
	assert.True(t, Validate(del).Valid)

	// An unqualified id would bind to phone.id.
	del.Where = phones(col("", "id"))
	result := Validate(del)
	require.False(t, result.Valid)
	assert.Equal(t, []string{"column id is unqualified inside a subquery"}, result.Problems)

	del.Where = phones(col("company", "id"))
	result = Validate(del)
	require.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], `unknown alias "company"`)
}

func TestJunction_Flattens(t *testing.T) {
	a := &Comparison{Left: col("p", "a"), Right: col("p", "b")}
	b := &Nullness{Expr: col("p", "c")}
	c := &Nullness{Expr: col("p", "d")}

	j := Conjoin(a, nil, Conjoin(b, c))
	junction, ok := j.(*Junction)
	require.True(t, ok)
	assert.Equal(t, []Predicate{a, b, c}, junction.Predicates)

	assert.Nil(t, Conjoin(nil, nil))
	assert.Same(t, a, Conjoin(a))
}

func TestTableGroup_Lookup(t *testing.T) {
	g := personGroup()
	emp := &TableReference{Table: "employee", Alias: "p1_1"}
	g.AddTableJoin(&TableJoin{Type: JoinLeft, Table: emp, Predicate: &Comparison{Left: col("p1_1", "id"), Right: col("p1_0", "id")}})

	assert.Same(t, emp, g.Table("employee"))
	assert.Same(t, g.Root(), g.Table("person"))
	assert.Nil(t, g.Table("company"))
	assert.Equal(t, []*TableReference{g.Root(), emp}, References(g))
	assert.Equal(t, "left join", JoinLeft.Keyword())
}
