package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
)

// Renderer turns one SQL AST statement into SQL text and binders in a
// single depth-first pass.
//
// Two contexts change how values render. Inside a select list, query
// literals are inlined through the dialect; everywhere else they become
// literal binders. Inside a predicate, multi-column values are
// parenthesized; elsewhere they render as a bare column list.
//
// A Renderer owns its buffer and binder list and must not be shared between
// compilations.
type Renderer struct {
	dialect Dialect
	sb      *strings.Builder
	binders []*Binder

	inPredicate bool
	inSelect    bool
}

// NewRenderer creates a renderer for d. A nil dialect renders SQLite.
func NewRenderer(d Dialect) *Renderer {
	if d == nil {
		d = SQLite
	}
	return &Renderer{dialect: d, sb: &strings.Builder{}}
}

// Render renders stmt with a fresh renderer.
func Render(stmt sqlast.Statement, d Dialect) (*Result, error) {
	return NewRenderer(d).Render(stmt)
}

// Render renders stmt. Node kinds the renderer does not know fail with a
// not-yet-implemented error rather than producing partial SQL.
func (r *Renderer) Render(stmt sqlast.Statement) (*Result, error) {
	r.sb.Reset()
	r.binders = nil
	r.inPredicate, r.inSelect = false, false

	var err error
	switch s := stmt.(type) {
	case *sqlast.SelectStatement:
		err = r.selectStatement(s)
	case *sqlast.UpdateStatement:
		err = r.updateStatement(s)
	case *sqlast.DeleteStatement:
		err = r.deleteStatement(s)
	case nil:
		err = qerr.Invariant("cannot render nil statement")
	default:
		err = qerr.NotYetImplemented(fmt.Sprintf("rendering of %T", stmt))
	}
	if err != nil {
		return nil, err
	}
	return &Result{SQL: r.sb.String(), Binders: r.binders}, nil
}

func (r *Renderer) write(s string) { r.sb.WriteString(s) }

// capture renders fn into a separate buffer and returns the text. Binders
// registered by fn keep their emission order.
func (r *Renderer) capture(fn func() error) (string, error) {
	prev := r.sb
	r.sb = &strings.Builder{}
	defer func() { r.sb = prev }()
	if err := fn(); err != nil {
		return "", err
	}
	return r.sb.String(), nil
}

func (r *Renderer) selectStatement(s *sqlast.SelectStatement) error {
	if err := r.querySpec(s.Query); err != nil {
		return err
	}
	if len(s.OrderBy) == 0 {
		return nil
	}
	r.write(" order by ")
	for i, item := range s.OrderBy {
		if i > 0 {
			r.write(",")
		}
		if err := r.expression(item.Expr); err != nil {
			return err
		}
		if item.Collation != "" {
			r.write(" collate " + item.Collation)
		}
		switch item.Direction {
		case sqlast.SortAscending:
			r.write(" asc")
		case sqlast.SortDescending:
			r.write(" desc")
		}
	}
	return nil
}

// querySpec renders a select-from-where block. Contexts are reset for the
// block and restored afterwards so nested queries render like top-level
// ones.
func (r *Renderer) querySpec(q *sqlast.QuerySpec) error {
	if q == nil {
		return qerr.Invariant("cannot render nil query spec")
	}
	if len(q.Selection) == 0 {
		return qerr.Invariant("query spec has an empty select list")
	}
	prevPred, prevSel := r.inPredicate, r.inSelect
	defer func() { r.inPredicate, r.inSelect = prevPred, prevSel }()

	r.write("select ")
	if q.Distinct {
		r.write("distinct ")
	}
	r.inPredicate, r.inSelect = false, true
	for i, item := range q.Selection {
		if i > 0 {
			r.write(",")
		}
		if err := r.expression(item.Expr); err != nil {
			return err
		}
	}
	r.inSelect = false

	r.write(" from ")
	if err := r.fromClause(q.From); err != nil {
		return err
	}
	if q.Where != nil {
		r.write(" where ")
		if err := r.predicate(q.Where); err != nil {
			return err
		}
	}
	return nil
}

// fromClause renders table spaces in declared order separated by commas.
// Within a space the root group comes first, then each joined group.
func (r *Renderer) fromClause(fc *sqlast.FromClause) error {
	if fc == nil || len(fc.Spaces) == 0 {
		return qerr.Invariant("query spec has an empty from clause")
	}
	for i, ts := range fc.Spaces {
		if i > 0 {
			r.write(", ")
		}
		if err := r.group(ts.Root); err != nil {
			return err
		}
		for _, j := range ts.Joins {
			if err := r.groupJoin(j); err != nil {
				return err
			}
		}
	}
	return nil
}

// group renders a table group's root table followed by its table joins.
func (r *Renderer) group(g sqlast.TableGroup) error {
	r.tableReference(g.Root())
	return r.tableJoins(g)
}

func (r *Renderer) tableJoins(g sqlast.TableGroup) error {
	for _, tj := range g.TableJoins() {
		r.write(" " + tj.Type.Keyword() + " ")
		r.tableReference(tj.Table)
		if tj.Predicate != nil {
			r.write(" on ")
			if err := r.predicate(tj.Predicate); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) tableReference(t *sqlast.TableReference) {
	r.write(t.Table)
	if t.Alias != "" {
		r.write(" " + t.Alias)
	}
}

// groupJoin renders one joined table group. An outer-joined group whose own
// tables are inner joined is nested in parentheses so that the inner joins
// cannot drop rows of the outer join.
func (r *Renderer) groupJoin(j *sqlast.TableGroupJoin) error {
	r.write(" " + j.Type.Keyword() + " ")
	nested := j.Type == sqlast.JoinLeft && hasInnerTableJoin(j.Group)
	if nested {
		r.write("(")
		if err := r.group(j.Group); err != nil {
			return err
		}
		r.write(")")
	} else {
		r.tableReference(j.Group.Root())
	}
	if j.Predicate != nil {
		r.write(" on ")
		if err := r.predicate(j.Predicate); err != nil {
			return err
		}
	}
	if nested {
		return nil
	}
	return r.tableJoins(j.Group)
}

func hasInnerTableJoin(g sqlast.TableGroup) bool {
	for _, tj := range g.TableJoins() {
		if tj.Type == sqlast.JoinInner {
			return true
		}
	}
	return false
}

func (r *Renderer) updateStatement(s *sqlast.UpdateStatement) error {
	if len(s.Assignments) == 0 {
		return qerr.Invariant("update has no assignments")
	}
	r.write("update ")
	r.tableReference(s.Table)
	r.write(" set ")
	first := true
	for _, a := range s.Assignments {
		pairs, err := assignmentPairs(a)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			if !first {
				r.write(",")
			}
			first = false
			r.column(p.column)
			r.write("=")
			if err := p.render(r); err != nil {
				return err
			}
		}
	}
	return r.where(s.Where)
}

func (r *Renderer) deleteStatement(s *sqlast.DeleteStatement) error {
	r.write("delete from ")
	r.tableReference(s.Table)
	return r.where(s.Where)
}

func (r *Renderer) where(p sqlast.Predicate) error {
	if p == nil {
		return nil
	}
	r.write(" where ")
	return r.predicate(p)
}

type assignmentPair struct {
	column *sqlast.ColumnReference
	render func(*Renderer) error
}

// assignmentPairs splits an assignment into column=value pairs. A
// multi-column value must be a tuple or a parameter.
func assignmentPairs(a *sqlast.Assignment) ([]assignmentPair, error) {
	if len(a.Columns) == 1 {
		return []assignmentPair{{a.Columns[0], func(r *Renderer) error { return r.expression(a.Value) }}}, nil
	}
	out := make([]assignmentPair, len(a.Columns))
	switch v := a.Value.(type) {
	case *sqlast.Tuple:
		if len(v.Items) != len(a.Columns) {
			return nil, qerr.Invariant("assignment of %d columns from %d values", len(a.Columns), len(v.Items))
		}
		for i, c := range a.Columns {
			item := v.Items[i]
			out[i] = assignmentPair{c, func(r *Renderer) error { return r.expression(item) }}
		}
	case *sqlast.Parameter:
		if v.ColumnSpan() != len(a.Columns) {
			return nil, qerr.Invariant("assignment of %d columns from a %d column parameter", len(a.Columns), v.ColumnSpan())
		}
		for i, c := range a.Columns {
			col := i
			out[i] = assignmentPair{c, func(r *Renderer) error { r.parameter(v, col); return nil }}
		}
	default:
		return nil, qerr.NotYetImplemented(fmt.Sprintf("multi-column assignment from %T", a.Value))
	}
	return out, nil
}

// predicate renders p in predicate context.
func (r *Renderer) predicate(p sqlast.Predicate) error {
	prev := r.inPredicate
	r.inPredicate = true
	defer func() { r.inPredicate = prev }()

	switch p := p.(type) {
	case *sqlast.Junction:
		if len(p.Predicates) == 0 {
			return qerr.Invariant("cannot render empty %s junction", p.Kind.Keyword())
		}
		for i, child := range p.Predicates {
			if i > 0 {
				r.write(" " + p.Kind.Keyword() + " ")
			}
			// A junction of the other kind binds looser and needs parentheses.
			if cj, ok := child.(*sqlast.Junction); ok && cj.Kind != p.Kind {
				r.write("(")
				if err := r.predicate(child); err != nil {
					return err
				}
				r.write(")")
				continue
			}
			if err := r.predicate(child); err != nil {
				return err
			}
		}
		return nil

	case *sqlast.Grouped:
		r.write("(")
		if err := r.predicate(p.Predicate); err != nil {
			return err
		}
		r.write(")")
		return nil

	case *sqlast.Negated:
		r.write("not(")
		if err := r.predicate(p.Predicate); err != nil {
			return err
		}
		r.write(")")
		return nil

	case *sqlast.Comparison:
		if err := r.expression(p.Left); err != nil {
			return err
		}
		r.write(p.Op.String())
		return r.expression(p.Right)

	case *sqlast.Between:
		if err := r.expression(p.Expr); err != nil {
			return err
		}
		r.write(negate(" between ", " not between ", p.Negated))
		if err := r.expression(p.Low); err != nil {
			return err
		}
		r.write(" and ")
		return r.expression(p.High)

	case *sqlast.Like:
		if err := r.expression(p.Expr); err != nil {
			return err
		}
		r.write(negate(" like ", " not like ", p.Negated))
		if err := r.expression(p.Pattern); err != nil {
			return err
		}
		if p.Escape != nil {
			r.write(" escape ")
			return r.expression(p.Escape)
		}
		return nil

	case *sqlast.Nullness:
		return r.nullness(p)

	case *sqlast.InList:
		// An empty list matches nothing.
		if len(p.List) == 0 {
			r.write(negate("1=0", "1=1", p.Negated))
			return nil
		}
		if err := r.expression(p.Expr); err != nil {
			return err
		}
		r.write(negate(" in (", " not in (", p.Negated))
		for i, item := range p.List {
			if i > 0 {
				r.write(",")
			}
			if err := r.expression(item); err != nil {
				return err
			}
		}
		r.write(")")
		return nil

	case *sqlast.InSubquery:
		if err := r.expression(p.Expr); err != nil {
			return err
		}
		r.write(negate(" in (", " not in (", p.Negated))
		if err := r.querySpec(p.Query); err != nil {
			return err
		}
		r.write(")")
		return nil

	case *sqlast.Exists:
		r.write(negate("exists(", "not exists(", p.Negated))
		if err := r.querySpec(p.Query); err != nil {
			return err
		}
		r.write(")")
		return nil
	}
	return qerr.NotYetImplemented(fmt.Sprintf("rendering of predicate %T", p))
}

// nullness tests every column of a tuple separately: all null for IS NULL,
// any non-null for IS NOT NULL.
func (r *Renderer) nullness(p *sqlast.Nullness) error {
	suffix := negate(" is null", " is not null", p.Negated)
	t, ok := p.Expr.(*sqlast.Tuple)
	if !ok {
		if err := r.expression(p.Expr); err != nil {
			return err
		}
		r.write(suffix)
		return nil
	}
	sep := negate(" and ", " or ", p.Negated)
	r.write("(")
	for i, item := range t.Items {
		if i > 0 {
			r.write(sep)
		}
		if err := r.expression(item); err != nil {
			return err
		}
		r.write(suffix)
	}
	r.write(")")
	return nil
}

func negate(plain, negated string, neg bool) string {
	if neg {
		return negated
	}
	return plain
}

func (r *Renderer) expression(e sqlast.Expression) error {
	switch e := e.(type) {
	case *sqlast.ColumnReference:
		r.column(e)
		return nil

	case *sqlast.Tuple:
		if r.inPredicate {
			r.write("(")
		}
		for i, item := range e.Items {
			if i > 0 {
				r.write(",")
			}
			if err := r.expression(item); err != nil {
				return err
			}
		}
		if r.inPredicate {
			r.write(")")
		}
		return nil

	case *sqlast.QueryLiteral:
		if r.inSelect {
			s, err := r.dialect.Literal(e.Value, e.Type)
			if err != nil {
				return qerr.NotYetImplemented(err.Error())
			}
			r.write(s)
			return nil
		}
		r.binders = append(r.binders, &Binder{Source: BindLiteral, Span: 1, Type: typeName(e.Type), Value: e.Value})
		r.write("?")
		return nil

	case *sqlast.Parameter:
		span := e.ColumnSpan()
		if span > 1 && r.inPredicate {
			r.write("(")
		}
		for i := 0; i < span; i++ {
			if i > 0 {
				r.write(",")
			}
			r.parameter(e, i)
		}
		if span > 1 && r.inPredicate {
			r.write(")")
		}
		return nil

	case *sqlast.UnaryOperation:
		r.write(e.Op)
		return r.operand(e.Operand)

	case *sqlast.BinaryArithmetic:
		if err := r.operand(e.Left); err != nil {
			return err
		}
		r.write(e.Op)
		return r.operand(e.Right)

	case *sqlast.Concat:
		if err := r.operand(e.Left); err != nil {
			return err
		}
		r.write("||")
		return r.operand(e.Right)

	case *sqlast.FunctionCall:
		return r.functionCall(e)

	case *sqlast.SimpleCase:
		r.write("case ")
		if err := r.expression(e.Operand); err != nil {
			return err
		}
		for _, w := range e.Whens {
			r.write(" when ")
			if err := r.expression(w.Value); err != nil {
				return err
			}
			r.write(" then ")
			if err := r.expression(w.Result); err != nil {
				return err
			}
		}
		return r.caseEnd(e.Else)

	case *sqlast.SearchedCase:
		r.write("case")
		for _, w := range e.Whens {
			r.write(" when ")
			if err := r.predicate(w.Condition); err != nil {
				return err
			}
			r.write(" then ")
			if err := r.expression(w.Result); err != nil {
				return err
			}
		}
		return r.caseEnd(e.Else)

	case *sqlast.Subquery:
		r.write("(")
		if err := r.querySpec(e.Query); err != nil {
			return err
		}
		r.write(")")
		return nil
	}
	return qerr.NotYetImplemented(fmt.Sprintf("rendering of expression %T", e))
}

func (r *Renderer) column(c *sqlast.ColumnReference) {
	if c.Qualifier != "" {
		r.write(c.Qualifier + ".")
	}
	r.write(c.Column)
}

// parameter registers the binder for column i of p and emits its
// placeholder.
func (r *Renderer) parameter(p *sqlast.Parameter, i int) {
	b := &Binder{Column: i, Span: p.ColumnSpan()}
	if i < len(p.Types) {
		b.Type = typeName(p.Types[i])
	}
	switch p.Source {
	case sqlast.ParameterNamed:
		b.Source, b.Name = BindNamed, p.Name
	case sqlast.ParameterPositional:
		b.Source, b.Position = BindPositional, p.Position
	}
	r.binders = append(r.binders, b)
	r.write("?")
}

// operand renders an arithmetic operand, parenthesizing nested operations.
func (r *Renderer) operand(e sqlast.Expression) error {
	switch e.(type) {
	case *sqlast.BinaryArithmetic, *sqlast.Concat:
		r.write("(")
		if err := r.expression(e); err != nil {
			return err
		}
		r.write(")")
		return nil
	}
	return r.expression(e)
}

func (r *Renderer) functionCall(f *sqlast.FunctionCall) error {
	if f.Star {
		r.write(f.Name + "(*)")
		return nil
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		if n := a.ColumnSpan(); n > 1 {
			return qerr.NotYetImplemented(fmt.Sprintf("%s over a %d column argument", f.Name, n))
		}
		s, err := r.capture(func() error { return r.expression(a) })
		if err != nil {
			return err
		}
		args[i] = s
	}
	if !f.Distinct {
		if s, ok := r.dialect.Function(f.Name, args); ok {
			r.write(s)
			return nil
		}
	}
	r.write(f.Name + "(")
	if f.Distinct {
		r.write("distinct ")
	}
	r.write(strings.Join(args, ","))
	r.write(")")
	return nil
}

func (r *Renderer) caseEnd(els sqlast.Expression) error {
	if els != nil {
		r.write(" else ")
		if err := r.expression(els); err != nil {
			return err
		}
	}
	r.write(" end")
	return nil
}

func typeName(t *model.BasicType) string {
	if t == nil {
		return ""
	}
	return t.Name
}
