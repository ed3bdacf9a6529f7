package sqlast

import "fmt"

// ValidationResult lists internal inconsistencies found in a lowered
// statement.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each inconsistency in traversal order.
	Problems []string
}

// Validate checks a lowered statement for defects that rendering would turn
// into invalid SQL:
//  1. comparison, in-list and in-subquery operands of different column span
//  2. column references qualified by an alias not visible in scope, and
//     unqualified column references inside a subquery
//  3. non-cross table group joins without a join predicate
//  4. empty junctions and select lists
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateStatement(stmt)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal. scopes holds the alias
// sets of the enclosing query specs, innermost last.
type validator struct {
	problems []string
	scopes   []map[string]bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *SelectStatement:
		v.validateQuery(s.Query, func() {
			for _, o := range s.OrderBy {
				v.validateExpression(o.Expr)
			}
		})
	case *UpdateStatement:
		v.scopes = append(v.scopes, targetScope(s.Table))
		for _, a := range s.Assignments {
			if len(a.Columns) != a.Value.ColumnSpan() {
				v.addProblem("assignment of %d columns from a %d column value", len(a.Columns), a.Value.ColumnSpan())
			}
			v.validateExpression(a.Value)
		}
		v.validatePredicate(s.Where)
	case *DeleteStatement:
		v.scopes = append(v.scopes, targetScope(s.Table))
		v.validatePredicate(s.Where)
	case nil:
		v.addProblem("nil statement")
	default:
		v.addProblem("unknown statement type %T", stmt)
	}
}

// targetScope makes the update or delete target visible unqualified and,
// for correlated subqueries, by its table name.
func targetScope(t *TableReference) map[string]bool {
	scope := map[string]bool{"": true}
	if t != nil {
		scope[t.Table] = true
	}
	return scope
}

// validateQuery checks q with its aliases in scope; extra runs inside the
// same scope (order by).
func (v *validator) validateQuery(q *QuerySpec, extra func()) {
	if q == nil {
		v.addProblem("nil query spec")
		return
	}
	scope := map[string]bool{}
	v.scopes = append(v.scopes, scope)
	defer func() { v.scopes = v.scopes[:len(v.scopes)-1] }()

	if q.From == nil || len(q.From.Spaces) == 0 {
		v.addProblem("query spec without from clause")
	} else {
		for _, s := range q.From.Spaces {
			v.declareGroup(scope, s.Root)
			for _, j := range s.Joins {
				v.declareGroup(scope, j.Group)
			}
		}
		for _, s := range q.From.Spaces {
			v.validateGroup(s.Root)
			for _, j := range s.Joins {
				if j.Predicate == nil && j.Type != JoinCross {
					v.addProblem("%s join to %s has no predicate", j.Type, j.Group.Root().Table)
				}
				v.validatePredicate(j.Predicate)
				v.validateGroup(j.Group)
			}
		}
	}

	if len(q.Selection) == 0 {
		v.addProblem("empty select list")
	}
	for _, item := range q.Selection {
		v.validateExpression(item.Expr)
	}
	v.validatePredicate(q.Where)
	if extra != nil {
		extra()
	}
}

func (v *validator) declareGroup(scope map[string]bool, g TableGroup) {
	for _, ref := range References(g) {
		if scope[ref.Alias] {
			v.addProblem("duplicate table alias %s", ref.Alias)
		}
		scope[ref.Alias] = true
	}
}

func (v *validator) validateGroup(g TableGroup) {
	for _, j := range g.TableJoins() {
		if j.Predicate == nil {
			v.addProblem("table join to %s has no predicate", j.Table.Table)
		}
		v.validatePredicate(j.Predicate)
	}
}

func (v *validator) visible(alias string) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i][alias] {
			return true
		}
	}
	return false
}

func (v *validator) validateExpression(e Expression) {
	switch e := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case *ColumnReference:
		if e.Qualifier == "" && len(v.scopes) > 1 {
			v.addProblem("column %s is unqualified inside a subquery", e.Column)
		} else if !v.visible(e.Qualifier) {
			v.addProblem("column %s references unknown alias %q", e.Column, e.Qualifier)
		}
	case *Tuple:
		for _, item := range e.Items {
			v.validateExpression(item)
		}
	case *QueryLiteral, *Parameter:
	case *UnaryOperation:
		v.validateExpression(e.Operand)
	case *BinaryArithmetic:
		v.validateExpression(e.Left)
		v.validateExpression(e.Right)
	case *Concat:
		v.validateExpression(e.Left)
		v.validateExpression(e.Right)
	case *FunctionCall:
		for _, a := range e.Args {
			v.validateExpression(a)
		}
	case *SimpleCase:
		v.validateExpression(e.Operand)
		for _, w := range e.Whens {
			v.validateExpression(w.Value)
			v.validateExpression(w.Result)
		}
		if e.Else != nil {
			v.validateExpression(e.Else)
		}
	case *SearchedCase:
		for _, w := range e.Whens {
			v.validatePredicate(w.Condition)
			v.validateExpression(w.Result)
		}
		if e.Else != nil {
			v.validateExpression(e.Else)
		}
	case *Subquery:
		v.validateQuery(e.Query, nil)
	default:
		v.addProblem("unknown expression type %T", e)
	}
}

// validatePredicate accepts nil: an absent predicate is valid.
func (v *validator) validatePredicate(p Predicate) {
	switch p := p.(type) {
	case nil:
	case *Junction:
		if len(p.Predicates) == 0 {
			v.addProblem("empty %s junction", p.Kind.Keyword())
		}
		for _, sub := range p.Predicates {
			v.validatePredicate(sub)
		}
	case *Grouped:
		v.validatePredicate(p.Predicate)
	case *Negated:
		v.validatePredicate(p.Predicate)
	case *Comparison:
		v.checkSpan("comparison", p.Left, p.Right)
		v.validateExpression(p.Left)
		v.validateExpression(p.Right)
	case *Between:
		v.checkSpan("between", p.Expr, p.Low)
		v.checkSpan("between", p.Expr, p.High)
		v.validateExpression(p.Expr)
		v.validateExpression(p.Low)
		v.validateExpression(p.High)
	case *Like:
		v.validateExpression(p.Expr)
		v.validateExpression(p.Pattern)
		if p.Escape != nil {
			v.validateExpression(p.Escape)
		}
	case *Nullness:
		v.validateExpression(p.Expr)
	case *InList:
		v.validateExpression(p.Expr)
		for _, item := range p.List {
			v.checkSpan("in list", p.Expr, item)
			v.validateExpression(item)
		}
	case *InSubquery:
		v.validateExpression(p.Expr)
		if p.Query != nil {
			span := 0
			for _, item := range p.Query.Selection {
				span += item.Expr.ColumnSpan()
			}
			if span != p.Expr.ColumnSpan() {
				v.addProblem("in subquery arity mismatch: %d vs %d", p.Expr.ColumnSpan(), span)
			}
		}
		v.validateQuery(p.Query, nil)
	case *Exists:
		v.validateQuery(p.Query, nil)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) checkSpan(construct string, l, r Expression) {
	if l == nil || r == nil {
		return
	}
	if l.ColumnSpan() != r.ColumnSpan() {
		v.addProblem("%s arity mismatch: %d vs %d", construct, l.ColumnSpan(), r.ColumnSpan())
	}
}
