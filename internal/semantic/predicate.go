package semantic

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

var comparisonOps = map[parsetree.ComparisonOperator]sqm.ComparisonOperator{
	parsetree.CmpEqual:          sqm.Equal,
	parsetree.CmpNotEqual:       sqm.NotEqual,
	parsetree.CmpGreater:        sqm.GreaterThan,
	parsetree.CmpGreaterOrEqual: sqm.GreaterThanOrEqual,
	parsetree.CmpLess:           sqm.LessThan,
	parsetree.CmpLessOrEqual:    sqm.LessThanOrEqual,
}

func (b *Builder) predicate(p parsetree.Predicate) (sqm.Predicate, error) {
	switch p := p.(type) {
	case *parsetree.And:
		l, r, err := b.binaryPredicate("and", p.Operands)
		if err != nil {
			return nil, err
		}
		return &sqm.And{Left: l, Right: r}, nil

	case *parsetree.Or:
		l, r, err := b.binaryPredicate("or", p.Operands)
		if err != nil {
			return nil, err
		}
		return &sqm.Or{Left: l, Right: r}, nil

	case *parsetree.Not:
		inner, err := b.predicate(p.Operand)
		if err != nil {
			return nil, err
		}
		return &sqm.Negated{Operand: inner}, nil

	case *parsetree.Group:
		inner, err := b.predicate(p.Operand)
		if err != nil {
			return nil, err
		}
		return &sqm.Grouped{Operand: inner}, nil

	case *parsetree.Relational:
		op, ok := comparisonOps[p.Op]
		if !ok {
			return nil, qerr.Structural("unexpected comparison operator %d", p.Op)
		}
		if len(p.Operands) != 2 {
			return nil, qerr.Structural("operator %s expects 2 operands, found %d", p.Op, len(p.Operands))
		}
		ops, err := b.expressions(p.Operands)
		if err != nil {
			return nil, err
		}
		infer(ops[0], ops[1])
		return &sqm.Relational{Op: op, Left: ops[0], Right: ops[1]}, nil

	case *parsetree.Between:
		ops, err := b.expressions([]parsetree.Expression{p.Expr, p.Low, p.High})
		if err != nil {
			return nil, err
		}
		infer(ops...)
		return &sqm.Between{Expr: ops[0], Low: ops[1], High: ops[2], Negated: p.Negated}, nil

	case *parsetree.Like:
		ops, err := b.expressions([]parsetree.Expression{p.Expr, p.Pattern})
		if err != nil {
			return nil, err
		}
		infer(ops[0], ops[1])
		like := &sqm.Like{Expr: ops[0], Pattern: ops[1], Negated: p.Negated}
		if p.Escape != nil {
			esc, err := b.expression(p.Escape)
			if err != nil {
				return nil, err
			}
			if i, ok := esc.(sqm.Inferable); ok {
				i.InferType(model.Character)
			}
			like.Escape = esc
		}
		return like, nil

	case *parsetree.IsNull:
		e, err := b.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		return &sqm.IsNull{Expr: e, Negated: p.Negated}, nil

	case *parsetree.IsEmpty:
		coll, err := b.pluralReference("IS EMPTY", p.Expr)
		if err != nil {
			return nil, err
		}
		return &sqm.IsEmpty{Collection: coll, Negated: p.Negated}, nil

	case *parsetree.MemberOf:
		coll, err := b.pluralReference("MEMBER OF", p.Collection)
		if err != nil {
			return nil, err
		}
		e, err := b.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		if i, ok := e.(sqm.Inferable); ok {
			i.InferType(coll.Attribute.Collection.Element)
		}
		return &sqm.MemberOf{Expr: e, Collection: coll, Negated: p.Negated}, nil

	case *parsetree.InList:
		if len(p.List) == 0 {
			return nil, qerr.Structural("in list requires at least one value")
		}
		e, err := b.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		list, err := b.expressions(p.List)
		if err != nil {
			return nil, err
		}
		infer(append([]sqm.Expression{e}, list...)...)
		return &sqm.InList{Expr: e, List: list, Negated: p.Negated}, nil

	case *parsetree.InSubquery:
		e, err := b.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		q, err := b.querySpec(p.Query)
		if err != nil {
			return nil, err
		}
		if list, ok := q.Select.Selection.(*sqm.SelectList); ok && len(list.Items) == 1 {
			infer(e, list.Items[0].Expr)
		}
		return &sqm.InSubquery{Expr: e, Query: q, Negated: p.Negated}, nil
	}
	return nil, qerr.NotYetImplemented("predicate " + typeName(p))
}

func (b *Builder) binaryPredicate(op string, operands []parsetree.Predicate) (sqm.Predicate, sqm.Predicate, error) {
	if len(operands) != 2 {
		return nil, nil, qerr.Structural("operator %s expects 2 operands, found %d", op, len(operands))
	}
	l, err := b.predicate(operands[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := b.predicate(operands[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// pluralReference builds e and requires it to reference a plural attribute.
func (b *Builder) pluralReference(construct string, e parsetree.Expression) (*sqm.AttributeReference, error) {
	se, err := b.expression(e)
	if err != nil {
		return nil, err
	}
	ref, ok := se.(*sqm.AttributeReference)
	if !ok || !ref.Attribute.IsPlural() {
		return nil, qerr.Semantic(fragment(e), "%s requires a plural attribute reference", construct)
	}
	return ref, nil
}

// fragment returns source text for diagnostics where the node has any.
func fragment(e parsetree.Expression) string {
	switch e := e.(type) {
	case *parsetree.Path:
		return e.Text()
	case *parsetree.TreatPath:
		return e.Base.Text()
	case *parsetree.IndexedPath:
		return e.Base.Text()
	}
	return typeName(e)
}
