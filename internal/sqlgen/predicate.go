package sqlgen

import (
	"fmt"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

var comparisonOps = map[sqm.ComparisonOperator]sqlast.ComparisonOperator{
	sqm.Equal:              sqlast.Equal,
	sqm.NotEqual:           sqlast.NotEqual,
	sqm.GreaterThan:        sqlast.GreaterThan,
	sqm.GreaterThanOrEqual: sqlast.GreaterThanOrEqual,
	sqm.LessThan:           sqlast.LessThan,
	sqm.LessThanOrEqual:    sqlast.LessThanOrEqual,
}

// predicate preserves boolean structure, flattening binary and/or chains
// into junctions.
func (l *Lowerer) predicate(p sqm.Predicate) (sqlast.Predicate, error) {
	switch p := p.(type) {
	case *sqm.And:
		return l.junction(sqlast.Conjunction, p.Left, p.Right)
	case *sqm.Or:
		return l.junction(sqlast.Disjunction, p.Left, p.Right)

	case *sqm.Grouped:
		inner, err := l.predicate(p.Operand)
		if err != nil {
			return nil, err
		}
		return &sqlast.Grouped{Predicate: inner}, nil

	case *sqm.Negated:
		inner, err := l.predicate(p.Operand)
		if err != nil {
			return nil, err
		}
		return &sqlast.Negated{Predicate: inner}, nil

	case *sqm.Relational:
		op, ok := comparisonOps[p.Op]
		if !ok {
			return nil, qerr.Invariant("unknown comparison operator %d", p.Op)
		}
		ops, err := l.expressions([]sqm.Expression{p.Left, p.Right})
		if err != nil {
			return nil, err
		}
		return &sqlast.Comparison{Op: op, Left: ops[0], Right: ops[1]}, nil

	case *sqm.Between:
		ops, err := l.expressions([]sqm.Expression{p.Expr, p.Low, p.High})
		if err != nil {
			return nil, err
		}
		return &sqlast.Between{Expr: ops[0], Low: ops[1], High: ops[2], Negated: p.Negated}, nil

	case *sqm.Like:
		ops, err := l.expressions([]sqm.Expression{p.Expr, p.Pattern})
		if err != nil {
			return nil, err
		}
		like := &sqlast.Like{Expr: ops[0], Pattern: ops[1], Negated: p.Negated}
		if p.Escape != nil {
			if like.Escape, err = l.expression(p.Escape); err != nil {
				return nil, err
			}
		}
		return like, nil

	case *sqm.IsNull:
		e, err := l.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		return &sqlast.Nullness{Expr: e, Negated: p.Negated}, nil

	case *sqm.IsEmpty:
		q, err := l.collectionSubquery(p.Collection, false)
		if err != nil {
			return nil, err
		}
		return &sqlast.Exists{Query: q, Negated: !p.Negated}, nil

	case *sqm.MemberOf:
		e, err := l.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		q, err := l.collectionSubquery(p.Collection, true)
		if err != nil {
			return nil, err
		}
		return &sqlast.InSubquery{Expr: e, Query: q, Negated: p.Negated}, nil

	case *sqm.InList:
		e, err := l.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		list, err := l.expressions(p.List)
		if err != nil {
			return nil, err
		}
		return &sqlast.InList{Expr: e, List: list, Negated: p.Negated}, nil

	case *sqm.InSubquery:
		e, err := l.expression(p.Expr)
		if err != nil {
			return nil, err
		}
		q, _, err := l.querySpec(p.Query, nil)
		if err != nil {
			return nil, err
		}
		return &sqlast.InSubquery{Expr: e, Query: q, Negated: p.Negated}, nil
	}
	return nil, qerr.NotYetImplemented("lowering of predicate " + typeName(p))
}

func (l *Lowerer) junction(kind sqlast.JunctionKind, left, right sqm.Predicate) (sqlast.Predicate, error) {
	j := &sqlast.Junction{Kind: kind}
	for _, p := range []sqm.Predicate{left, right} {
		sp, err := l.predicate(p)
		if err != nil {
			return nil, err
		}
		j.Add(sp)
	}
	return j, nil
}

// collectionSubquery builds the correlated subquery over a collection table
// used by IS EMPTY (selecting 1) and MEMBER OF (selecting the element
// columns), correlated on collection key = owner identifier.
func (l *Lowerer) collectionSubquery(ref *sqm.AttributeReference, selectElements bool) (*sqlast.QuerySpec, error) {
	owner, err := l.ensureGroup(ref.Source)
	if err != nil {
		return nil, err
	}
	// the owner columns end up inside the subquery
	owner = l.correlate(owner, true)
	entity, ok := sqm.Underlying(ref.Source).ModelType().(*model.EntityType)
	if !ok {
		return nil, qerr.NotYetImplemented("collection " + ref.Path + " owned by an embeddable")
	}
	ownerCols, err := identifierColumns(owner, entity)
	if err != nil {
		return nil, err
	}

	m := ref.Attribute.Collection
	alloc := &tableAliases{base: l.aliases.next(ref.Attribute.Name)}
	table := alloc.bind(m.Table)
	where, err := keyToColumns(table, m.KeyColumns, ownerCols)
	if err != nil {
		return nil, err
	}

	q := &sqlast.QuerySpec{
		From:  &sqlast.FromClause{Spaces: []*sqlast.TableSpace{{Root: sqlast.NewCollectionTableGroup(ref.Attribute, alloc.base, table)}}},
		Where: where,
	}
	if !selectElements {
		q.Selection = []*sqlast.SelectItem{{Expr: &sqlast.QueryLiteral{Value: int32(1), Type: model.Integer}}}
		return q, nil
	}
	cols, err := elementColumns(table, m)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		q.Selection = append(q.Selection, &sqlast.SelectItem{Expr: c})
	}
	return q, nil
}
