package sqlgen

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

func (l *Lowerer) expressions(es []sqm.Expression) ([]sqlast.Expression, error) {
	out := make([]sqlast.Expression, 0, len(es))
	for _, e := range es {
		se, err := l.expression(e)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

// expression maps one SQM expression onto its SQL counterpart. Modulo is
// the one rewrite: it becomes mod(a, b).
func (l *Lowerer) expression(e sqm.Expression) (sqlast.Expression, error) {
	switch e := e.(type) {
	case *sqm.AttributeReference:
		cols, err := l.attributeReference(e)
		if err != nil {
			return nil, err
		}
		return asExpression(cols), nil

	case *sqm.FromElementReference:
		cols, err := l.elementValue(e.Element)
		if err != nil {
			return nil, err
		}
		return asExpression(cols), nil

	case *sqm.EntityTypeReference:
		value := e.Entity.Discriminator
		if value == "" {
			value = e.Entity.Name
		}
		return &sqlast.QueryLiteral{Value: value, Type: model.String}, nil

	case *sqm.Literal:
		return literal(e), nil

	case *sqm.NamedParameter:
		return &sqlast.Parameter{Source: sqlast.ParameterNamed, Name: e.Name, Types: parameterTypes(e.Type)}, nil
	case *sqm.PositionalParameter:
		return &sqlast.Parameter{Source: sqlast.ParameterPositional, Position: e.Position, Types: parameterTypes(e.Type)}, nil

	case *sqm.Unary:
		operand, err := l.expression(e.Operand)
		if err != nil {
			return nil, err
		}
		op := "-"
		if e.Op == sqm.UnaryPlus {
			op = "+"
		}
		return &sqlast.UnaryOperation{Op: op, Operand: operand}, nil

	case *sqm.BinaryArithmetic:
		left, err := l.expression(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.expression(e.Right)
		if err != nil {
			return nil, err
		}
		if e.Op == sqm.OpModulo {
			return &sqlast.FunctionCall{Name: "mod", Args: []sqlast.Expression{left, right}}, nil
		}
		return &sqlast.BinaryArithmetic{Op: e.Op.String(), Left: left, Right: right}, nil

	case *sqm.Concat:
		left, err := l.expression(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.expression(e.Right)
		if err != nil {
			return nil, err
		}
		return &sqlast.Concat{Left: left, Right: right}, nil

	case *sqm.Function:
		args, err := l.expressions(e.Args)
		if err != nil {
			return nil, err
		}
		return &sqlast.FunctionCall{Name: e.Name, Args: args}, nil

	case *sqm.Aggregate:
		call := &sqlast.FunctionCall{Name: e.Name, Distinct: e.Distinct, Star: e.Star}
		if e.Arg != nil {
			arg, err := l.expression(e.Arg)
			if err != nil {
				return nil, err
			}
			call.Args = []sqlast.Expression{arg}
		}
		return call, nil

	case *sqm.Coalesce:
		args, err := l.expressions(e.Args)
		if err != nil {
			return nil, err
		}
		return &sqlast.FunctionCall{Name: "coalesce", Args: args}, nil

	case *sqm.NullIf:
		args, err := l.expressions([]sqm.Expression{e.Left, e.Right})
		if err != nil {
			return nil, err
		}
		return &sqlast.FunctionCall{Name: "nullif", Args: args}, nil

	case *sqm.SimpleCase:
		return l.simpleCase(e)
	case *sqm.SearchedCase:
		return l.searchedCase(e)

	case *sqm.ConstantEnum:
		return &sqlast.QueryLiteral{Value: e.Value(), Type: basicType(e.ExpressionType())}, nil
	case *sqm.ConstantField:
		return &sqlast.QueryLiteral{Value: e.Field.Value, Type: e.Field.Type}, nil

	case *sqm.Subquery:
		q, _, err := l.querySpec(e.Query, nil)
		if err != nil {
			return nil, err
		}
		return &sqlast.Subquery{Query: q}, nil
	}
	return nil, qerr.NotYetImplemented("lowering of expression " + typeName(e))
}

// attributeReference resolves a singular attribute reference to columns in
// the table group of its source element.
func (l *Lowerer) attributeReference(r *sqm.AttributeReference) ([]*sqlast.ColumnReference, error) {
	g, err := l.ensureGroup(r.Source)
	if err != nil {
		return nil, err
	}
	if r.Attribute.IsPlural() {
		return nil, qerr.Semantic(r.Path, "collection-valued path %s can only be used with IS EMPTY, MEMBER OF or a join", r.Path)
	}
	if l.dml && g.Table(r.Attribute.Table) == nil {
		return nil, qerr.NotYetImplemented("update or delete touching table " + r.Attribute.Table)
	}
	return attributeColumns(g, r.Attribute)
}

// elementValue is the value of a from element used as an expression: the
// entity identifier, or the element columns of a value collection.
func (l *Lowerer) elementValue(e sqm.FromElement) ([]*sqlast.ColumnReference, error) {
	g, err := l.ensureGroup(e)
	if err != nil {
		return nil, err
	}
	u := sqm.Underlying(e)
	if j, ok := u.(*sqm.AttributeJoin); ok {
		switch {
		case j.Attribute.Nature == model.NatureEmbedded:
			return attributeColumns(g, j.Attribute)
		case j.Attribute.Collection != nil && j.Attribute.Collection.ElementEntity() == nil:
			return elementColumns(g.Root(), j.Attribute.Collection)
		}
	}
	entity, ok := u.ModelType().(*model.EntityType)
	if !ok {
		return nil, qerr.Invariant("from element %s has no entity type", e.Alias())
	}
	return identifierColumns(g, entity)
}

func (l *Lowerer) simpleCase(e *sqm.SimpleCase) (sqlast.Expression, error) {
	operand, err := l.expression(e.Operand)
	if err != nil {
		return nil, err
	}
	out := &sqlast.SimpleCase{Operand: operand}
	for _, w := range e.Whens {
		v, err := l.expression(w.Value)
		if err != nil {
			return nil, err
		}
		r, err := l.expression(w.Result)
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, &sqlast.SimpleWhen{Value: v, Result: r})
	}
	if e.Else != nil {
		if out.Else, err = l.expression(e.Else); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Lowerer) searchedCase(e *sqm.SearchedCase) (sqlast.Expression, error) {
	out := &sqlast.SearchedCase{}
	for _, w := range e.Whens {
		cond, err := l.predicate(w.Condition)
		if err != nil {
			return nil, err
		}
		r, err := l.expression(w.Result)
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, &sqlast.SearchedWhen{Condition: cond, Result: r})
	}
	if e.Else != nil {
		var err error
		if out.Else, err = l.expression(e.Else); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// literal lowers a semantic literal. A null literal whose inferred type
// spans several columns becomes a tuple of nulls.
func literal(e *sqm.Literal) sqlast.Expression {
	types := model.ColumnTypes(e.ExpressionType())
	if e.Kind == sqm.LiteralNull && len(types) > 1 {
		items := make([]sqlast.Expression, len(types))
		for i, t := range types {
			items[i] = &sqlast.QueryLiteral{Type: t}
		}
		return &sqlast.Tuple{Items: items}
	}
	return &sqlast.QueryLiteral{Value: e.Value, Type: typeAt(types, 0)}
}

// parameterTypes flattens an inferred parameter type into column types. An
// untyped parameter binds one untyped column.
func parameterTypes(t model.Type) []*model.BasicType {
	types := model.ColumnTypes(t)
	if len(types) == 0 {
		return []*model.BasicType{nil}
	}
	return types
}

func basicType(t model.Type) *model.BasicType {
	b, _ := t.(*model.BasicType)
	return b
}
