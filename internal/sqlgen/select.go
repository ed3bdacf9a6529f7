package sqlgen

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

// selectClause appends the selection of sc to spec and returns one return
// descriptor per select item.
func (l *Lowerer) selectClause(spec *sqlast.QuerySpec, sc *sqm.SelectClause) ([]*sqlast.Return, error) {
	if sc == nil {
		return nil, qerr.Invariant("query spec has no select clause")
	}
	spec.Distinct = sc.Distinct

	switch s := sc.Selection.(type) {
	case *sqm.SelectList:
		returns := make([]*sqlast.Return, 0, len(s.Items))
		for _, item := range s.Items {
			r, err := l.selectItem(spec, item.Expr, item.Alias)
			if err != nil {
				return nil, err
			}
			returns = append(returns, r)
		}
		return returns, nil
	case *sqm.DynamicInstantiation:
		r, err := l.instantiation(spec, s, "")
		if err != nil {
			return nil, err
		}
		return []*sqlast.Return{r}, nil
	}
	return nil, qerr.NotYetImplemented("selection " + typeName(sc.Selection))
}

// selectItem lowers one projected expression. A reference to an entity
// valued from element expands to every column of the entity.
func (l *Lowerer) selectItem(spec *sqlast.QuerySpec, e sqm.Expression, alias string) (*sqlast.Return, error) {
	if ref, ok := e.(*sqm.FromElementReference); ok {
		if entity, ok := ref.Element.ModelType().(*model.EntityType); ok {
			g, err := l.ensureGroup(ref.Element)
			if err != nil {
				return nil, err
			}
			cols, err := entityColumns(g, entity)
			if err != nil {
				return nil, err
			}
			for _, c := range cols {
				spec.Selection = append(spec.Selection, &sqlast.SelectItem{Expr: c})
			}
			return &sqlast.Return{Kind: sqlast.ReturnEntity, Alias: alias, Type: entity.Name, Columns: len(cols)}, nil
		}
	}

	se, err := l.expression(e)
	if err != nil {
		return nil, err
	}
	spec.Selection = append(spec.Selection, &sqlast.SelectItem{Expr: se})
	r := &sqlast.Return{Kind: sqlast.ReturnScalar, Alias: alias, Columns: se.ColumnSpan()}
	if t := e.ExpressionType(); t != nil {
		r.Type = t.TypeName()
	}
	return r, nil
}

// instantiation lowers the arguments of a dynamic instantiation in order.
// Its return spans the columns of all its arguments.
func (l *Lowerer) instantiation(spec *sqlast.QuerySpec, d *sqm.DynamicInstantiation, alias string) (*sqlast.Return, error) {
	out := &sqlast.Return{Kind: sqlast.ReturnInstantiation, Alias: alias, Type: d.Class.Name}
	for _, arg := range d.Args {
		var (
			r   *sqlast.Return
			err error
		)
		if arg.Nested != nil {
			r, err = l.instantiation(spec, arg.Nested, arg.Alias)
		} else {
			r, err = l.selectItem(spec, arg.Expr, arg.Alias)
		}
		if err != nil {
			return nil, err
		}
		out.Columns += r.Columns
		out.Args = append(out.Args, r)
	}
	return out, nil
}
