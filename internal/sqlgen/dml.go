package sqlgen

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

func (l *Lowerer) updateStatement(s *sqm.UpdateStatement) (*sqlast.UpdateStatement, error) {
	table, done, err := l.dmlTarget(s.From, s.Target)
	if err != nil {
		return nil, err
	}
	defer done()

	out := &sqlast.UpdateStatement{Table: table}
	for _, a := range s.Assignments {
		cols, err := l.attributeReference(a.Target)
		if err != nil {
			return nil, err
		}
		v, err := l.expression(a.Value)
		if err != nil {
			return nil, err
		}
		out.Assignments = append(out.Assignments, &sqlast.Assignment{Columns: cols, Value: v})
	}
	if s.Where != nil {
		if out.Where, err = l.predicate(s.Where); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Lowerer) deleteStatement(s *sqm.DeleteStatement) (*sqlast.DeleteStatement, error) {
	table, done, err := l.dmlTarget(s.From, s.Target)
	if err != nil {
		return nil, err
	}
	defer done()

	out := &sqlast.DeleteStatement{Table: table}
	if s.Where != nil {
		if out.Where, err = l.predicate(s.Where); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dmlTarget opens the frame of an update or delete. The target binds only
// its own table, unaliased; paths that would need a join are not supported.
// Inside subqueries the target's columns are qualified by its table name so
// they cannot bind to a subquery table with the same column.
func (l *Lowerer) dmlTarget(fc *sqm.FromClause, target *sqm.RootEntity) (*sqlast.TableReference, func(), error) {
	if fc == nil || len(fc.Spaces) != 1 || target == nil {
		return nil, nil, qerr.Invariant("update or delete must have exactly one target")
	}
	space := fc.Spaces[0]
	joined := append(append([]sqm.FromElement{}, space.Joins...), joinsOf(space.Implicit)...)
	for _, e := range joined {
		if j, ok := e.(*sqm.AttributeJoin); !ok || j.Attribute.Nature != model.NatureEmbedded {
			return nil, nil, qerr.NotYetImplemented("update or delete with joined path " + e.Alias())
		}
	}

	table := &sqlast.TableReference{Table: target.Entity.Table}
	g := sqlast.NewEntityTableGroup(target.Entity, "", table)

	f := l.push(nil)
	l.dml = true
	l.target = g
	l.correlated = sqlast.NewEntityTableGroup(target.Entity, "", &sqlast.TableReference{Table: table.Table, Alias: table.Table})
	l.targetFrame = f
	done := func() {
		l.dml = false
		l.target, l.correlated, l.targetFrame = nil, nil, nil
		l.pop()
	}
	f.index.Register(target, g)
	for _, e := range joined {
		f.index.Register(e, g)
	}
	f.index.RegisterSpace(space, &sqlast.TableSpace{Root: g})
	l.logger.Debug("dml target bound", "entity", target.Entity.Name, "table", table.Table)
	return table, done, nil
}

func joinsOf(implicit []*sqm.AttributeJoin) []sqm.FromElement {
	out := make([]sqm.FromElement, len(implicit))
	for i, j := range implicit {
		out[i] = j
	}
	return out
}
