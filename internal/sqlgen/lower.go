package sqlgen

import (
	"log/slog"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

// Lowerer converts one SQM statement into the SQL AST. A Lowerer owns all
// mutable lowering state and must not be shared between compilations.
type Lowerer struct {
	logger  *slog.Logger
	aliases *aliasBaseManager
	frames  []*frame

	// dml is set while lowering an update or delete target. Groups then
	// bind a single unaliased table.
	dml bool

	// target is the unaliased group of the update or delete target, bound
	// in targetFrame. Subqueries see it through correlated, whose columns
	// are qualified by the table name.
	target      *sqlast.EntityTableGroup
	correlated  *sqlast.EntityTableGroup
	targetFrame *frame
}

// frame is one in-progress relational query spec.
type frame struct {
	spec  *sqlast.QuerySpec
	index *FromClauseIndex
}

// NewLowerer creates a lowerer. A nil logger uses slog.Default().
func NewLowerer(logger *slog.Logger) *Lowerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lowerer{logger: logger, aliases: newAliasBaseManager()}
}

// Lower converts stmt with a fresh Lowerer.
func Lower(stmt sqm.Statement, logger *slog.Logger) (sqlast.Statement, error) {
	return NewLowerer(logger).Lower(stmt)
}

// Lower converts stmt into a SQL AST statement.
func (l *Lowerer) Lower(stmt sqm.Statement) (sqlast.Statement, error) {
	switch s := stmt.(type) {
	case *sqm.SelectStatement:
		return l.selectStatement(s)
	case *sqm.UpdateStatement:
		return l.updateStatement(s)
	case *sqm.DeleteStatement:
		return l.deleteStatement(s)
	}
	return nil, qerr.NotYetImplemented("lowering of " + stmt.StatementType().String() + " statement")
}

func (l *Lowerer) current() *frame {
	if len(l.frames) == 0 {
		return nil
	}
	return l.frames[len(l.frames)-1]
}

func (l *Lowerer) push(spec *sqlast.QuerySpec) *frame {
	var parent *FromClauseIndex
	if f := l.current(); f != nil {
		parent = f.index
	}
	f := &frame{spec: spec, index: NewFromClauseIndex(parent)}
	l.frames = append(l.frames, f)
	return f
}

func (l *Lowerer) pop() {
	l.frames = l.frames[:len(l.frames)-1]
}

func (l *Lowerer) selectStatement(s *sqm.SelectStatement) (*sqlast.SelectStatement, error) {
	out := &sqlast.SelectStatement{}
	spec, returns, err := l.querySpec(s.Query, func() error {
		if s.OrderBy == nil {
			return nil
		}
		for _, item := range s.OrderBy.Items {
			e, err := l.expression(item.Expr)
			if err != nil {
				return err
			}
			out.OrderBy = append(out.OrderBy, &sqlast.SortSpecification{
				Expr:      e,
				Collation: item.Collation,
				Direction: sortDirection(item.Direction),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Query = spec
	out.Returns = returns
	return out, nil
}

func sortDirection(d sqm.SortDirection) sqlast.SortDirection {
	switch d {
	case sqm.SortAscending:
		return sqlast.SortAscending
	case sqm.SortDescending:
		return sqlast.SortDescending
	}
	return sqlast.SortUnspecified
}

// querySpec lowers q in a new frame: from clause, then selection, then
// where. extra runs last inside the same frame.
func (l *Lowerer) querySpec(q *sqm.QuerySpec, extra func() error) (*sqlast.QuerySpec, []*sqlast.Return, error) {
	spec := &sqlast.QuerySpec{}
	l.push(spec)
	defer l.pop()

	from, err := l.fromClause(q.From)
	if err != nil {
		return nil, nil, err
	}
	spec.From = from

	returns, err := l.selectClause(spec, q.Select)
	if err != nil {
		return nil, nil, err
	}
	if q.Where != nil {
		if spec.Where, err = l.predicate(q.Where); err != nil {
			return nil, nil, err
		}
	}
	if extra != nil {
		if err := extra(); err != nil {
			return nil, nil, err
		}
	}
	return spec, returns, nil
}

// fromClause registers every root first so that join predicates may refer
// to any space, then lowers explicit joins followed by implicit ones.
func (l *Lowerer) fromClause(fc *sqm.FromClause) (*sqlast.FromClause, error) {
	out := &sqlast.FromClause{}
	f := l.current()
	for _, space := range fc.Spaces {
		root, ok := space.Root.(*sqm.RootEntity)
		if !ok {
			return nil, qerr.Invariant("space root %s is %T", space.Root.Alias(), space.Root)
		}
		g, err := l.entityGroup(root.Entity, root.Entity.Name)
		if err != nil {
			return nil, err
		}
		f.index.Register(root, g)
		ts := &sqlast.TableSpace{Root: g}
		f.index.RegisterSpace(space, ts)
		out.Spaces = append(out.Spaces, ts)
	}
	for _, space := range fc.Spaces {
		for _, j := range space.Joins {
			if _, err := l.ensureGroup(j); err != nil {
				return nil, err
			}
		}
		for _, j := range space.Implicit {
			if _, err := l.ensureGroup(j); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (l *Lowerer) entityGroup(entity *model.EntityType, stem string) (*sqlast.EntityTableGroup, error) {
	alloc := &tableAliases{base: l.aliases.next(stem)}
	g, err := buildEntityGroup(entity, alloc)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("table group created", "entity", entity.Name, "alias", g.Base)
	return g, nil
}

// ensureGroup returns the table group of e, lowering its join on first use.
func (l *Lowerer) ensureGroup(e sqm.FromElement) (sqlast.TableGroup, error) {
	e = sqm.Underlying(e)
	f := l.current()
	if f == nil {
		return nil, qerr.Invariant("from element %s referenced outside a query spec", e.Alias())
	}
	if g := f.index.Find(e); g != nil {
		return l.correlate(g, f != l.targetFrame), nil
	}
	ts, owner := f.index.Space(e.Space())
	if ts == nil {
		return nil, qerr.Invariant("from element %s belongs to a space that was not lowered", e.Alias())
	}
	switch j := e.(type) {
	case *sqm.CrossJoin:
		g, err := l.entityGroup(j.Entity, j.Entity.Name)
		if err != nil {
			return nil, err
		}
		owner.Register(j, g)
		ts.Joins = append(ts.Joins, &sqlast.TableGroupJoin{Type: sqlast.JoinCross, Group: g})
		return g, nil
	case *sqm.EntityJoin:
		return l.entityJoin(ts, owner, j)
	case *sqm.AttributeJoin:
		return l.attributeJoin(ts, owner, j)
	}
	return nil, qerr.Invariant("unexpected from element %T", e)
}

// correlate returns the table-qualified view of the update or delete target
// when it is referenced from a nested query spec. Any other group is
// returned unchanged.
func (l *Lowerer) correlate(g sqlast.TableGroup, nested bool) sqlast.TableGroup {
	if nested && l.target != nil && g == l.target {
		return l.correlated
	}
	return g
}

func joinType(t sqm.JoinType) sqlast.JoinType {
	switch t {
	case sqm.JoinLeft:
		return sqlast.JoinLeft
	case sqm.JoinCross:
		return sqlast.JoinCross
	}
	return sqlast.JoinInner
}

// entityJoin joins an unrelated entity on its ON predicate alone.
func (l *Lowerer) entityJoin(ts *sqlast.TableSpace, owner *FromClauseIndex, j *sqm.EntityJoin) (sqlast.TableGroup, error) {
	g, err := l.entityGroup(j.Entity, j.Entity.Name)
	if err != nil {
		return nil, err
	}
	owner.Register(j, g)
	if j.On == nil {
		return nil, qerr.Semantic(j.Alias(), "entity join requires an ON predicate")
	}
	on, err := l.predicate(j.On)
	if err != nil {
		return nil, err
	}
	ts.Joins = append(ts.Joins, &sqlast.TableGroupJoin{Type: joinType(j.Type), Group: g, Predicate: on})
	return g, nil
}

// attributeJoin lowers a join along an attribute of its left-hand side.
// Embedded attributes reuse the owner's group; associations and collections
// get a new group joined by a synthesized key predicate, conjoined with any
// explicit ON predicate.
func (l *Lowerer) attributeJoin(ts *sqlast.TableSpace, owner *FromClauseIndex, j *sqm.AttributeJoin) (sqlast.TableGroup, error) {
	lhs, err := l.ensureGroup(j.Lhs)
	if err != nil {
		return nil, err
	}
	attr := j.Attribute
	if attr.Nature == model.NatureEmbedded {
		owner.Register(j, lhs)
		return lhs, nil
	}

	var (
		g    sqlast.TableGroup
		pred sqlast.Predicate
	)
	if attr.Collection != nil {
		g, pred, err = l.collectionJoin(lhs, j)
	} else {
		g, pred, err = l.associationJoin(lhs, attr)
	}
	if err != nil {
		return nil, err
	}
	owner.Register(j, g)

	if j.On != nil {
		on, err := l.predicate(j.On)
		if err != nil {
			return nil, err
		}
		pred = sqlast.Conjoin(pred, on)
	}
	ts.Joins = append(ts.Joins, &sqlast.TableGroupJoin{Type: joinType(j.Type), Group: g, Predicate: pred})
	return g, nil
}

// associationJoin builds the target group of a to-one association and the
// predicate target.key = lhs.fk.
func (l *Lowerer) associationJoin(lhs sqlast.TableGroup, attr *model.Attribute) (sqlast.TableGroup, sqlast.Predicate, error) {
	g, err := l.entityGroup(attr.Target, attr.Name)
	if err != nil {
		return nil, nil, err
	}
	rcols, rtable, err := attr.ReferencedColumns()
	if err != nil {
		return nil, nil, qerr.Invariant("%v", err)
	}
	target := g.Table(rtable)
	owner := lhs.Table(attr.Table)
	if target == nil || owner == nil {
		return nil, nil, qerr.Invariant("association %s spans tables outside its groups", attr.Name)
	}
	pred, err := keyEquality(target, rcols, owner, attr.Columns, valueTypes(attr))
	if err != nil {
		return nil, nil, err
	}
	return g, pred, nil
}

// collectionJoin builds the group of a plural attribute and the predicate
// collection.key = owner.id.
//
// A one-to-many collection stored in the element entity's table becomes
// that entity's group. A collection with its own table becomes a collection
// group; for entity elements the element entity's tables are joined into it
// inner on element column = element id.
func (l *Lowerer) collectionJoin(lhs sqlast.TableGroup, j *sqm.AttributeJoin) (sqlast.TableGroup, sqlast.Predicate, error) {
	attr := j.Attribute
	m := attr.Collection
	owner, ok := sqm.Underlying(j.Lhs).ModelType().(*model.EntityType)
	if !ok {
		return nil, nil, qerr.NotYetImplemented("collection " + attr.Name + " owned by an embeddable")
	}
	ownerCols, err := identifierColumns(lhs, owner)
	if err != nil {
		return nil, nil, err
	}
	if len(ownerCols) == 0 {
		return nil, nil, qerr.Invariant("entity %s has no identifier columns", owner.Name)
	}
	alloc := &tableAliases{base: l.aliases.next(attr.Name)}
	elem := m.ElementEntity()

	var (
		g   sqlast.TableGroup
		key *sqlast.TableReference
	)
	switch {
	case elem != nil && hierarchyTable(elem, m.Table):
		eg, err := buildEntityGroup(elem, alloc)
		if err != nil {
			return nil, nil, err
		}
		g, key = eg, eg.Table(m.Table)
	default:
		root := alloc.bind(m.Table)
		cg := sqlast.NewCollectionTableGroup(attr, alloc.base, root)
		if elem != nil {
			eg, err := buildEntityGroup(elem, alloc)
			if err != nil {
				return nil, nil, err
			}
			id := elem.Identifier()
			on, err := keyEquality(eg.Root(), id.Columns, root, m.ElementColumns, model.ColumnTypes(id.Type))
			if err != nil {
				return nil, nil, err
			}
			cg.AddTableJoin(&sqlast.TableJoin{Type: sqlast.JoinInner, Table: eg.Root(), Predicate: on})
			for _, tj := range eg.TableJoins() {
				cg.AddTableJoin(tj)
			}
			cg.Element = eg
		}
		g, key = cg, root
	}
	l.logger.Debug("collection group created", "attribute", attr.Name, "alias", alloc.base)

	pred, err := keyToColumns(key, m.KeyColumns, ownerCols)
	if err != nil {
		return nil, nil, err
	}
	return g, pred, nil
}

func hierarchyTable(e *model.EntityType, table string) bool {
	for t := e; t != nil; t = t.Super() {
		if t.Table == table {
			return true
		}
	}
	return false
}
