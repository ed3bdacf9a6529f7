package semantic

import (
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// Index is the side table the indexer produces and the builder consults.
// Every map is keyed by parse-tree node identity, never by source text.
type Index struct {
	StatementType sqm.StatementType

	clauses   map[*parsetree.QuerySpec]*sqm.FromClause
	elements  map[parsetree.Node]sqm.FromElement
	resolvers map[*parsetree.QualifiedJoin]PathResolver

	// Target and TargetClause are set for update and delete statements.
	Target       *sqm.RootEntity
	TargetClause *sqm.FromClause
}

func newIndex() *Index {
	return &Index{
		clauses:   map[*parsetree.QuerySpec]*sqm.FromClause{},
		elements:  map[parsetree.Node]sqm.FromElement{},
		resolvers: map[*parsetree.QualifiedJoin]PathResolver{},
	}
}

// FromClause returns the from clause recorded for a query spec node.
func (ix *Index) FromClause(qs *parsetree.QuerySpec) *sqm.FromClause {
	return ix.clauses[qs]
}

// Element returns the from-element created for a root, cross join or
// qualified join node.
func (ix *Index) Element(n parsetree.Node) sqm.FromElement {
	return ix.elements[n]
}

// JoinResolver returns the path resolver installed on a qualified attribute
// join.
func (ix *Index) JoinResolver(j *parsetree.QualifiedJoin) PathResolver {
	return ix.resolvers[j]
}

// Indexer is the structural pass. It discovers from-clause nesting, creates
// every declared from-element and records the result in an Index before any
// expression is resolved.
type Indexer struct {
	ctx   *Context
	index *Index
}

// NewIndexer creates an indexer bound to a compilation context.
func NewIndexer(ctx *Context) *Indexer {
	return &Indexer{ctx: ctx, index: newIndex()}
}

// Index walks stmt and returns the populated side table.
func (x *Indexer) Index(stmt parsetree.Statement) (*Index, error) {
	switch s := stmt.(type) {
	case *parsetree.SelectStatement:
		x.index.StatementType = sqm.StatementSelect
		if s.Query == nil {
			return nil, qerr.Structural("select statement without query")
		}
		var extra []parsetree.Expression
		for _, o := range s.OrderBy {
			extra = append(extra, o.Expr)
		}
		if err := x.querySpec(s.Query, extra...); err != nil {
			return nil, err
		}
	case *parsetree.UpdateStatement:
		x.index.StatementType = sqm.StatementUpdate
		var exprs []parsetree.Expression
		for _, a := range s.Assignments {
			exprs = append(exprs, a.Value)
		}
		if err := x.targetClause(s.Entity, s.Alias, s.Where, exprs); err != nil {
			return nil, err
		}
	case *parsetree.DeleteStatement:
		x.index.StatementType = sqm.StatementDelete
		if err := x.targetClause(s.Entity, s.Alias, s.Where, nil); err != nil {
			return nil, err
		}
	case *parsetree.InsertStatement:
		x.index.StatementType = sqm.StatementInsert
		if s.Query != nil {
			if err := x.querySpec(s.Query); err != nil {
				return nil, err
			}
		}
	default:
		return nil, qerr.Structural("unexpected statement type %T", stmt)
	}
	return x.index, nil
}

// targetClause indexes the single-entity scope of an update or delete.
func (x *Indexer) targetClause(entity, alias string, where parsetree.Predicate, exprs []parsetree.Expression) error {
	fc := x.ctx.pushClause()
	defer x.ctx.popClause()

	e, err := x.ctx.resolveEntity(entity)
	if err != nil {
		return err
	}
	name, err := x.ctx.declareAlias(alias, e.Name)
	if err != nil {
		return err
	}
	space := fc.NewSpace()
	root := sqm.NewRootEntity(space, e, name)
	if err := space.SetRoot(root); err != nil {
		return qerr.Invariant("%v", err)
	}
	space.Complete()
	x.index.Target = root
	x.index.TargetClause = fc

	for _, ex := range exprs {
		if err := x.walkExpression(ex); err != nil {
			return err
		}
	}
	return x.walkPredicate(where)
}

// querySpec indexes one query spec in a new child scope. extra holds
// expressions evaluated in this scope that live outside the spec node
// (order-by items of the top-level query).
func (x *Indexer) querySpec(qs *parsetree.QuerySpec, extra ...parsetree.Expression) error {
	if qs.From == nil || len(qs.From.Spaces) == 0 {
		return qerr.Structural("query without from clause")
	}
	fc := x.ctx.pushClause()
	defer x.ctx.popClause()

	for _, sp := range qs.From.Spaces {
		if err := x.space(fc, sp); err != nil {
			return err
		}
	}
	x.index.clauses[qs] = fc

	// Subqueries are indexed once the enclosing from clause is complete so
	// that they can see every alias it declares.
	for _, sp := range qs.From.Spaces {
		for _, j := range sp.Joins {
			if qj, ok := j.(*parsetree.QualifiedJoin); ok {
				if err := x.walkPredicate(qj.On); err != nil {
					return err
				}
			}
		}
	}
	if qs.Select != nil {
		if err := x.walkSelection(qs.Select.Selection); err != nil {
			return err
		}
	}
	if err := x.walkPredicate(qs.Where); err != nil {
		return err
	}
	for _, e := range extra {
		if err := x.walkExpression(e); err != nil {
			return err
		}
	}
	return nil
}

func (x *Indexer) space(fc *sqm.FromClause, sp *parsetree.FromElementSpace) error {
	if sp.Root == nil {
		return qerr.Structural("from-element space without root")
	}
	space := fc.NewSpace()
	x.ctx.space = space
	defer func() { x.ctx.space = nil }()

	entity, err := x.ctx.resolveEntity(sp.Root.Entity)
	if err != nil {
		return err
	}
	alias, err := x.ctx.declareAlias(sp.Root.Alias, entity.Name)
	if err != nil {
		return err
	}
	root := sqm.NewRootEntity(space, entity, alias)
	if err := space.SetRoot(root); err != nil {
		return qerr.Invariant("%v", err)
	}
	x.index.elements[sp.Root] = root

	for _, j := range sp.Joins {
		if err := x.join(space, j); err != nil {
			return err
		}
	}
	space.Complete()
	return nil
}

func (x *Indexer) join(space *sqm.FromElementSpace, j parsetree.Join) error {
	switch j := j.(type) {
	case *parsetree.CrossJoin:
		entity, err := x.ctx.resolveEntity(j.Entity)
		if err != nil {
			return err
		}
		alias, err := x.ctx.declareAlias(j.Alias, entity.Name)
		if err != nil {
			return err
		}
		cj := sqm.NewCrossJoin(space, entity, alias)
		if err := space.AddJoin(cj); err != nil {
			return qerr.Invariant("%v", err)
		}
		x.index.elements[j] = cj
		return nil

	case *parsetree.QualifiedJoin:
		if j.Path == nil {
			entity, err := x.ctx.resolveEntity(j.Entity)
			if err != nil {
				return err
			}
			alias, err := x.ctx.declareAlias(j.Alias, entity.Name)
			if err != nil {
				return err
			}
			ej := sqm.NewEntityJoin(space, entity, alias, joinType(j.Kind))
			if err := space.AddJoin(ej); err != nil {
				return qerr.Invariant("%v", err)
			}
			x.index.elements[j] = ej
			return nil
		}

		// Install the join-scoped resolver, then resolve the right-hand
		// side with it as the node is left.
		r := newJoinResolver(x.ctx, space, j)
		x.index.resolvers[j] = r
		ref, err := r.ResolvePath(j.Path.Parts)
		if err != nil {
			return err
		}
		x.index.elements[j] = ref.(*sqm.FromElementReference).Element
		return nil
	}
	return qerr.Structural("unexpected join type %T", j)
}

func joinType(k parsetree.JoinKind) sqm.JoinType {
	if k == parsetree.JoinLeft {
		return sqm.JoinLeft
	}
	return sqm.JoinInner
}

// ---------------------------------------------------------------------------
// subquery discovery

func (x *Indexer) walkSelection(s parsetree.Selection) error {
	switch s := s.(type) {
	case *parsetree.SelectList:
		for _, item := range s.Items {
			if err := x.walkExpression(item.Expr); err != nil {
				return err
			}
		}
	case *parsetree.DynamicInstantiation:
		for _, a := range s.Args {
			if a.Nested != nil {
				if err := x.walkSelection(a.Nested); err != nil {
					return err
				}
				continue
			}
			if err := x.walkExpression(a.Expr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *Indexer) walkExpressions(es ...parsetree.Expression) error {
	for _, e := range es {
		if err := x.walkExpression(e); err != nil {
			return err
		}
	}
	return nil
}

func (x *Indexer) walkExpression(e parsetree.Expression) error {
	switch e := e.(type) {
	case nil:
		return nil
	case *parsetree.Subquery:
		return x.querySpec(e.Query)
	case *parsetree.Unary:
		return x.walkExpression(e.Operand)
	case *parsetree.Binary:
		return x.walkExpressions(e.Operands...)
	case *parsetree.Concat:
		return x.walkExpressions(e.Operands...)
	case *parsetree.Function:
		return x.walkExpressions(e.Args...)
	case *parsetree.Aggregate:
		return x.walkExpression(e.Arg)
	case *parsetree.Coalesce:
		return x.walkExpressions(e.Args...)
	case *parsetree.NullIf:
		return x.walkExpressions(e.Args...)
	case *parsetree.IndexedPath:
		return x.walkExpression(e.Index)
	case *parsetree.SimpleCase:
		if err := x.walkExpressions(e.Operand, e.Else); err != nil {
			return err
		}
		for _, w := range e.Whens {
			if err := x.walkExpressions(w.Value, w.Result); err != nil {
				return err
			}
		}
	case *parsetree.SearchedCase:
		if err := x.walkExpression(e.Else); err != nil {
			return err
		}
		for _, w := range e.Whens {
			if err := x.walkPredicate(w.Condition); err != nil {
				return err
			}
			if err := x.walkExpression(w.Result); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *Indexer) walkPredicate(p parsetree.Predicate) error {
	switch p := p.(type) {
	case nil:
		return nil
	case *parsetree.And:
		for _, o := range p.Operands {
			if err := x.walkPredicate(o); err != nil {
				return err
			}
		}
	case *parsetree.Or:
		for _, o := range p.Operands {
			if err := x.walkPredicate(o); err != nil {
				return err
			}
		}
	case *parsetree.Not:
		return x.walkPredicate(p.Operand)
	case *parsetree.Group:
		return x.walkPredicate(p.Operand)
	case *parsetree.Relational:
		return x.walkExpressions(p.Operands...)
	case *parsetree.Between:
		return x.walkExpressions(p.Expr, p.Low, p.High)
	case *parsetree.Like:
		return x.walkExpressions(p.Expr, p.Pattern, p.Escape)
	case *parsetree.IsNull:
		return x.walkExpression(p.Expr)
	case *parsetree.IsEmpty:
		return x.walkExpression(p.Expr)
	case *parsetree.MemberOf:
		return x.walkExpressions(p.Expr, p.Collection)
	case *parsetree.InList:
		if err := x.walkExpression(p.Expr); err != nil {
			return err
		}
		return x.walkExpressions(p.List...)
	case *parsetree.InSubquery:
		if err := x.walkExpression(p.Expr); err != nil {
			return err
		}
		return x.querySpec(p.Query)
	}
	return nil
}
