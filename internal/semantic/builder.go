package semantic

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// Analyze runs both semantic passes over stmt with a fresh context.
func Analyze(stmt parsetree.Statement, opts Options) (sqm.Statement, error) {
	ctx := NewContext(opts)
	index, err := NewIndexer(ctx).Index(stmt)
	if err != nil {
		return nil, err
	}
	return NewBuilder(ctx, index).Build(stmt)
}

// Builder is the semantic pass. It walks the parse tree a second time and
// produces the SQM, using the Index for every scope decision.
type Builder struct {
	ctx    *Context
	index  *Index
	clause *sqm.FromClause
}

// NewBuilder creates a builder over an index produced with the same context.
func NewBuilder(ctx *Context, index *Index) *Builder {
	return &Builder{ctx: ctx, index: index}
}

// Build produces the SQM statement for stmt.
func (b *Builder) Build(stmt parsetree.Statement) (sqm.Statement, error) {
	switch s := stmt.(type) {
	case *parsetree.SelectStatement:
		return b.selectStatement(s)
	case *parsetree.UpdateStatement:
		return b.updateStatement(s)
	case *parsetree.DeleteStatement:
		return b.deleteStatement(s)
	case *parsetree.InsertStatement:
		return nil, qerr.NotYetImplemented("insert statement")
	}
	return nil, qerr.Structural("unexpected statement type %T", stmt)
}

func (b *Builder) selectStatement(s *parsetree.SelectStatement) (sqm.Statement, error) {
	qs, err := b.querySpec(s.Query)
	if err != nil {
		return nil, err
	}
	out := &sqm.SelectStatement{Query: qs}
	if len(s.OrderBy) == 0 {
		return out, nil
	}

	b.clause = qs.From
	defer func() { b.clause = nil }()
	out.OrderBy = &sqm.OrderByClause{}
	for _, spec := range s.OrderBy {
		e, err := b.expression(spec.Expr)
		if err != nil {
			return nil, err
		}
		item := &sqm.SortSpecification{Expr: e, Collation: spec.Collation}
		switch spec.Direction {
		case parsetree.SortAscending:
			item.Direction = sqm.SortAscending
		case parsetree.SortDescending:
			item.Direction = sqm.SortDescending
		}
		out.OrderBy.Items = append(out.OrderBy.Items, item)
	}
	return out, nil
}

func (b *Builder) updateStatement(s *parsetree.UpdateStatement) (sqm.Statement, error) {
	b.clause = b.index.TargetClause
	out := &sqm.UpdateStatement{From: b.index.TargetClause, Target: b.index.Target}
	for _, a := range s.Assignments {
		target, err := b.resolvePath(a.Target)
		if err != nil {
			return nil, err
		}
		ref, ok := target.(*sqm.AttributeReference)
		if !ok || ref.Attribute.IsPlural() {
			return nil, qerr.Semantic(a.Target.Text(), "update target must be a singular attribute")
		}
		value, err := b.expression(a.Value)
		if err != nil {
			return nil, err
		}
		infer(ref, value)
		out.Assignments = append(out.Assignments, &sqm.Assignment{Target: ref, Value: value})
	}
	if s.Where != nil {
		p, err := b.predicate(s.Where)
		if err != nil {
			return nil, err
		}
		out.Where = p
	}
	return out, nil
}

func (b *Builder) deleteStatement(s *parsetree.DeleteStatement) (sqm.Statement, error) {
	b.clause = b.index.TargetClause
	out := &sqm.DeleteStatement{From: b.index.TargetClause, Target: b.index.Target}
	if s.Where != nil {
		p, err := b.predicate(s.Where)
		if err != nil {
			return nil, err
		}
		out.Where = p
	}
	return out, nil
}

// querySpec builds one query spec inside the scope the indexer recorded for
// it.
func (b *Builder) querySpec(qs *parsetree.QuerySpec) (*sqm.QuerySpec, error) {
	fc := b.index.FromClause(qs)
	if fc == nil {
		return nil, qerr.Invariant("query spec was not indexed")
	}
	prev := b.clause
	b.clause = fc
	defer func() { b.clause = prev }()

	out := &sqm.QuerySpec{From: fc}
	if err := b.joinPredicates(qs.From); err != nil {
		return nil, err
	}
	sel, err := b.selectClause(qs.Select, fc)
	if err != nil {
		return nil, err
	}
	out.Select = sel
	if qs.Where != nil {
		p, err := b.predicate(qs.Where)
		if err != nil {
			return nil, err
		}
		if err := out.SetWhere(p); err != nil {
			return nil, qerr.Invariant("%v", err)
		}
	}
	return out, nil
}

// joinPredicates builds ON predicates in the join's scope and attaches them
// to the join elements.
func (b *Builder) joinPredicates(from *parsetree.FromClause) error {
	for _, sp := range from.Spaces {
		for _, j := range sp.Joins {
			qj, ok := j.(*parsetree.QualifiedJoin)
			if !ok {
				continue
			}
			el := b.index.Element(qj)
			if qj.On == nil {
				if ej, ok := el.(*sqm.EntityJoin); ok {
					return qerr.Semantic(ej.Alias(), "entity join requires an ON predicate")
				}
				continue
			}
			p, err := b.predicate(qj.On)
			if err != nil {
				return err
			}
			switch el := el.(type) {
			case *sqm.AttributeJoin:
				el.On = p
			case *sqm.EntityJoin:
				el.On = p
			default:
				return qerr.Invariant("qualified join was not indexed")
			}
		}
	}
	return nil
}

func (b *Builder) selectClause(sc *parsetree.SelectClause, fc *sqm.FromClause) (*sqm.SelectClause, error) {
	if sc == nil {
		// Inferred selection: the first space's root, never any join.
		root := fc.Spaces[0].Root
		return &sqm.SelectClause{
			Inferred: true,
			Selection: &sqm.SelectList{Items: []*sqm.SelectItem{
				{Expr: &sqm.FromElementReference{Element: root}},
			}},
		}, nil
	}

	out := &sqm.SelectClause{Distinct: sc.Distinct}
	switch s := sc.Selection.(type) {
	case *parsetree.SelectList:
		list := &sqm.SelectList{}
		for _, item := range s.Items {
			e, err := b.expression(item.Expr)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, &sqm.SelectItem{Expr: e, Alias: item.Alias})
		}
		out.Selection = list
	case *parsetree.DynamicInstantiation:
		di, err := b.instantiation(s)
		if err != nil {
			return nil, err
		}
		out.Selection = di
	case *parsetree.JPASelect:
		el := fc.ResolveAlias(s.Alias)
		if el == nil {
			return nil, qerr.Semantic(s.Alias, "select alias %q does not name a from element", s.Alias)
		}
		out.Selection = &sqm.SelectList{Items: []*sqm.SelectItem{
			{Expr: &sqm.FromElementReference{Element: el}},
		}}
	default:
		return nil, qerr.NotYetImplemented("selection " + typeName(sc.Selection))
	}
	return out, nil
}

func (b *Builder) instantiation(di *parsetree.DynamicInstantiation) (*sqm.DynamicInstantiation, error) {
	if b.ctx.symbols == nil {
		return nil, qerr.Unresolved(di.Target, "no symbol table configured")
	}
	class, ok := b.ctx.symbols.ClassByName(di.Target)
	if !ok {
		return nil, qerr.Unresolved(di.Target, "could not resolve instantiation target %q", di.Target)
	}
	if class.Enum {
		return nil, qerr.Semantic(di.Target, "cannot instantiate enum %q", di.Target)
	}
	out := &sqm.DynamicInstantiation{Class: class}
	for _, a := range di.Args {
		arg := &sqm.InstantiationArg{Alias: a.Alias}
		if a.Nested != nil {
			nested, err := b.instantiation(a.Nested)
			if err != nil {
				return nil, err
			}
			arg.Nested = nested
		} else {
			e, err := b.expression(a.Expr)
			if err != nil {
				return nil, err
			}
			arg.Expr = e
		}
		out.Args = append(out.Args, arg)
	}
	return out, nil
}

// resolvePath applies the precedence order: scoped resolver, entity type
// name, then constant. Constant probe failures are logged and only surface
// as the cause of the terminal error.
func (b *Builder) resolvePath(p *parsetree.Path) (sqm.Expression, error) {
	r := &scopeResolver{ctx: b.ctx, clause: b.clause}
	if e, err := r.ResolvePath(p.Parts); err != nil || e != nil {
		return e, err
	}

	text := p.Text()
	if b.ctx.metamodel != nil {
		if entity := b.ctx.metamodel.ResolveEntityType(text); entity != nil {
			return &sqm.EntityTypeReference{Entity: entity}, nil
		}
	}

	c, err := b.resolveConstant(text)
	if err == nil {
		return c, nil
	}
	b.ctx.logger.Debug("constant resolution failed", "token", text, "error", err)
	return nil, &qerr.Error{
		Kind:     qerr.KindUnresolvedName,
		Message:  "could not interpret token",
		Fragment: text,
		Cause:    err,
	}
}

// elementEntity returns the entity type a from-element ranges over, if any.
func elementEntity(e sqm.FromElement) *model.EntityType {
	t, _ := e.ModelType().(*model.EntityType)
	return t
}
