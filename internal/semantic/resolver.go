package semantic

import (
	"strings"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// PathResolver interprets a dotted identifier sequence in a particular
// scope. It returns (nil, nil) when the sequence does not start with
// anything the scope knows about, letting the caller try the next
// precedence level.
type PathResolver interface {
	ResolvePath(parts []string) (sqm.Expression, error)
}

// scopeResolver is the default resolver bound to a from clause. The first
// part is an alias of the clause chain, or else an attribute declared by
// exactly one visible from-element.
type scopeResolver struct {
	ctx    *Context
	clause *sqm.FromClause
}

func (r *scopeResolver) ResolvePath(parts []string) (sqm.Expression, error) {
	if r.clause == nil || len(parts) == 0 {
		return nil, nil
	}
	text := strings.Join(parts, ".")
	if e := r.clause.ResolveAlias(parts[0]); e != nil {
		if len(parts) == 1 {
			return &sqm.FromElementReference{Element: e}, nil
		}
		return r.ctx.navigate(e, parts[1:], text)
	}
	owner, err := r.unqualifiedOwner(parts[0])
	if err != nil || owner == nil {
		return nil, err
	}
	return r.ctx.navigate(owner, parts, text)
}

// unqualifiedOwner finds the single visible from-element declaring name.
// Inner scopes shadow outer ones.
func (r *scopeResolver) unqualifiedOwner(name string) (sqm.FromElement, error) {
	for c := r.clause; c != nil; c = c.Parent {
		var found []sqm.FromElement
		for _, e := range c.Elements() {
			if mt := sqm.ManagedTypeOf(e); mt != nil && mt.FindAttribute(name) != nil {
				found = append(found, e)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return nil, qerr.Semantic(name, "attribute %q is ambiguous between %q and %q",
				name, found[0].Alias(), found[1].Alias())
		}
	}
	return nil, nil
}

// navigate resolves attribute names starting at from-element src.
// Intermediate associations become implicit inner joins; intermediate
// embeddables stay on the owning element.
func (c *Context) navigate(src sqm.FromElement, names []string, text string) (sqm.Expression, error) {
	cur := src
	container := sqm.ManagedTypeOf(cur)
	for i, name := range names {
		if container == nil {
			return nil, qerr.Semantic(text, "cannot dereference %q: %s is not a managed type",
				name, cur.ModelType().TypeName())
		}
		attr := container.FindAttribute(name)
		if attr == nil {
			return nil, qerr.Unresolved(text, "could not resolve attribute %q of %s", name, container.TypeName())
		}
		if i == len(names)-1 {
			return &sqm.AttributeReference{Source: cur, Attribute: attr, Path: text}, nil
		}
		switch {
		case attr.Nature == model.NatureEmbedded:
			container = attr.Type.(model.ManagedType)
		case attr.Nature == model.NatureBasic:
			return nil, qerr.Semantic(text, "cannot dereference basic attribute %q", name)
		default:
			cur = c.implicitJoin(cur, attr)
			container = sqm.ManagedTypeOf(cur)
		}
	}
	return &sqm.FromElementReference{Element: cur}, nil
}

// navigateToElement resolves a path whose every part denotes a from-element,
// joining the final part implicitly when needed. Used for TREAT bases.
func (c *Context) navigateToElement(clause *sqm.FromClause, parts []string) (sqm.FromElement, error) {
	text := strings.Join(parts, ".")
	if clause == nil {
		return nil, qerr.Unresolved(text, "could not resolve path")
	}
	cur := clause.ResolveAlias(parts[0])
	if cur == nil {
		return nil, qerr.Unresolved(text, "could not resolve alias %q", parts[0])
	}
	for _, name := range parts[1:] {
		mt := sqm.ManagedTypeOf(cur)
		if mt == nil {
			return nil, qerr.Semantic(text, "cannot dereference %q", name)
		}
		attr := mt.FindAttribute(name)
		if attr == nil {
			return nil, qerr.Unresolved(text, "could not resolve attribute %q of %s", name, mt.TypeName())
		}
		if attr.Target == nil {
			return nil, qerr.Semantic(text, "%q is not an association", name)
		}
		cur = c.implicitJoin(cur, attr)
	}
	return cur, nil
}

// joinResolver is installed on a qualified attribute join. It resolves the
// join's right-hand path relative to the join's left-hand side and creates
// the join element with the declared alias, join type and fetch flag.
type joinResolver struct {
	ctx      *Context
	space    *sqm.FromElementSpace
	join     *parsetree.QualifiedJoin
	resolved sqm.FromElement
}

func newJoinResolver(ctx *Context, space *sqm.FromElementSpace, j *parsetree.QualifiedJoin) *joinResolver {
	return &joinResolver{ctx: ctx, space: space, join: j}
}

func joinPathError(text string, cause error) error {
	return &qerr.Error{
		Kind:     qerr.KindStructuralParse,
		Message:  "could not resolve join path",
		Fragment: text,
		Cause:    cause,
	}
}

func (r *joinResolver) ResolvePath(parts []string) (sqm.Expression, error) {
	if r.resolved != nil {
		return &sqm.FromElementReference{Element: r.resolved}, nil
	}
	text := strings.Join(parts, ".")
	if len(parts) < 2 {
		return nil, joinPathError(text, nil)
	}
	clause := r.space.Clause
	lhs := clause.ResolveAlias(parts[0])
	if lhs == nil {
		return nil, joinPathError(text, qerr.Unresolved(parts[0], "unknown alias"))
	}

	cur := lhs
	container := sqm.ManagedTypeOf(cur)
	var attr *model.Attribute
	for i, name := range parts[1:] {
		if container == nil {
			return nil, joinPathError(text, nil)
		}
		attr = container.FindAttribute(name)
		if attr == nil || attr.Nature == model.NatureBasic {
			return nil, joinPathError(text, qerr.Unresolved(name, "not a joinable attribute of %s", container.TypeName()))
		}
		if i == len(parts)-2 {
			break
		}
		if attr.Nature == model.NatureEmbedded {
			container = attr.Type.(model.ManagedType)
			continue
		}
		cur = r.ctx.implicitJoin(cur, attr)
		container = sqm.ManagedTypeOf(cur)
	}

	alias, err := r.ctx.declareAlias(r.join.Alias, attr.Name)
	if err != nil {
		return nil, err
	}
	typ := sqm.JoinInner
	if r.join.Kind == parsetree.JoinLeft {
		typ = sqm.JoinLeft
	}
	j := sqm.NewAttributeJoin(r.space, cur, attr, alias, typ, r.join.Fetch)
	if err := r.space.AddJoin(j); err != nil {
		return nil, qerr.Invariant("%v", err)
	}
	r.resolved = j
	return &sqm.FromElementReference{Element: j}, nil
}
