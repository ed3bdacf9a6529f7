package semantic

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// Options configures a compilation.
type Options struct {
	Metamodel model.Metamodel
	Symbols   model.SymbolTable
	Logger    *slog.Logger
}

// Context is the mutable state of one compilation: the from-clause stack,
// the current from-element space, the generated-alias counter and the
// implicit join registry.
//
// A Context must not be shared between compilations. The metamodel and
// symbol table it points at are shared read-only.
type Context struct {
	metamodel model.Metamodel
	symbols   model.SymbolTable
	logger    *slog.Logger

	aliasSeq int
	clauses  []*sqm.FromClause
	space    *sqm.FromElementSpace
	implicit map[implicitKey]*sqm.AttributeJoin
	treats   map[treatKey]*sqm.Treated
}

type treatKey struct {
	base   sqm.FromElement
	target *model.EntityType
}

type implicitKey struct {
	lhs  sqm.FromElement
	attr *model.Attribute
}

// NewContext creates the state for one compilation.
func NewContext(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		metamodel: opts.Metamodel,
		symbols:   opts.Symbols,
		logger:    logger,
		implicit:  map[implicitKey]*sqm.AttributeJoin{},
		treats:    map[treatKey]*sqm.Treated{},
	}
}

// Logger returns the compilation logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// currentClause returns the innermost from clause, or nil outside any query.
func (c *Context) currentClause() *sqm.FromClause {
	if len(c.clauses) == 0 {
		return nil
	}
	return c.clauses[len(c.clauses)-1]
}

func (c *Context) pushClause() *sqm.FromClause {
	fc := sqm.NewFromClause(c.currentClause())
	c.clauses = append(c.clauses, fc)
	return fc
}

func (c *Context) popClause() {
	c.clauses = c.clauses[:len(c.clauses)-1]
}

// generateAlias returns a statement-unique alias for an unaliased element.
// Generated aliases start with an underscore, which query text cannot use.
func (c *Context) generateAlias(typeName string) string {
	c.aliasSeq++
	r, _ := utf8.DecodeRuneInString(typeName)
	if r == utf8.RuneError {
		r = 'x'
	}
	return fmt.Sprintf("_%c%d", unicode.ToLower(r), c.aliasSeq)
}

// declareAlias returns the alias to use for a new element, checking
// explicit aliases for collisions in the visible scope chain.
func (c *Context) declareAlias(explicit, typeName string) (string, error) {
	if explicit == "" {
		return c.generateAlias(typeName), nil
	}
	if strings.HasPrefix(explicit, "_") {
		return "", qerr.Semantic(explicit, "alias must not start with an underscore")
	}
	if fc := c.currentClause(); fc != nil && fc.ResolveAlias(explicit) != nil {
		return "", qerr.Semantic(explicit, "alias %q is already defined", explicit)
	}
	return explicit, nil
}

// resolveEntity resolves an entity name or fails with UNRESOLVED_NAME.
func (c *Context) resolveEntity(name string) (*model.EntityType, error) {
	if c.metamodel == nil {
		return nil, qerr.Unresolved(name, "no metamodel configured")
	}
	e := c.metamodel.ResolveEntityType(name)
	if e == nil {
		return nil, qerr.Unresolved(name, "could not resolve entity %q", name)
	}
	return e, nil
}

// implicitJoin returns the implicit inner join of attr off lhs, creating it
// on first use.
func (c *Context) implicitJoin(lhs sqm.FromElement, attr *model.Attribute) *sqm.AttributeJoin {
	key := implicitKey{lhs: lhs, attr: attr}
	if j, ok := c.implicit[key]; ok {
		return j
	}
	space := lhs.Space()
	j := sqm.NewAttributeJoin(space, lhs, attr, c.generateAlias(attr.Name), sqm.JoinInner, false)
	j.Implicit = true
	space.AddImplicitJoin(j)
	c.implicit[key] = j
	return j
}

// treat records target on base's treated-as set and returns the shared
// Treated view of base as target.
func (c *Context) treat(base sqm.FromElement, target *model.EntityType) *sqm.Treated {
	base.AddTreatedAs(target)
	key := treatKey{base: base, target: target}
	if t, ok := c.treats[key]; ok {
		return t
	}
	t := &sqm.Treated{Base: base, Target: target}
	c.treats[key] = t
	return t
}
