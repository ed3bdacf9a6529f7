package sqm

import (
	"fmt"

	"github.com/roach88/oqlc/internal/model"
)

// JoinType is the SQL join type of a from-element.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinCross
)

// String returns the join type name.
func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "left"
	case JoinCross:
		return "cross"
	}
	return "inner"
}

// FromClause is a query scope.
type FromClause struct {
	Parent   *FromClause
	Children []*FromClause
	Spaces   []*FromElementSpace
}

// NewFromClause creates a from clause nested in parent (nil for the root).
func NewFromClause(parent *FromClause) *FromClause {
	fc := &FromClause{Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, fc)
	}
	return fc
}

// NewSpace appends an empty from-element space.
func (fc *FromClause) NewSpace() *FromElementSpace {
	s := &FromElementSpace{Clause: fc}
	fc.Spaces = append(fc.Spaces, s)
	return s
}

// Elements returns the explicit from-elements of every space in declaration
// order: each space's root followed by its joins.
func (fc *FromClause) Elements() []FromElement {
	var out []FromElement
	for _, s := range fc.Spaces {
		out = append(out, s.Elements()...)
	}
	return out
}

// LocalAlias finds a from-element declared in this clause only.
func (fc *FromClause) LocalAlias(alias string) FromElement {
	for _, s := range fc.Spaces {
		for _, e := range s.Elements() {
			if e.Alias() == alias {
				return e
			}
		}
	}
	return nil
}

// ResolveAlias finds a from-element by alias in this clause or any enclosing
// clause, innermost first.
func (fc *FromClause) ResolveAlias(alias string) FromElement {
	for c := fc; c != nil; c = c.Parent {
		if e := c.LocalAlias(alias); e != nil {
			return e
		}
	}
	return nil
}

// FromElementSpace is a root from-element plus the joins chained off it.
type FromElementSpace struct {
	Clause   *FromClause
	Root     FromElement
	Joins    []FromElement
	Implicit []*AttributeJoin

	completed bool
}

// SetRoot installs the root from-element.
func (s *FromElementSpace) SetRoot(e FromElement) error {
	if s.completed {
		return fmt.Errorf("from-element space is complete")
	}
	if s.Root != nil {
		return fmt.Errorf("from-element space already has root %q", s.Root.Alias())
	}
	s.Root = e
	return nil
}

// AddJoin appends an explicit join.
func (s *FromElementSpace) AddJoin(e FromElement) error {
	if s.completed {
		return fmt.Errorf("from-element space is complete")
	}
	s.Joins = append(s.Joins, e)
	return nil
}

// AddImplicitJoin records a join created while resolving a dotted path.
func (s *FromElementSpace) AddImplicitJoin(j *AttributeJoin) {
	s.Implicit = append(s.Implicit, j)
}

// Complete freezes the explicit element list.
func (s *FromElementSpace) Complete() { s.completed = true }

// Completed reports whether Complete has been called.
func (s *FromElementSpace) Completed() bool { return s.completed }

// Elements returns the root followed by the explicit joins.
func (s *FromElementSpace) Elements() []FromElement {
	out := make([]FromElement, 0, 1+len(s.Joins))
	if s.Root != nil {
		out = append(out, s.Root)
	}
	return append(out, s.Joins...)
}

// FromElement is one named source of rows.
type FromElement interface {
	Alias() string
	Space() *FromElementSpace
	JoinType() JoinType
	Fetch() bool

	// ModelType is the type the element ranges over: an entity, an
	// embeddable or, for value collections, a basic type.
	ModelType() model.Type

	// TreatedAs returns the accumulated TREAT targets in first-seen order.
	TreatedAs() []*model.EntityType

	// AddTreatedAs records a TREAT target. It reports whether the set changed.
	AddTreatedAs(*model.EntityType) bool

	fromElement()
}

// element holds the state shared by every from-element kind.
type element struct {
	alias   string
	space   *FromElementSpace
	treated []*model.EntityType
}

func (e *element) Alias() string                  { return e.alias }
func (e *element) Space() *FromElementSpace       { return e.space }
func (e *element) TreatedAs() []*model.EntityType { return e.treated }

func (e *element) AddTreatedAs(t *model.EntityType) bool {
	for _, existing := range e.treated {
		if existing == t {
			return false
		}
	}
	e.treated = append(e.treated, t)
	return true
}

// RootEntity is the root of a from-element space.
type RootEntity struct {
	element
	Entity *model.EntityType
}

// NewRootEntity creates a root entity element owned by space.
func NewRootEntity(space *FromElementSpace, entity *model.EntityType, alias string) *RootEntity {
	return &RootEntity{element: element{alias: alias, space: space}, Entity: entity}
}

func (*RootEntity) JoinType() JoinType         { return JoinInner }
func (*RootEntity) Fetch() bool                { return false }
func (r *RootEntity) ModelType() model.Type    { return r.Entity }
func (*RootEntity) fromElement()               {}

// CrossJoin is an entity joined without a predicate.
type CrossJoin struct {
	element
	Entity *model.EntityType
}

// NewCrossJoin creates a cross join element owned by space.
func NewCrossJoin(space *FromElementSpace, entity *model.EntityType, alias string) *CrossJoin {
	return &CrossJoin{element: element{alias: alias, space: space}, Entity: entity}
}

func (*CrossJoin) JoinType() JoinType      { return JoinCross }
func (*CrossJoin) Fetch() bool             { return false }
func (c *CrossJoin) ModelType() model.Type { return c.Entity }
func (*CrossJoin) fromElement()            {}

// AttributeJoin joins an attribute of Lhs. Implicit joins are created by
// path dereference rather than declared in the from clause.
type AttributeJoin struct {
	element
	Lhs       FromElement
	Attribute *model.Attribute
	Type      JoinType
	FetchJoin bool
	Implicit  bool
	On        Predicate
}

// NewAttributeJoin creates an attribute join element owned by space.
func NewAttributeJoin(space *FromElementSpace, lhs FromElement, attr *model.Attribute, alias string, typ JoinType, fetch bool) *AttributeJoin {
	return &AttributeJoin{
		element:   element{alias: alias, space: space},
		Lhs:       lhs,
		Attribute: attr,
		Type:      typ,
		FetchJoin: fetch,
	}
}

func (j *AttributeJoin) JoinType() JoinType { return j.Type }
func (j *AttributeJoin) Fetch() bool        { return j.FetchJoin }
func (*AttributeJoin) fromElement()         {}

// ModelType returns the collection element type for plural attributes and
// the attribute type otherwise.
func (j *AttributeJoin) ModelType() model.Type {
	if j.Attribute.Collection != nil {
		return j.Attribute.Collection.Element
	}
	return j.Attribute.Type
}

// EntityJoin joins an unrelated entity with an explicit ON predicate.
type EntityJoin struct {
	element
	Entity *model.EntityType
	Type   JoinType
	On     Predicate
}

// NewEntityJoin creates an entity join element owned by space.
func NewEntityJoin(space *FromElementSpace, entity *model.EntityType, alias string, typ JoinType) *EntityJoin {
	return &EntityJoin{element: element{alias: alias, space: space}, Entity: entity, Type: typ}
}

func (j *EntityJoin) JoinType() JoinType   { return j.Type }
func (*EntityJoin) Fetch() bool            { return false }
func (j *EntityJoin) ModelType() model.Type { return j.Entity }
func (*EntityJoin) fromElement()           {}

// Treated views Base as the subtype Target. It is not owned by a space;
// Space, Alias and the treated-as set delegate to Base.
type Treated struct {
	Base   FromElement
	Target *model.EntityType
}

func (t *Treated) Alias() string                         { return t.Base.Alias() }
func (t *Treated) Space() *FromElementSpace              { return t.Base.Space() }
func (t *Treated) JoinType() JoinType                    { return t.Base.JoinType() }
func (t *Treated) Fetch() bool                           { return t.Base.Fetch() }
func (t *Treated) ModelType() model.Type                 { return t.Target }
func (t *Treated) TreatedAs() []*model.EntityType        { return t.Base.TreatedAs() }
func (t *Treated) AddTreatedAs(e *model.EntityType) bool { return t.Base.AddTreatedAs(e) }
func (*Treated) fromElement()                            {}

// Joined reports whether the treated element is a join rather than a root.
func (t *Treated) Joined() bool {
	_, root := Underlying(t.Base).(*RootEntity)
	return !root
}

// Underlying strips Treated wrappers.
func Underlying(e FromElement) FromElement {
	for {
		t, ok := e.(*Treated)
		if !ok {
			return e
		}
		e = t.Base
	}
}

// ManagedTypeOf returns the attribute container for e: its entity or
// embeddable type, or nil for value collections.
func ManagedTypeOf(e FromElement) model.ManagedType {
	mt, _ := e.ModelType().(model.ManagedType)
	return mt
}
