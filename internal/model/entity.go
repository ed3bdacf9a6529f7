package model

import "fmt"

// Nature classifies an attribute by how it is mapped.
type Nature int

const (
	NatureBasic Nature = iota
	NatureEmbedded
	NatureManyToOne
	NatureOneToOne
	NatureOneToMany
	NatureManyToMany
	NatureElementCollection
)

var natureNames = [...]string{
	NatureBasic:             "basic",
	NatureEmbedded:          "embedded",
	NatureManyToOne:         "many_to_one",
	NatureOneToOne:          "one_to_one",
	NatureOneToMany:         "one_to_many",
	NatureManyToMany:        "many_to_many",
	NatureElementCollection: "element_collection",
}

// String returns the schema keyword for the nature.
func (n Nature) String() string {
	if int(n) < len(natureNames) {
		return natureNames[n]
	}
	return fmt.Sprintf("nature(%d)", int(n))
}

// ParseNature maps a schema keyword back to a Nature.
func ParseNature(s string) (Nature, bool) {
	for i, name := range natureNames {
		if name == s {
			return Nature(i), true
		}
	}
	return 0, false
}

// IsPlural reports whether the attribute maps a collection.
func (n Nature) IsPlural() bool {
	return n == NatureOneToMany || n == NatureManyToMany || n == NatureElementCollection
}

// IsToOne reports whether the attribute is a singular association.
func (n Nature) IsToOne() bool {
	return n == NatureManyToOne || n == NatureOneToOne
}

// ManagedType is an entity or embeddable: a type with named attributes.
type ManagedType interface {
	Type
	FindAttribute(name string) *Attribute
	Attributes() []*Attribute
}

// CollectionMapping describes the physical layout of a plural attribute.
//
// KeyColumns live in Table and reference the owner's identifier columns.
// ElementColumns live in Table and hold either the element value (basic and
// embeddable elements) or a foreign key to the element entity's identifier.
// When Table is the element entity's own table the collection is mapped by a
// foreign key on the target and ElementColumns are the target's id columns.
type CollectionMapping struct {
	Table          string
	KeyColumns     []string
	ElementColumns []string
	Element        Type
}

// ElementEntity returns the element entity type, or nil for value collections.
func (m *CollectionMapping) ElementEntity() *EntityType {
	e, _ := m.Element.(*EntityType)
	return e
}

// Attribute describes one persistent attribute of a managed type.
//
// Columns are the attribute's columns in Table. For to-one associations they
// are the foreign key columns; for embedded attributes they are the flattened
// columns of every embedded attribute. Plural attributes own no columns in
// Table; see Collection.
type Attribute struct {
	Name    string
	Nature  Nature
	Type    Type
	Table   string
	Columns []string

	// Target is the associated entity for to-one and entity-valued plural
	// attributes.
	Target *EntityType

	// ReferencedProperty names a unique non-identifier attribute of Target
	// that the foreign key references instead of the identifier.
	ReferencedProperty string

	Collection *CollectionMapping

	Declarer ManagedType
}

// IsPlural reports whether the attribute maps a collection.
func (a *Attribute) IsPlural() bool { return a.Nature.IsPlural() }

// ColumnSpan is the number of columns a reference to this attribute spans.
// Plural attributes span their element columns.
func (a *Attribute) ColumnSpan() int {
	if a.Collection != nil {
		return len(a.Collection.ElementColumns)
	}
	return len(a.Columns)
}

// ReferencedColumns returns the target columns a to-one foreign key points at.
func (a *Attribute) ReferencedColumns() ([]string, string, error) {
	if a.Target == nil {
		return nil, "", fmt.Errorf("attribute %s is not an association", a.Name)
	}
	if a.ReferencedProperty == "" {
		id := a.Target.Identifier()
		if id == nil {
			return nil, "", fmt.Errorf("entity %s has no identifier", a.Target.Name)
		}
		return id.Columns, id.Table, nil
	}
	ref := a.Target.FindAttribute(a.ReferencedProperty)
	if ref == nil {
		return nil, "", fmt.Errorf("entity %s has no attribute %s referenced by %s",
			a.Target.Name, a.ReferencedProperty, a.Name)
	}
	return ref.Columns, ref.Table, nil
}

// EmbeddableType is a value type whose attributes are stored in the owner's
// table.
type EmbeddableType struct {
	Name  string
	attrs []*Attribute
}

// NewEmbeddable creates an embeddable with the given basic attributes.
func NewEmbeddable(name string, attrs ...*Attribute) *EmbeddableType {
	e := &EmbeddableType{Name: name}
	for _, a := range attrs {
		a.Declarer = e
		e.attrs = append(e.attrs, a)
	}
	return e
}

// TypeName implements Type.
func (e *EmbeddableType) TypeName() string { return e.Name }

// ColumnSpan implements Type.
func (e *EmbeddableType) ColumnSpan() int {
	n := 0
	for _, a := range e.attrs {
		n += a.ColumnSpan()
	}
	return n
}

// FindAttribute implements ManagedType.
func (e *EmbeddableType) FindAttribute(name string) *Attribute {
	for _, a := range e.attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attributes implements ManagedType.
func (e *EmbeddableType) Attributes() []*Attribute { return e.attrs }

// bind clones the embeddable for a particular owner table.
func (e *EmbeddableType) bind(table string) *EmbeddableType {
	c := &EmbeddableType{Name: e.Name}
	for _, a := range e.attrs {
		ca := *a
		ca.Table = table
		ca.Declarer = c
		ca.Columns = append([]string(nil), a.Columns...)
		c.attrs = append(c.attrs, &ca)
	}
	return c
}

// EntityType is an entity with its mapping information.
//
// Joined-subclass inheritance is modelled by Super: a subtype has its own
// table whose primary key columns repeat the root identifier's column names.
type EntityType struct {
	Name          string
	Table         string
	Discriminator string

	super    *EntityType
	subtypes []*EntityType
	id       *Attribute
	attrs    []*Attribute
	byName   map[string]*Attribute
}

// NewEntity creates an entity mapped to table.
func NewEntity(name, table string) *EntityType {
	return &EntityType{Name: name, Table: table, byName: map[string]*Attribute{}}
}

// TypeName implements Type.
func (e *EntityType) TypeName() string { return e.Name }

// ColumnSpan implements Type. An entity value spans its identifier.
func (e *EntityType) ColumnSpan() int {
	if id := e.Identifier(); id != nil {
		return len(id.Columns)
	}
	return 0
}

// Super returns the supertype, or nil for a hierarchy root.
func (e *EntityType) Super() *EntityType { return e.super }

// Subtypes returns the direct subtypes in declaration order.
func (e *EntityType) Subtypes() []*EntityType { return e.subtypes }

// Identifier returns the identifier attribute, inherited from the hierarchy
// root for subtypes.
func (e *EntityType) Identifier() *Attribute {
	for t := e; t != nil; t = t.super {
		if t.id != nil {
			return t.id
		}
	}
	return nil
}

// FindAttribute looks up an attribute declared on e or any supertype.
func (e *EntityType) FindAttribute(name string) *Attribute {
	for t := e; t != nil; t = t.super {
		if a, ok := t.byName[name]; ok {
			return a
		}
	}
	return nil
}

// Attributes returns declared and inherited attributes, supertype first.
func (e *EntityType) Attributes() []*Attribute {
	var chain []*EntityType
	for t := e; t != nil; t = t.super {
		chain = append(chain, t)
	}
	var out []*Attribute
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].attrs...)
	}
	return out
}

// DeclaredAttributes returns attributes declared directly on e.
func (e *EntityType) DeclaredAttributes() []*Attribute { return e.attrs }

// IsSubtypeOf reports whether e is other or inherits from it.
func (e *EntityType) IsSubtypeOf(other *EntityType) bool {
	for t := e; t != nil; t = t.super {
		if t == other {
			return true
		}
	}
	return false
}

// Root returns the hierarchy root.
func (e *EntityType) Root() *EntityType {
	t := e
	for t.super != nil {
		t = t.super
	}
	return t
}

// Extends makes e a joined subtype of super.
func (e *EntityType) Extends(super *EntityType) *EntityType {
	e.super = super
	super.subtypes = append(super.subtypes, e)
	return e
}

func (e *EntityType) add(a *Attribute) *EntityType {
	if a.Table == "" {
		a.Table = e.Table
	}
	a.Declarer = e
	e.attrs = append(e.attrs, a)
	e.byName[a.Name] = a
	return e
}

// ID declares the identifier attribute.
func (e *EntityType) ID(name string, typ Type, columns ...string) *EntityType {
	a := &Attribute{Name: name, Nature: NatureBasic, Type: typ, Columns: columns}
	e.id = a
	return e.add(a)
}

// CompositeID declares an identifier made of the columns of an embeddable key.
func (e *EntityType) CompositeID(name string, key *EmbeddableType) *EntityType {
	bound := key.bind(e.Table)
	var cols []string
	for _, a := range bound.attrs {
		cols = append(cols, a.Columns...)
	}
	a := &Attribute{Name: name, Nature: NatureEmbedded, Type: bound, Columns: cols}
	e.id = a
	return e.add(a)
}

// Basic declares a single-column basic attribute.
func (e *EntityType) Basic(name string, typ *BasicType, column string) *EntityType {
	return e.add(&Attribute{Name: name, Nature: NatureBasic, Type: typ, Columns: []string{column}})
}

// Embedded declares an embedded attribute stored in e's table.
func (e *EntityType) Embedded(name string, emb *EmbeddableType) *EntityType {
	bound := emb.bind(e.Table)
	var cols []string
	for _, a := range bound.attrs {
		cols = append(cols, a.Columns...)
	}
	return e.add(&Attribute{Name: name, Nature: NatureEmbedded, Type: bound, Columns: cols})
}

// ManyToOne declares a many-to-one association with the given foreign key
// columns.
func (e *EntityType) ManyToOne(name string, target *EntityType, columns ...string) *EntityType {
	return e.add(&Attribute{Name: name, Nature: NatureManyToOne, Type: target, Target: target, Columns: columns})
}

// OneToOne declares a one-to-one association with the given foreign key
// columns.
func (e *EntityType) OneToOne(name string, target *EntityType, columns ...string) *EntityType {
	return e.add(&Attribute{Name: name, Nature: NatureOneToOne, Type: target, Target: target, Columns: columns})
}

// ReferencingProperty makes the most recently declared to-one association
// reference a unique non-identifier property of its target.
func (e *EntityType) ReferencingProperty(property string) *EntityType {
	if len(e.attrs) > 0 {
		e.attrs[len(e.attrs)-1].ReferencedProperty = property
	}
	return e
}

// OneToMany declares an entity-valued collection.
func (e *EntityType) OneToMany(name string, target *EntityType, m CollectionMapping) *EntityType {
	m.Element = target
	return e.add(&Attribute{Name: name, Nature: NatureOneToMany, Type: target, Target: target, Collection: &m})
}

// ManyToMany declares an entity-valued collection mapped through a join table.
func (e *EntityType) ManyToMany(name string, target *EntityType, m CollectionMapping) *EntityType {
	m.Element = target
	return e.add(&Attribute{Name: name, Nature: NatureManyToMany, Type: target, Target: target, Collection: &m})
}

// ElementCollection declares a collection of basic values.
func (e *EntityType) ElementCollection(name string, element *BasicType, m CollectionMapping) *EntityType {
	m.Element = element
	return e.add(&Attribute{Name: name, Nature: NatureElementCollection, Type: element, Collection: &m})
}
