package sqlast

import "github.com/roach88/oqlc/internal/model"

// JoinType is the SQL join kind of a table group join or table join.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinCross
)

// Keyword returns the SQL keyword sequence introducing a join.
func (t JoinType) Keyword() string {
	switch t {
	case JoinLeft:
		return "left join"
	case JoinCross:
		return "cross join"
	}
	return "join"
}

func (t JoinType) String() string {
	switch t {
	case JoinLeft:
		return "left"
	case JoinCross:
		return "cross"
	}
	return "inner"
}

// FromClause owns table spaces in declared order.
type FromClause struct {
	Spaces []*TableSpace
}

// TableSpace is the lowering of one from-element space.
type TableSpace struct {
	Root  TableGroup
	Joins []*TableGroupJoin
}

// TableGroupJoin joins a table group into its space.
//
// Predicate is nil only for cross joins.
type TableGroupJoin struct {
	Type      JoinType
	Group     TableGroup
	Predicate Predicate
}

// TableReference is one physical table bound to an alias, e.g. `person p1_0`.
type TableReference struct {
	Table string
	Alias string
}

// TableJoin is an intra-group join between physical tables of one group.
type TableJoin struct {
	Type      JoinType
	Table     *TableReference
	Predicate Predicate
}

// TableGroup is the relational lowering of one from element.
//
// This is a sealed interface. Implementations:
//   - EntityTableGroup: an entity's table plus joined-subclass tables
//   - CollectionTableGroup: a collection table, optionally joined to the
//     element entity's tables
type TableGroup interface {
	// AliasBase returns the alias stem shared by every table in the group.
	AliasBase() string

	// Root returns the group's primary table binding.
	Root() *TableReference

	// TableJoins returns the intra-group table joins in render order.
	TableJoins() []*TableJoin

	// Table returns the binding for a physical table, or nil.
	Table(name string) *TableReference

	tableGroup()
}

// EntityTableGroup is the table group of an entity from element.
//
// The root binding is the entity's own table. Supertype tables are joined
// inner, subtype tables left outer.
type EntityTableGroup struct {
	Entity *model.EntityType
	Base   string

	root  *TableReference
	joins []*TableJoin
}

// NewEntityTableGroup creates a group rooted at the entity's own table.
func NewEntityTableGroup(entity *model.EntityType, base string, root *TableReference) *EntityTableGroup {
	return &EntityTableGroup{Entity: entity, Base: base, root: root}
}

// AddTableJoin appends an intra-group join.
func (g *EntityTableGroup) AddTableJoin(j *TableJoin) { g.joins = append(g.joins, j) }

func (g *EntityTableGroup) AliasBase() string         { return g.Base }
func (g *EntityTableGroup) Root() *TableReference     { return g.root }
func (g *EntityTableGroup) TableJoins() []*TableJoin  { return g.joins }
func (g *EntityTableGroup) Table(name string) *TableReference {
	return findTable(g.root, g.joins, name)
}
func (*EntityTableGroup) tableGroup() {}

// CollectionTableGroup is the table group of a plural attribute join.
//
// The root binding is the collection table. For many-to-many collections
// Element is the target entity's group, whose tables are appended as
// intra-group joins; for element collections and one-to-many collections
// stored in the target's table Element is nil.
type CollectionTableGroup struct {
	Attribute *model.Attribute
	Base      string
	Element   *EntityTableGroup

	root  *TableReference
	joins []*TableJoin
}

// NewCollectionTableGroup creates a group rooted at the collection table.
func NewCollectionTableGroup(attr *model.Attribute, base string, root *TableReference) *CollectionTableGroup {
	return &CollectionTableGroup{Attribute: attr, Base: base, root: root}
}

// AddTableJoin appends an intra-group join.
func (g *CollectionTableGroup) AddTableJoin(j *TableJoin) { g.joins = append(g.joins, j) }

func (g *CollectionTableGroup) AliasBase() string        { return g.Base }
func (g *CollectionTableGroup) Root() *TableReference    { return g.root }
func (g *CollectionTableGroup) TableJoins() []*TableJoin { return g.joins }
func (g *CollectionTableGroup) Table(name string) *TableReference {
	return findTable(g.root, g.joins, name)
}
func (*CollectionTableGroup) tableGroup() {}

func findTable(root *TableReference, joins []*TableJoin, name string) *TableReference {
	if root.Table == name {
		return root
	}
	for _, j := range joins {
		if j.Table.Table == name {
			return j.Table
		}
	}
	return nil
}

// References returns every table binding of g: root first, then joins.
func References(g TableGroup) []*TableReference {
	refs := []*TableReference{g.Root()}
	for _, j := range g.TableJoins() {
		refs = append(refs, j.Table)
	}
	return refs
}
