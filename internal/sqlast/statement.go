package sqlast

// Statement is a lowered SQL statement.
//
// This is a sealed interface. Implementations: SelectStatement,
// UpdateStatement, DeleteStatement.
type Statement interface {
	statement()
}

// SelectStatement owns one query spec plus its ordering.
type SelectStatement struct {
	Query   *QuerySpec
	OrderBy []*SortSpecification
	Returns []*Return
}

// QuerySpec is one relational select: top level or nested.
type QuerySpec struct {
	Distinct  bool
	Selection []*SelectItem
	From      *FromClause
	Where     Predicate
}

// SelectItem is one projected value. Multi-column values render as a comma
// separated column list.
type SelectItem struct {
	Expr Expression
}

// SortDirection is an explicit ordering direction.
type SortDirection int

const (
	SortUnspecified SortDirection = iota
	SortAscending
	SortDescending
)

// SortSpecification is one order-by item.
type SortSpecification struct {
	Expr      Expression
	Collation string
	Direction SortDirection
}

// UpdateStatement is a single-table update. Column references in it carry
// no qualifier.
type UpdateStatement struct {
	Table       *TableReference
	Assignments []*Assignment
	Where       Predicate
}

// Assignment sets the target columns to the value.
type Assignment struct {
	Columns []*ColumnReference
	Value   Expression
}

// DeleteStatement is a single-table delete.
type DeleteStatement struct {
	Table *TableReference
	Where Predicate
}

func (*SelectStatement) statement() {}
func (*UpdateStatement) statement() {}
func (*DeleteStatement) statement() {}

// ReturnKind classifies a return descriptor.
type ReturnKind string

const (
	ReturnScalar        ReturnKind = "scalar"
	ReturnEntity        ReturnKind = "entity"
	ReturnInstantiation ReturnKind = "instantiation"
)

// Return describes how a consecutive run of result columns maps back to one
// select item. Instantiation returns describe their arguments in Args and
// occupy the sum of their columns.
type Return struct {
	Kind    ReturnKind `json:"kind"`
	Alias   string     `json:"alias,omitempty"`
	Type    string     `json:"type,omitempty"`
	Columns int        `json:"columns"`
	Args    []*Return  `json:"args,omitempty"`
}
