package sqm

import (
	"fmt"

	"github.com/roach88/oqlc/internal/model"
)

// StatementType tags a statement variant.
type StatementType int

const (
	StatementSelect StatementType = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

var statementNames = [...]string{"select", "insert", "update", "delete"}

// String returns the statement keyword.
func (t StatementType) String() string { return statementNames[t] }

// Statement is a complete semantic statement.
type Statement interface {
	StatementType() StatementType
	statement()
}

// SelectStatement is a select query with optional ordering.
type SelectStatement struct {
	Query   *QuerySpec
	OrderBy *OrderByClause
}

// StatementType implements Statement.
func (*SelectStatement) StatementType() StatementType { return StatementSelect }

// UpdateStatement is an update of one entity.
type UpdateStatement struct {
	From        *FromClause
	Target      *RootEntity
	Assignments []*Assignment
	Where       Predicate
}

// StatementType implements Statement.
func (*UpdateStatement) StatementType() StatementType { return StatementUpdate }

// Assignment is one `attribute = value` of an update.
type Assignment struct {
	Target *AttributeReference
	Value  Expression
}

// DeleteStatement is a delete from one entity.
type DeleteStatement struct {
	From   *FromClause
	Target *RootEntity
	Where  Predicate
}

// StatementType implements Statement.
func (*DeleteStatement) StatementType() StatementType { return StatementDelete }

func (*SelectStatement) statement() {}
func (*UpdateStatement) statement() {}
func (*DeleteStatement) statement() {}

// QuerySpec is one select-from-where block.
type QuerySpec struct {
	From   *FromClause
	Select *SelectClause
	Where  Predicate
}

// SetWhere attaches the where predicate. A query spec's where clause is
// attached at most once.
func (q *QuerySpec) SetWhere(p Predicate) error {
	if q.Where != nil {
		return fmt.Errorf("where clause already attached")
	}
	q.Where = p
	return nil
}

// SelectClause is the projection of a query spec. Inferred is set when the
// query omitted its select clause.
type SelectClause struct {
	Distinct  bool
	Inferred  bool
	Selection Selection
}

// Selection is the body of a select clause.
type Selection interface {
	selection()
}

// SelectList is an ordered list of aliased select items.
type SelectList struct {
	Items []*SelectItem
}

// SelectItem is one aliased expression.
type SelectItem struct {
	Expr  Expression
	Alias string
}

// DynamicInstantiation constructs Class from its arguments.
type DynamicInstantiation struct {
	Class *model.Class
	Args  []*InstantiationArg
}

// InstantiationArg is one argument; exactly one of Expr and Nested is set.
type InstantiationArg struct {
	Expr   Expression
	Nested *DynamicInstantiation
	Alias  string
}

func (*SelectList) selection()           {}
func (*DynamicInstantiation) selection() {}

// SortDirection is an order-by direction.
type SortDirection int

const (
	SortUnspecified SortDirection = iota
	SortAscending
	SortDescending
)

// OrderByClause lists sort specifications in order.
type OrderByClause struct {
	Items []*SortSpecification
}

// SortSpecification is one order-by item.
type SortSpecification struct {
	Expr      Expression
	Collation string
	Direction SortDirection
}
