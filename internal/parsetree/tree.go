// Package parsetree defines the syntax tree the compiler consumes.
//
// The tree is produced by an external parser and is read-only to the
// compiler. Node identity matters: the scope indexer keys its side table by
// node pointer, so two textually identical sibling clauses remain distinct.
//
// Operator nodes keep their operands as slices rather than fixed fields so
// that the builder can report arity mismatches instead of the tree silently
// dropping operands.
package parsetree

import "strings"

// Node is any syntax tree node.
type Node interface {
	node()
}

// Statement is the root of a parsed query.
type Statement interface {
	Node
	statement()
}

// Expression is a value-producing syntax node.
type Expression interface {
	Node
	expression()
}

// Predicate is a boolean-valued syntax node.
type Predicate interface {
	Node
	predicate()
}

// Selection is the body of a select clause.
type Selection interface {
	Node
	selection()
}

// Join is a join within a from-element space.
type Join interface {
	Node
	join()
}

// ---------------------------------------------------------------------------
// Statements

// SelectStatement is a select query with optional ordering.
type SelectStatement struct {
	Query   *QuerySpec
	OrderBy []*SortSpec
}

// UpdateStatement is `update Entity alias set ... where ...`.
type UpdateStatement struct {
	Entity      string
	Alias       string
	Assignments []*Assignment
	Where       Predicate
}

// DeleteStatement is `delete from Entity alias where ...`.
type DeleteStatement struct {
	Entity string
	Alias  string
	Where  Predicate
}

// InsertStatement is `insert into Entity (paths) select ...`.
type InsertStatement struct {
	Entity  string
	Targets []*Path
	Query   *QuerySpec
}

// Assignment is one `path = value` of an update.
type Assignment struct {
	Target *Path
	Value  Expression
}

// QuerySpec is one select-from-where block. Select is nil when omitted.
type QuerySpec struct {
	Select *SelectClause
	From   *FromClause
	Where  Predicate
}

// SortDirection is an order-by direction; the zero value means unspecified.
type SortDirection int

const (
	SortUnspecified SortDirection = iota
	SortAscending
	SortDescending
)

// SortSpec is one order-by item.
type SortSpec struct {
	Expr      Expression
	Collation string
	Direction SortDirection
}

// ---------------------------------------------------------------------------
// From clause

// FromClause lists from-element spaces in declaration order.
type FromClause struct {
	Spaces []*FromElementSpace
}

// FromElementSpace is a root entity plus the joins chained off it.
type FromElementSpace struct {
	Root  *RootEntity
	Joins []Join
}

// RootEntity is the root of a from-element space. Alias may be empty.
type RootEntity struct {
	Entity string
	Alias  string
}

// CrossJoin is `cross join Entity alias`.
type CrossJoin struct {
	Entity string
	Alias  string
}

// JoinKind is the declared join type of a qualified join.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// String returns the keyword for the join kind.
func (k JoinKind) String() string {
	if k == JoinLeft {
		return "left"
	}
	return "inner"
}

// QualifiedJoin is `[inner|left] join [fetch] <target> alias [on ...]`.
// Exactly one of Path (attribute join) and Entity (entity join) is set.
type QualifiedJoin struct {
	Kind   JoinKind
	Fetch  bool
	Path   *Path
	Entity string
	Alias  string
	On     Predicate
}

// ---------------------------------------------------------------------------
// Select clause

// SelectClause is the select clause of a query spec.
type SelectClause struct {
	Distinct  bool
	Selection Selection
}

// SelectList is an explicit list of select items.
type SelectList struct {
	Items []*SelectItem
}

// SelectItem is one aliased select expression.
type SelectItem struct {
	Expr  Expression
	Alias string
}

// DynamicInstantiation is `new Class(args...)`.
type DynamicInstantiation struct {
	Target string
	Args   []*InstantiationArg
}

// InstantiationArg is one constructor argument. Exactly one of Expr and
// Nested is set.
type InstantiationArg struct {
	Expr   Expression
	Nested *DynamicInstantiation
	Alias  string
}

// JPASelect is the `select alias` form.
type JPASelect struct {
	Alias string
}

// ---------------------------------------------------------------------------
// Expressions

// Path is a dotted identifier sequence.
type Path struct {
	Parts []string
}

// NewPath splits dotted text into a Path.
func NewPath(text string) *Path {
	return &Path{Parts: strings.Split(text, ".")}
}

// Text returns the dotted text of the path.
func (p *Path) Text() string {
	return strings.Join(p.Parts, ".")
}

// TreatPath is `treat(base as Target)` optionally followed by `.rest`.
type TreatPath struct {
	Base   *Path
	Target string
	Rest   []string
}

// IndexedPath is `base[index]` optionally followed by `.rest`.
type IndexedPath struct {
	Base  *Path
	Index Expression
	Rest  []string
}

// NamedParameter is `:name`.
type NamedParameter struct {
	Name string
}

// PositionalParameter is `?n`.
type PositionalParameter struct {
	Position int
}

// LiteralKind is the lexical kind of a literal token.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralCharacter
	LiteralInteger
	LiteralLong
	LiteralBigInteger
	LiteralFloat
	LiteralDouble
	LiteralBigDecimal
	LiteralHex
	LiteralOctal
	LiteralTrue
	LiteralFalse
	LiteralNull
)

// Literal is a literal token with its raw text (suffix included).
type Literal struct {
	Kind LiteralKind
	Text string
}

// UnaryOperator is a sign operator.
type UnaryOperator int

const (
	UnaryMinus UnaryOperator = iota
	UnaryPlus
)

// Unary is a signed expression.
type Unary struct {
	Op      UnaryOperator
	Operand Expression
}

// ArithmeticOperator is a binary arithmetic operator.
type ArithmeticOperator int

const (
	OpAdd ArithmeticOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

var arithmeticSymbols = [...]string{"+", "-", "*", "/", "%"}

// String returns the operator symbol.
func (o ArithmeticOperator) String() string {
	if int(o) < len(arithmeticSymbols) {
		return arithmeticSymbols[o]
	}
	return "?"
}

// Binary is a binary arithmetic expression.
type Binary struct {
	Op       ArithmeticOperator
	Operands []Expression
}

// Concat is `a || b`.
type Concat struct {
	Operands []Expression
}

// Function is a non-standard function call `name(args...)`.
type Function struct {
	Name string
	Args []Expression
}

// Aggregate is avg, sum, min, max or count. Star is count(*).
type Aggregate struct {
	Name     string
	Distinct bool
	Star     bool
	Arg      Expression
}

// Coalesce is `coalesce(args...)`.
type Coalesce struct {
	Args []Expression
}

// NullIf is `nullif(a, b)`.
type NullIf struct {
	Args []Expression
}

// SimpleCase is `case operand when v then r ... else e end`.
type SimpleCase struct {
	Operand Expression
	Whens   []*SimpleWhen
	Else    Expression
}

// SimpleWhen is one branch of a simple case.
type SimpleWhen struct {
	Value  Expression
	Result Expression
}

// SearchedCase is `case when p then r ... else e end`.
type SearchedCase struct {
	Whens []*SearchedWhen
	Else  Expression
}

// SearchedWhen is one branch of a searched case.
type SearchedWhen struct {
	Condition Predicate
	Result    Expression
}

// Subquery is a parenthesized query used as a scalar value.
type Subquery struct {
	Query *QuerySpec
}

// ---------------------------------------------------------------------------
// Predicates

// And is a binary conjunction.
type And struct {
	Operands []Predicate
}

// Or is a binary disjunction.
type Or struct {
	Operands []Predicate
}

// Not is a negated predicate.
type Not struct {
	Operand Predicate
}

// Group is a parenthesized predicate.
type Group struct {
	Operand Predicate
}

// ComparisonOperator is a relational operator.
type ComparisonOperator int

const (
	CmpEqual ComparisonOperator = iota
	CmpNotEqual
	CmpGreater
	CmpGreaterOrEqual
	CmpLess
	CmpLessOrEqual
)

var comparisonSymbols = [...]string{"=", "<>", ">", ">=", "<", "<="}

// String returns the SQL symbol for the operator.
func (o ComparisonOperator) String() string {
	if int(o) < len(comparisonSymbols) {
		return comparisonSymbols[o]
	}
	return "?"
}

// Relational is `lhs op rhs`.
type Relational struct {
	Op       ComparisonOperator
	Operands []Expression
}

// Between is `expr [not] between low and high`.
type Between struct {
	Expr    Expression
	Low     Expression
	High    Expression
	Negated bool
}

// Like is `expr [not] like pattern [escape e]`.
type Like struct {
	Expr    Expression
	Pattern Expression
	Escape  Expression
	Negated bool
}

// IsNull is `expr is [not] null`.
type IsNull struct {
	Expr    Expression
	Negated bool
}

// IsEmpty is `path is [not] empty`.
type IsEmpty struct {
	Expr    Expression
	Negated bool
}

// MemberOf is `expr [not] member of path`.
type MemberOf struct {
	Expr       Expression
	Collection Expression
	Negated    bool
}

// InList is `expr [not] in (values...)`.
type InList struct {
	Expr    Expression
	List    []Expression
	Negated bool
}

// InSubquery is `expr [not] in (select ...)`.
type InSubquery struct {
	Expr    Expression
	Query   *QuerySpec
	Negated bool
}

// ---------------------------------------------------------------------------
// Marker methods

func (*SelectStatement) node()      {}
func (*UpdateStatement) node()      {}
func (*DeleteStatement) node()      {}
func (*InsertStatement) node()      {}
func (*SelectStatement) statement() {}
func (*UpdateStatement) statement() {}
func (*DeleteStatement) statement() {}
func (*InsertStatement) statement() {}

func (*CrossJoin) node()     {}
func (*QualifiedJoin) node() {}
func (*CrossJoin) join()     {}
func (*QualifiedJoin) join() {}

func (*SelectList) node()                {}
func (*DynamicInstantiation) node()      {}
func (*JPASelect) node()                 {}
func (*SelectList) selection()           {}
func (*DynamicInstantiation) selection() {}
func (*JPASelect) selection()            {}

func (*Path) node()                {}
func (*TreatPath) node()           {}
func (*IndexedPath) node()         {}
func (*NamedParameter) node()      {}
func (*PositionalParameter) node() {}
func (*Literal) node()             {}
func (*Unary) node()               {}
func (*Binary) node()              {}
func (*Concat) node()              {}
func (*Function) node()            {}
func (*Aggregate) node()           {}
func (*Coalesce) node()            {}
func (*NullIf) node()              {}
func (*SimpleCase) node()          {}
func (*SearchedCase) node()        {}
func (*Subquery) node()            {}

func (*Path) expression()                {}
func (*TreatPath) expression()           {}
func (*IndexedPath) expression()         {}
func (*NamedParameter) expression()      {}
func (*PositionalParameter) expression() {}
func (*Literal) expression()             {}
func (*Unary) expression()               {}
func (*Binary) expression()              {}
func (*Concat) expression()              {}
func (*Function) expression()            {}
func (*Aggregate) expression()           {}
func (*Coalesce) expression()            {}
func (*NullIf) expression()              {}
func (*SimpleCase) expression()          {}
func (*SearchedCase) expression()        {}
func (*Subquery) expression()            {}

func (*And) node()        {}
func (*Or) node()         {}
func (*Not) node()        {}
func (*Group) node()      {}
func (*Relational) node() {}
func (*Between) node()    {}
func (*Like) node()       {}
func (*IsNull) node()     {}
func (*IsEmpty) node()    {}
func (*MemberOf) node()   {}
func (*InList) node()     {}
func (*InSubquery) node() {}

func (*And) predicate()        {}
func (*Or) predicate()         {}
func (*Not) predicate()        {}
func (*Group) predicate()      {}
func (*Relational) predicate() {}
func (*Between) predicate()    {}
func (*Like) predicate()       {}
func (*IsNull) predicate()     {}
func (*IsEmpty) predicate()    {}
func (*MemberOf) predicate()   {}
func (*InList) predicate()     {}
func (*InSubquery) predicate() {}

func (*QuerySpec) node()        {}
func (*FromClause) node()       {}
func (*FromElementSpace) node() {}
func (*RootEntity) node()       {}
func (*SelectClause) node()     {}
