package sqm

// Predicate is a boolean-valued SQM node.
type Predicate interface {
	predicate()
}

// ComparisonOperator is a relational operator.
type ComparisonOperator int

const (
	Equal ComparisonOperator = iota
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

var comparisonSymbols = [...]string{"=", "<>", ">", ">=", "<", "<="}

// String returns the SQL symbol.
func (o ComparisonOperator) String() string { return comparisonSymbols[o] }

// And is a binary conjunction.
type And struct {
	Left  Predicate
	Right Predicate
}

// Or is a binary disjunction.
type Or struct {
	Left  Predicate
	Right Predicate
}

// Negated is `not (p)`.
type Negated struct {
	Operand Predicate
}

// Grouped is a parenthesized predicate.
type Grouped struct {
	Operand Predicate
}

// Relational is `left op right`.
type Relational struct {
	Op    ComparisonOperator
	Left  Expression
	Right Expression
}

// Between is `expr [not] between low and high`.
type Between struct {
	Expr    Expression
	Low     Expression
	High    Expression
	Negated bool
}

// Like is `expr [not] like pattern [escape escape]`.
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

// IsEmpty is `collection is [not] empty`. Collection always references a
// plural attribute.
type IsEmpty struct {
	Collection *AttributeReference
	Negated    bool
}

// MemberOf is `expr [not] member of collection`. Collection always
// references a plural attribute.
type MemberOf struct {
	Expr       Expression
	Collection *AttributeReference
	Negated    bool
}

// InList is `expr [not] in (list...)`.
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

func (*And) predicate()        {}
func (*Or) predicate()         {}
func (*Negated) predicate()    {}
func (*Grouped) predicate()    {}
func (*Relational) predicate() {}
func (*Between) predicate()    {}
func (*Like) predicate()       {}
func (*IsNull) predicate()     {}
func (*IsEmpty) predicate()    {}
func (*MemberOf) predicate()   {}
func (*InList) predicate()     {}
func (*InSubquery) predicate() {}
