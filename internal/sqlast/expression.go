package sqlast

import "github.com/roach88/oqlc/internal/model"

// Expression is a SQL value expression.
//
// This is a sealed interface. ColumnSpan reports how many physical columns
// the value occupies; the renderer parenthesises spans above one inside
// predicates.
type Expression interface {
	ColumnSpan() int
	expression()
}

// ColumnReference is a physical column qualified by a table alias. An empty
// qualifier renders the bare column (DML target tables).
type ColumnReference struct {
	Qualifier string
	Column    string
	Type      *model.BasicType
}

func (*ColumnReference) ColumnSpan() int { return 1 }
func (*ColumnReference) expression()     {}

// Tuple is a multi-column value, e.g. a composite key or an embeddable.
type Tuple struct {
	Items []Expression
}

// ColumnSpan sums the spans of the items.
func (t *Tuple) ColumnSpan() int {
	n := 0
	for _, e := range t.Items {
		n += e.ColumnSpan()
	}
	return n
}
func (*Tuple) expression() {}

// QueryLiteral is a typed literal value. It renders inline only inside the
// select list and as a binder everywhere else.
type QueryLiteral struct {
	Value any
	Type  *model.BasicType
}

func (*QueryLiteral) ColumnSpan() int { return 1 }
func (*QueryLiteral) expression()     {}

// ParameterSource distinguishes named from positional parameters.
type ParameterSource int

const (
	ParameterNamed ParameterSource = iota
	ParameterPositional
)

// Parameter is a query parameter spanning one column per entry of Types.
// A parameter whose type could not be inferred has a single nil type.
type Parameter struct {
	Source   ParameterSource
	Name     string
	Position int
	Types    []*model.BasicType
}

// ColumnSpan returns the number of placeholders the parameter renders.
func (p *Parameter) ColumnSpan() int {
	if len(p.Types) == 0 {
		return 1
	}
	return len(p.Types)
}
func (*Parameter) expression() {}

// UnaryOperation is a sign operator applied to an operand.
type UnaryOperation struct {
	Op      string
	Operand Expression
}

func (*UnaryOperation) ColumnSpan() int { return 1 }
func (*UnaryOperation) expression()     {}

// BinaryArithmetic is an infix arithmetic operation. Modulo never appears
// here; it is lowered to a mod function call.
type BinaryArithmetic struct {
	Op    string
	Left  Expression
	Right Expression
}

func (*BinaryArithmetic) ColumnSpan() int { return 1 }
func (*BinaryArithmetic) expression()     {}

// Concat is string concatenation.
type Concat struct {
	Left  Expression
	Right Expression
}

func (*Concat) ColumnSpan() int { return 1 }
func (*Concat) expression()     {}

// FunctionCall is a scalar or aggregate function call. Star is count(*).
type FunctionCall struct {
	Name     string
	Args     []Expression
	Distinct bool
	Star     bool
}

func (*FunctionCall) ColumnSpan() int { return 1 }
func (*FunctionCall) expression()     {}

// SimpleCase is `case operand when v then r ... else e end`.
type SimpleCase struct {
	Operand Expression
	Whens   []*SimpleWhen
	Else    Expression
}

// SimpleWhen is one branch of a SimpleCase.
type SimpleWhen struct {
	Value  Expression
	Result Expression
}

func (*SimpleCase) ColumnSpan() int { return 1 }
func (*SimpleCase) expression()     {}

// SearchedCase is `case when p then r ... else e end`.
type SearchedCase struct {
	Whens []*SearchedWhen
	Else  Expression
}

// SearchedWhen is one branch of a SearchedCase.
type SearchedWhen struct {
	Condition Predicate
	Result    Expression
}

func (*SearchedCase) ColumnSpan() int { return 1 }
func (*SearchedCase) expression()     {}

// Subquery is a scalar subquery.
type Subquery struct {
	Query *QuerySpec
}

func (*Subquery) ColumnSpan() int { return 1 }
func (*Subquery) expression()     {}
