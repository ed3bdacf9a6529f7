package sqm

import (
	"strings"

	"github.com/roach88/oqlc/internal/model"
)

// Expression is a value-producing SQM node.
type Expression interface {
	// ExpressionType is the relational type of the value, or nil when it is
	// not yet known (an untyped parameter).
	ExpressionType() model.Type
	expression()
}

// Inferable is implemented by expressions whose type may be inferred from
// the other side of a comparison.
type Inferable interface {
	Expression
	InferType(model.Type)
}

// ColumnSpan returns the number of columns e occupies, defaulting to one.
func ColumnSpan(e Expression) int {
	switch e := e.(type) {
	case *AttributeReference:
		return e.Attribute.ColumnSpan()
	case *FromElementReference:
		if t := e.ExpressionType(); t != nil {
			return t.ColumnSpan()
		}
	}
	if t := e.ExpressionType(); t != nil && t.ColumnSpan() > 0 {
		return t.ColumnSpan()
	}
	return 1
}

// AttributeReference is a resolved attribute of a from-element.
type AttributeReference struct {
	Source    FromElement
	Attribute *model.Attribute
	Path      string
}

// ExpressionType implements Expression.
func (r *AttributeReference) ExpressionType() model.Type { return r.Attribute.Type }

// FromElementReference is a bare alias used as a value.
type FromElementReference struct {
	Element FromElement
}

// ExpressionType implements Expression.
func (r *FromElementReference) ExpressionType() model.Type { return r.Element.ModelType() }

// EntityTypeReference names an entity type, as in `type(p) = Employee`.
type EntityTypeReference struct {
	Entity *model.EntityType
}

// ExpressionType implements Expression. Entity types compare as their
// discriminator string.
func (*EntityTypeReference) ExpressionType() model.Type { return model.String }

// LiteralKind is the semantic kind of a literal.
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
	LiteralBoolean
	LiteralNull
)

var literalTypes = [...]model.Type{
	LiteralString:     model.String,
	LiteralCharacter:  model.Character,
	LiteralInteger:    model.Integer,
	LiteralLong:       model.Long,
	LiteralBigInteger: model.BigInteger,
	LiteralFloat:      model.Float,
	LiteralDouble:     model.Double,
	LiteralBigDecimal: model.BigDecimal,
	LiteralBoolean:    model.Boolean,
	LiteralNull:       nil,
}

// Literal is a parsed literal value.
//
// Value holds string, rune, int32, int64, *big.Int, float32, float64,
// decimal.Decimal, bool or nil according to Kind.
type Literal struct {
	Kind  LiteralKind
	Value any
	Text  string

	inferred model.Type
}

// ExpressionType implements Expression. A null literal takes the type
// inferred from its context.
func (l *Literal) ExpressionType() model.Type {
	if l.inferred != nil {
		return l.inferred
	}
	return literalTypes[l.Kind]
}

// InferType implements Inferable. Only null literals adopt a context type.
func (l *Literal) InferType(t model.Type) {
	if l.Kind == LiteralNull {
		l.inferred = t
	}
}

// NamedParameter is `:name`.
type NamedParameter struct {
	Name string
	Type model.Type
}

// ExpressionType implements Expression.
func (p *NamedParameter) ExpressionType() model.Type { return p.Type }

// InferType implements Inferable.
func (p *NamedParameter) InferType(t model.Type) {
	if p.Type == nil {
		p.Type = t
	}
}

// PositionalParameter is `?n`.
type PositionalParameter struct {
	Position int
	Type     model.Type
}

// ExpressionType implements Expression.
func (p *PositionalParameter) ExpressionType() model.Type { return p.Type }

// InferType implements Inferable.
func (p *PositionalParameter) InferType(t model.Type) {
	if p.Type == nil {
		p.Type = t
	}
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

// ExpressionType implements Expression.
func (u *Unary) ExpressionType() model.Type { return u.Operand.ExpressionType() }

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
func (o ArithmeticOperator) String() string { return arithmeticSymbols[o] }

// BinaryArithmetic is `left op right`.
type BinaryArithmetic struct {
	Op    ArithmeticOperator
	Left  Expression
	Right Expression
}

// ExpressionType implements Expression. The wider numeric operand wins.
func (b *BinaryArithmetic) ExpressionType() model.Type {
	return widerNumeric(b.Left.ExpressionType(), b.Right.ExpressionType())
}

var numericRank = map[model.Type]int{
	model.Integer:    1,
	model.Long:       2,
	model.BigInteger: 3,
	model.Float:      4,
	model.Double:     5,
	model.BigDecimal: 6,
}

func widerNumeric(a, b model.Type) model.Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if numericRank[b] > numericRank[a] {
		return b
	}
	return a
}

// Concat is string concatenation.
type Concat struct {
	Left  Expression
	Right Expression
}

// ExpressionType implements Expression.
func (*Concat) ExpressionType() model.Type { return model.String }

// Function is a non-standard function call passed through to SQL by name.
type Function struct {
	Name       string
	Args       []Expression
	ReturnType model.Type
}

// ExpressionType implements Expression.
func (f *Function) ExpressionType() model.Type { return f.ReturnType }

// Aggregate is avg, sum, min, max or count.
type Aggregate struct {
	Name     string
	Distinct bool
	Star     bool
	Arg      Expression
}

// ExpressionType implements Expression.
func (a *Aggregate) ExpressionType() model.Type {
	switch strings.ToLower(a.Name) {
	case "count":
		return model.Long
	case "avg":
		return model.Double
	}
	if a.Arg != nil {
		return a.Arg.ExpressionType()
	}
	return nil
}

// Coalesce is `coalesce(args...)`.
type Coalesce struct {
	Args []Expression
}

// ExpressionType implements Expression.
func (c *Coalesce) ExpressionType() model.Type {
	for _, a := range c.Args {
		if t := a.ExpressionType(); t != nil {
			return t
		}
	}
	return nil
}

// NullIf is `nullif(left, right)`.
type NullIf struct {
	Left  Expression
	Right Expression
}

// ExpressionType implements Expression.
func (n *NullIf) ExpressionType() model.Type { return n.Left.ExpressionType() }

// SimpleCase is `case operand when ... end`.
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

// ExpressionType implements Expression.
func (c *SimpleCase) ExpressionType() model.Type {
	for _, w := range c.Whens {
		if t := w.Result.ExpressionType(); t != nil {
			return t
		}
	}
	if c.Else != nil {
		return c.Else.ExpressionType()
	}
	return nil
}

// SearchedCase is `case when predicate then ... end`.
type SearchedCase struct {
	Whens []*SearchedWhen
	Else  Expression
}

// SearchedWhen is one branch of a searched case.
type SearchedWhen struct {
	Condition Predicate
	Result    Expression
}

// ExpressionType implements Expression.
func (c *SearchedCase) ExpressionType() model.Type {
	for _, w := range c.Whens {
		if t := w.Result.ExpressionType(); t != nil {
			return t
		}
	}
	if c.Else != nil {
		return c.Else.ExpressionType()
	}
	return nil
}

// ConstantEnum is a resolved enum constant.
type ConstantEnum struct {
	Class   *model.Class
	Name    string
	Ordinal int
}

// ExpressionType implements Expression.
func (c *ConstantEnum) ExpressionType() model.Type { return c.Class.EnumType() }

// Value returns the bound value: the ordinal or the constant name.
func (c *ConstantEnum) Value() any {
	if c.Class.Ordinal {
		return int32(c.Ordinal)
	}
	return c.Name
}

// ConstantField is a resolved public static field.
type ConstantField struct {
	Class *model.Class
	Field *model.Field
}

// ExpressionType implements Expression.
func (c *ConstantField) ExpressionType() model.Type {
	if c.Field.Type == nil {
		return nil
	}
	return c.Field.Type
}

// Subquery is a nested query used as a scalar value.
type Subquery struct {
	Query *QuerySpec
}

// ExpressionType implements Expression. A scalar subquery has the type of
// its single selection.
func (s *Subquery) ExpressionType() model.Type {
	if list, ok := s.Query.Select.Selection.(*SelectList); ok && len(list.Items) == 1 {
		return list.Items[0].Expr.ExpressionType()
	}
	return nil
}

func (*AttributeReference) expression()   {}
func (*FromElementReference) expression() {}
func (*EntityTypeReference) expression()  {}
func (*Literal) expression()              {}
func (*NamedParameter) expression()       {}
func (*PositionalParameter) expression()  {}
func (*Unary) expression()                {}
func (*BinaryArithmetic) expression()     {}
func (*Concat) expression()               {}
func (*Function) expression()             {}
func (*Aggregate) expression()            {}
func (*Coalesce) expression()             {}
func (*NullIf) expression()               {}
func (*SimpleCase) expression()           {}
func (*SearchedCase) expression()         {}
func (*ConstantEnum) expression()         {}
func (*ConstantField) expression()        {}
func (*Subquery) expression()             {}
