package sqlast

// Predicate is a SQL boolean expression.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicate()
}

// JunctionKind is the connective of a Junction.
type JunctionKind int

const (
	Conjunction JunctionKind = iota
	Disjunction
)

// Keyword returns the SQL connective.
func (k JunctionKind) Keyword() string {
	if k == Disjunction {
		return "or"
	}
	return "and"
}

// Junction is an n-ary and/or. An empty conjunction is always true.
type Junction struct {
	Kind       JunctionKind
	Predicates []Predicate
}

// Add appends p, flattening nested junctions of the same kind.
func (j *Junction) Add(p Predicate) {
	if inner, ok := p.(*Junction); ok && inner.Kind == j.Kind {
		j.Predicates = append(j.Predicates, inner.Predicates...)
		return
	}
	j.Predicates = append(j.Predicates, p)
}

// Conjoin returns the conjunction of the non-nil predicates, or nil if there
// are none. A single predicate is returned unwrapped.
func Conjoin(preds ...Predicate) Predicate {
	j := &Junction{Kind: Conjunction}
	for _, p := range preds {
		if p != nil {
			j.Add(p)
		}
	}
	switch len(j.Predicates) {
	case 0:
		return nil
	case 1:
		return j.Predicates[0]
	}
	return j
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

func (o ComparisonOperator) String() string {
	switch o {
	case NotEqual:
		return "<>"
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	}
	return "="
}

// Grouped is a parenthesised predicate.
type Grouped struct {
	Predicate Predicate
}

// Negated is `not (p)`.
type Negated struct {
	Predicate Predicate
}

// Comparison is `left op right`. Both sides have the same column span.
type Comparison struct {
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

// Like is `expr [not] like pattern [escape e]`.
type Like struct {
	Expr    Expression
	Pattern Expression
	Escape  Expression
	Negated bool
}

// Nullness is `expr is [not] null`. Multi-column values test every column.
type Nullness struct {
	Expr    Expression
	Negated bool
}

// InList is `expr [not] in (v1, v2, ...)`.
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

// Exists is `[not] exists (select ...)`.
type Exists struct {
	Query   *QuerySpec
	Negated bool
}

func (*Junction) predicate()   {}
func (*Grouped) predicate()    {}
func (*Negated) predicate()    {}
func (*Comparison) predicate() {}
func (*Between) predicate()    {}
func (*Like) predicate()       {}
func (*Nullness) predicate()   {}
func (*InList) predicate()     {}
func (*InSubquery) predicate() {}
func (*Exists) predicate()     {}
