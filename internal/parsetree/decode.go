package parsetree

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a malformed parse-tree document.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

// LoadFile reads and decodes a parse-tree document from path.
func LoadFile(path string) (Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parse tree file: %w", err)
	}
	return Decode(data)
}

// Decode decodes a YAML parse-tree document.
//
// Every node is a single-key mapping whose key names the node kind:
//
//	from:
//	  - root: {entity: Person, alias: p}
//	    joins:
//	      - {join: p.employer, alias: c, type: left}
//	where:
//	  eq: [{path: p.name}, {param: name}]
//
// Unknown keys are rejected.
func Decode(data []byte) (Statement, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("expected a single YAML document")
	}
	return decodeStatement(doc.Content[0])
}

// DecodeNode decodes a parse tree embedded in a larger YAML document.
// Error positions refer to the enclosing document.
func DecodeNode(n *yaml.Node) (Statement, error) {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) != 1 {
			return nil, fmt.Errorf("expected a single YAML document")
		}
		n = n.Content[0]
	}
	return decodeStatement(n)
}

// ---------------------------------------------------------------------------
// node helpers

type fields struct {
	node   *yaml.Node
	values map[string]*yaml.Node
}

func mapping(n *yaml.Node, allowed ...string) (*fields, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected mapping")
	}
	f := &fields{node: n, values: map[string]*yaml.Node{}}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !contains(allowed, key) {
			return nil, errorf(n.Content[i], "unknown field %q", key)
		}
		if _, dup := f.values[key]; dup {
			return nil, errorf(n.Content[i], "duplicate field %q", key)
		}
		f.values[key] = n.Content[i+1]
	}
	return f, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fields) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *fields) str(key string) (string, error) {
	n, ok := f.values[key]
	if !ok {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", errorf(n, "field %q must be a scalar", key)
	}
	return n.Value, nil
}

func (f *fields) required(key string) (string, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errorf(f.node, "field %q is required", key)
	}
	return s, nil
}

func (f *fields) boolean(key string) (bool, error) {
	n, ok := f.values[key]
	if !ok {
		return false, nil
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false, errorf(n, "field %q must be a boolean", key)
	}
	return b, nil
}

func single(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errorf(n, "expected single-key mapping")
	}
	return n.Content[0].Value, n.Content[1], nil
}

func sequence(n *yaml.Node) ([]*yaml.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "expected sequence")
	}
	return n.Content, nil
}

// ---------------------------------------------------------------------------
// statements

func decodeStatement(n *yaml.Node) (Statement, error) {
	if n.Kind == yaml.MappingNode && len(n.Content) == 2 {
		switch n.Content[0].Value {
		case "update":
			return decodeUpdate(n.Content[1])
		case "delete":
			return decodeDelete(n.Content[1])
		case "insert":
			return decodeInsert(n.Content[1])
		}
	}
	f, err := mapping(n, "select", "from", "where", "order_by")
	if err != nil {
		return nil, err
	}
	qs, err := decodeQuerySpecFields(f)
	if err != nil {
		return nil, err
	}
	stmt := &SelectStatement{Query: qs}
	if ob, ok := f.values["order_by"]; ok {
		items, err := sequence(ob)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			spec, err := decodeSortSpec(item)
			if err != nil {
				return nil, err
			}
			stmt.OrderBy = append(stmt.OrderBy, spec)
		}
	}
	return stmt, nil
}

func decodeUpdate(n *yaml.Node) (Statement, error) {
	f, err := mapping(n, "entity", "alias", "set", "where")
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStatement{}
	if stmt.Entity, err = f.required("entity"); err != nil {
		return nil, err
	}
	if stmt.Alias, err = f.str("alias"); err != nil {
		return nil, err
	}
	set, ok := f.values["set"]
	if !ok {
		return nil, errorf(n, "update requires set")
	}
	items, err := sequence(set)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		af, err := mapping(item, "path", "value")
		if err != nil {
			return nil, err
		}
		path, err := af.required("path")
		if err != nil {
			return nil, err
		}
		vn, ok := af.values["value"]
		if !ok {
			return nil, errorf(item, "assignment requires value")
		}
		value, err := decodeExpression(vn)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, &Assignment{Target: NewPath(path), Value: value})
	}
	if w, ok := f.values["where"]; ok {
		if stmt.Where, err = decodePredicate(w); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodeDelete(n *yaml.Node) (Statement, error) {
	f, err := mapping(n, "entity", "alias", "where")
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStatement{}
	if stmt.Entity, err = f.required("entity"); err != nil {
		return nil, err
	}
	if stmt.Alias, err = f.str("alias"); err != nil {
		return nil, err
	}
	if w, ok := f.values["where"]; ok {
		if stmt.Where, err = decodePredicate(w); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func decodeInsert(n *yaml.Node) (Statement, error) {
	f, err := mapping(n, "entity", "targets", "query")
	if err != nil {
		return nil, err
	}
	stmt := &InsertStatement{}
	if stmt.Entity, err = f.required("entity"); err != nil {
		return nil, err
	}
	if tn, ok := f.values["targets"]; ok {
		var targets []string
		if err := tn.Decode(&targets); err != nil {
			return nil, errorf(tn, "targets must be a list of paths")
		}
		for _, t := range targets {
			stmt.Targets = append(stmt.Targets, NewPath(t))
		}
	}
	qn, ok := f.values["query"]
	if !ok {
		return nil, errorf(n, "insert requires query")
	}
	if stmt.Query, err = decodeQuerySpec(qn); err != nil {
		return nil, err
	}
	return stmt, nil
}

func decodeQuerySpec(n *yaml.Node) (*QuerySpec, error) {
	f, err := mapping(n, "select", "from", "where")
	if err != nil {
		return nil, err
	}
	return decodeQuerySpecFields(f)
}

func decodeQuerySpecFields(f *fields) (*QuerySpec, error) {
	qs := &QuerySpec{}
	fromNode, ok := f.values["from"]
	if !ok {
		return nil, errorf(f.node, "query requires from")
	}
	from, err := decodeFromClause(fromNode)
	if err != nil {
		return nil, err
	}
	qs.From = from
	if sn, ok := f.values["select"]; ok {
		if qs.Select, err = decodeSelectClause(sn); err != nil {
			return nil, err
		}
	}
	if wn, ok := f.values["where"]; ok {
		if qs.Where, err = decodePredicate(wn); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

func decodeSortSpec(n *yaml.Node) (*SortSpec, error) {
	f, err := mapping(n, "expr", "collate", "direction")
	if err != nil {
		return nil, err
	}
	en, ok := f.values["expr"]
	if !ok {
		return nil, errorf(n, "order_by item requires expr")
	}
	spec := &SortSpec{}
	if spec.Expr, err = decodeExpression(en); err != nil {
		return nil, err
	}
	if spec.Collation, err = f.str("collate"); err != nil {
		return nil, err
	}
	dir, err := f.str("direction")
	if err != nil {
		return nil, err
	}
	switch dir {
	case "":
	case "asc":
		spec.Direction = SortAscending
	case "desc":
		spec.Direction = SortDescending
	default:
		return nil, errorf(f.values["direction"], "unknown direction %q", dir)
	}
	return spec, nil
}

// ---------------------------------------------------------------------------
// from clause

func decodeFromClause(n *yaml.Node) (*FromClause, error) {
	items, err := sequence(n)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errorf(n, "from clause requires at least one space")
	}
	fc := &FromClause{}
	for _, item := range items {
		f, err := mapping(item, "root", "joins")
		if err != nil {
			return nil, err
		}
		rn, ok := f.values["root"]
		if !ok {
			return nil, errorf(item, "from-element space requires root")
		}
		rf, err := mapping(rn, "entity", "alias")
		if err != nil {
			return nil, err
		}
		root := &RootEntity{}
		if root.Entity, err = rf.required("entity"); err != nil {
			return nil, err
		}
		if root.Alias, err = rf.str("alias"); err != nil {
			return nil, err
		}
		space := &FromElementSpace{Root: root}
		if jn, ok := f.values["joins"]; ok {
			joins, err := sequence(jn)
			if err != nil {
				return nil, err
			}
			for _, j := range joins {
				join, err := decodeJoin(j)
				if err != nil {
					return nil, err
				}
				space.Joins = append(space.Joins, join)
			}
		}
		fc.Spaces = append(fc.Spaces, space)
	}
	return fc, nil
}

func decodeJoin(n *yaml.Node) (Join, error) {
	f, err := mapping(n, "join", "entity", "cross", "alias", "type", "fetch", "on")
	if err != nil {
		return nil, err
	}
	alias, err := f.str("alias")
	if err != nil {
		return nil, err
	}
	if f.has("cross") {
		entity, err := f.required("cross")
		if err != nil {
			return nil, err
		}
		if f.has("join") || f.has("entity") || f.has("on") || f.has("type") || f.has("fetch") {
			return nil, errorf(n, "cross join accepts only an entity and alias")
		}
		return &CrossJoin{Entity: entity, Alias: alias}, nil
	}

	j := &QualifiedJoin{Alias: alias}
	switch {
	case f.has("join") && f.has("entity"):
		return nil, errorf(n, "join must name either a path or an entity")
	case f.has("join"):
		path, err := f.required("join")
		if err != nil {
			return nil, err
		}
		j.Path = NewPath(path)
	case f.has("entity"):
		if j.Entity, err = f.required("entity"); err != nil {
			return nil, err
		}
	default:
		return nil, errorf(n, "join requires a path or an entity")
	}

	kind, err := f.str("type")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "", "inner":
		j.Kind = JoinInner
	case "left":
		j.Kind = JoinLeft
	default:
		return nil, errorf(f.values["type"], "unknown join type %q", kind)
	}
	if j.Fetch, err = f.boolean("fetch"); err != nil {
		return nil, err
	}
	if on, ok := f.values["on"]; ok {
		if j.On, err = decodePredicate(on); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// ---------------------------------------------------------------------------
// select clause

func decodeSelectClause(n *yaml.Node) (*SelectClause, error) {
	f, err := mapping(n, "distinct", "items", "instantiate", "alias")
	if err != nil {
		return nil, err
	}
	sc := &SelectClause{}
	if sc.Distinct, err = f.boolean("distinct"); err != nil {
		return nil, err
	}
	forms := 0
	for _, k := range []string{"items", "instantiate", "alias"} {
		if f.has(k) {
			forms++
		}
	}
	if forms != 1 {
		return nil, errorf(n, "select requires exactly one of items, instantiate, alias")
	}
	switch {
	case f.has("items"):
		items, err := sequence(f.values["items"])
		if err != nil {
			return nil, err
		}
		list := &SelectList{}
		for _, item := range items {
			itf, err := mapping(item, "expr", "alias")
			if err != nil {
				return nil, err
			}
			en, ok := itf.values["expr"]
			if !ok {
				return nil, errorf(item, "select item requires expr")
			}
			si := &SelectItem{}
			if si.Expr, err = decodeExpression(en); err != nil {
				return nil, err
			}
			if si.Alias, err = itf.str("alias"); err != nil {
				return nil, err
			}
			list.Items = append(list.Items, si)
		}
		sc.Selection = list
	case f.has("instantiate"):
		if sc.Selection, err = decodeInstantiation(f.values["instantiate"]); err != nil {
			return nil, err
		}
	default:
		alias, err := f.required("alias")
		if err != nil {
			return nil, err
		}
		sc.Selection = &JPASelect{Alias: alias}
	}
	return sc, nil
}

func decodeInstantiation(n *yaml.Node) (*DynamicInstantiation, error) {
	f, err := mapping(n, "class", "args")
	if err != nil {
		return nil, err
	}
	di := &DynamicInstantiation{}
	if di.Target, err = f.required("class"); err != nil {
		return nil, err
	}
	an, ok := f.values["args"]
	if !ok {
		return di, nil
	}
	args, err := sequence(an)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		af, err := mapping(a, "expr", "instantiate", "alias")
		if err != nil {
			return nil, err
		}
		arg := &InstantiationArg{}
		if arg.Alias, err = af.str("alias"); err != nil {
			return nil, err
		}
		switch {
		case af.has("expr") && !af.has("instantiate"):
			if arg.Expr, err = decodeExpression(af.values["expr"]); err != nil {
				return nil, err
			}
		case af.has("instantiate") && !af.has("expr"):
			if arg.Nested, err = decodeInstantiation(af.values["instantiate"]); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(a, "instantiation argument requires exactly one of expr, instantiate")
		}
		di.Args = append(di.Args, arg)
	}
	return di, nil
}

// ---------------------------------------------------------------------------
// expressions

var literalKinds = map[string]LiteralKind{
	"string":     LiteralString,
	"char":       LiteralCharacter,
	"int":        LiteralInteger,
	"long":       LiteralLong,
	"bigint":     LiteralBigInteger,
	"float":      LiteralFloat,
	"double":     LiteralDouble,
	"bigdecimal": LiteralBigDecimal,
	"hex":        LiteralHex,
	"octal":      LiteralOctal,
	"true":       LiteralTrue,
	"false":      LiteralFalse,
	"null":       LiteralNull,
}

var arithmeticKinds = map[string]ArithmeticOperator{
	"add": OpAdd,
	"sub": OpSubtract,
	"mul": OpMultiply,
	"div": OpDivide,
	"mod": OpModulo,
}

var aggregateKinds = map[string]bool{"avg": true, "sum": true, "min": true, "max": true, "count": true}

func decodeExpressions(n *yaml.Node) ([]Expression, error) {
	items, err := sequence(n)
	if err != nil {
		return nil, err
	}
	out := make([]Expression, 0, len(items))
	for _, item := range items {
		e, err := decodeExpression(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpression(n *yaml.Node) (Expression, error) {
	kind, v, err := single(n)
	if err != nil {
		return nil, err
	}
	if lk, ok := literalKinds[kind]; ok {
		if v.Kind != yaml.ScalarNode {
			return nil, errorf(v, "literal %s must be a scalar", kind)
		}
		switch lk {
		case LiteralTrue, LiteralFalse, LiteralNull:
			return &Literal{Kind: lk, Text: kind}, nil
		}
		return &Literal{Kind: lk, Text: v.Value}, nil
	}
	if op, ok := arithmeticKinds[kind]; ok {
		operands, err := decodeExpressions(v)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Operands: operands}, nil
	}
	if aggregateKinds[kind] {
		return decodeAggregate(kind, v)
	}

	switch kind {
	case "path":
		if v.Kind != yaml.ScalarNode || v.Value == "" {
			return nil, errorf(v, "path must be dotted text")
		}
		return NewPath(v.Value), nil
	case "treat":
		f, err := mapping(v, "path", "as", "rest")
		if err != nil {
			return nil, err
		}
		base, err := f.required("path")
		if err != nil {
			return nil, err
		}
		target, err := f.required("as")
		if err != nil {
			return nil, err
		}
		tp := &TreatPath{Base: NewPath(base), Target: target}
		if rest, _ := f.str("rest"); rest != "" {
			tp.Rest = NewPath(rest).Parts
		}
		return tp, nil
	case "index":
		f, err := mapping(v, "path", "index", "rest")
		if err != nil {
			return nil, err
		}
		base, err := f.required("path")
		if err != nil {
			return nil, err
		}
		in, ok := f.values["index"]
		if !ok {
			return nil, errorf(v, "index requires index")
		}
		idx, err := decodeExpression(in)
		if err != nil {
			return nil, err
		}
		ip := &IndexedPath{Base: NewPath(base), Index: idx}
		if rest, _ := f.str("rest"); rest != "" {
			ip.Rest = NewPath(rest).Parts
		}
		return ip, nil
	case "param":
		if v.Kind != yaml.ScalarNode || v.Value == "" {
			return nil, errorf(v, "param requires a name")
		}
		return &NamedParameter{Name: v.Value}, nil
	case "pos":
		p, err := strconv.Atoi(v.Value)
		if err != nil || p < 1 {
			return nil, errorf(v, "pos requires a positive integer")
		}
		return &PositionalParameter{Position: p}, nil
	case "neg", "plus":
		operand, err := decodeExpression(v)
		if err != nil {
			return nil, err
		}
		op := UnaryMinus
		if kind == "plus" {
			op = UnaryPlus
		}
		return &Unary{Op: op, Operand: operand}, nil
	case "concat":
		operands, err := decodeExpressions(v)
		if err != nil {
			return nil, err
		}
		return &Concat{Operands: operands}, nil
	case "func":
		f, err := mapping(v, "name", "args")
		if err != nil {
			return nil, err
		}
		fn := &Function{}
		if fn.Name, err = f.required("name"); err != nil {
			return nil, err
		}
		if an, ok := f.values["args"]; ok {
			if fn.Args, err = decodeExpressions(an); err != nil {
				return nil, err
			}
		}
		return fn, nil
	case "count_star":
		return &Aggregate{Name: "count", Star: true}, nil
	case "coalesce":
		args, err := decodeExpressions(v)
		if err != nil {
			return nil, err
		}
		return &Coalesce{Args: args}, nil
	case "nullif":
		args, err := decodeExpressions(v)
		if err != nil {
			return nil, err
		}
		return &NullIf{Args: args}, nil
	case "case":
		return decodeCase(v)
	case "subquery":
		qs, err := decodeQuerySpec(v)
		if err != nil {
			return nil, err
		}
		return &Subquery{Query: qs}, nil
	}
	return nil, errorf(n, "unknown expression kind %q", kind)
}

func decodeAggregate(name string, v *yaml.Node) (Expression, error) {
	if v.Kind == yaml.MappingNode {
		if f, err := mapping(v, "distinct", "arg"); err == nil {
			an, ok := f.values["arg"]
			if !ok {
				return nil, errorf(v, "%s requires arg", name)
			}
			arg, err := decodeExpression(an)
			if err != nil {
				return nil, err
			}
			distinct, err := f.boolean("distinct")
			if err != nil {
				return nil, err
			}
			return &Aggregate{Name: name, Distinct: distinct, Arg: arg}, nil
		}
	}
	arg, err := decodeExpression(v)
	if err != nil {
		return nil, err
	}
	return &Aggregate{Name: name, Arg: arg}, nil
}

func decodeCase(v *yaml.Node) (Expression, error) {
	f, err := mapping(v, "operand", "when", "else")
	if err != nil {
		return nil, err
	}
	wn, ok := f.values["when"]
	if !ok {
		return nil, errorf(v, "case requires when")
	}
	whens, err := sequence(wn)
	if err != nil {
		return nil, err
	}
	var elseExpr Expression
	if en, ok := f.values["else"]; ok {
		if elseExpr, err = decodeExpression(en); err != nil {
			return nil, err
		}
	}

	if on, ok := f.values["operand"]; ok {
		operand, err := decodeExpression(on)
		if err != nil {
			return nil, err
		}
		sc := &SimpleCase{Operand: operand, Else: elseExpr}
		for _, w := range whens {
			wf, err := mapping(w, "when", "then")
			if err != nil {
				return nil, err
			}
			if !wf.has("when") || !wf.has("then") {
				return nil, errorf(w, "case branch requires when and then")
			}
			value, err := decodeExpression(wf.values["when"])
			if err != nil {
				return nil, err
			}
			result, err := decodeExpression(wf.values["then"])
			if err != nil {
				return nil, err
			}
			sc.Whens = append(sc.Whens, &SimpleWhen{Value: value, Result: result})
		}
		return sc, nil
	}

	sc := &SearchedCase{Else: elseExpr}
	for _, w := range whens {
		wf, err := mapping(w, "when", "then")
		if err != nil {
			return nil, err
		}
		if !wf.has("when") || !wf.has("then") {
			return nil, errorf(w, "case branch requires when and then")
		}
		cond, err := decodePredicate(wf.values["when"])
		if err != nil {
			return nil, err
		}
		result, err := decodeExpression(wf.values["then"])
		if err != nil {
			return nil, err
		}
		sc.Whens = append(sc.Whens, &SearchedWhen{Condition: cond, Result: result})
	}
	return sc, nil
}

// ---------------------------------------------------------------------------
// predicates

var comparisonKinds = map[string]ComparisonOperator{
	"eq": CmpEqual,
	"ne": CmpNotEqual,
	"gt": CmpGreater,
	"ge": CmpGreaterOrEqual,
	"lt": CmpLess,
	"le": CmpLessOrEqual,
}

func decodePredicates(n *yaml.Node) ([]Predicate, error) {
	items, err := sequence(n)
	if err != nil {
		return nil, err
	}
	out := make([]Predicate, 0, len(items))
	for _, item := range items {
		p, err := decodePredicate(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// fold turns an n-ary list into the left-deep binary tree a parser produces.
func fold(ps []Predicate, mk func(l, r Predicate) Predicate) Predicate {
	acc := ps[0]
	for _, p := range ps[1:] {
		acc = mk(acc, p)
	}
	return acc
}

func decodePredicate(n *yaml.Node) (Predicate, error) {
	kind, v, err := single(n)
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonKinds[kind]; ok {
		operands, err := decodeExpressions(v)
		if err != nil {
			return nil, err
		}
		return &Relational{Op: op, Operands: operands}, nil
	}

	switch kind {
	case "and", "or":
		ps, err := decodePredicates(v)
		if err != nil {
			return nil, err
		}
		if len(ps) < 2 {
			return nil, errorf(v, "%s requires at least two operands", kind)
		}
		if kind == "and" {
			return fold(ps, func(l, r Predicate) Predicate { return &And{Operands: []Predicate{l, r}} }), nil
		}
		return fold(ps, func(l, r Predicate) Predicate { return &Or{Operands: []Predicate{l, r}} }), nil
	case "not":
		p, err := decodePredicate(v)
		if err != nil {
			return nil, err
		}
		return &Not{Operand: p}, nil
	case "group":
		p, err := decodePredicate(v)
		if err != nil {
			return nil, err
		}
		return &Group{Operand: p}, nil
	case "between":
		f, err := mapping(v, "expr", "low", "high", "not")
		if err != nil {
			return nil, err
		}
		if !f.has("expr") || !f.has("low") || !f.has("high") {
			return nil, errorf(v, "between requires expr, low and high")
		}
		b := &Between{}
		if b.Expr, err = decodeExpression(f.values["expr"]); err != nil {
			return nil, err
		}
		if b.Low, err = decodeExpression(f.values["low"]); err != nil {
			return nil, err
		}
		if b.High, err = decodeExpression(f.values["high"]); err != nil {
			return nil, err
		}
		if b.Negated, err = f.boolean("not"); err != nil {
			return nil, err
		}
		return b, nil
	case "like":
		f, err := mapping(v, "expr", "pattern", "escape", "not")
		if err != nil {
			return nil, err
		}
		if !f.has("expr") || !f.has("pattern") {
			return nil, errorf(v, "like requires expr and pattern")
		}
		l := &Like{}
		if l.Expr, err = decodeExpression(f.values["expr"]); err != nil {
			return nil, err
		}
		if l.Pattern, err = decodeExpression(f.values["pattern"]); err != nil {
			return nil, err
		}
		if en, ok := f.values["escape"]; ok {
			if l.Escape, err = decodeExpression(en); err != nil {
				return nil, err
			}
		}
		if l.Negated, err = f.boolean("not"); err != nil {
			return nil, err
		}
		return l, nil
	case "is_null", "is_not_null":
		e, err := decodeExpression(v)
		if err != nil {
			return nil, err
		}
		return &IsNull{Expr: e, Negated: kind == "is_not_null"}, nil
	case "is_empty", "is_not_empty":
		e, err := decodeExpression(v)
		if err != nil {
			return nil, err
		}
		return &IsEmpty{Expr: e, Negated: kind == "is_not_empty"}, nil
	case "member_of":
		f, err := mapping(v, "expr", "collection", "not")
		if err != nil {
			return nil, err
		}
		if !f.has("expr") || !f.has("collection") {
			return nil, errorf(v, "member_of requires expr and collection")
		}
		m := &MemberOf{}
		if m.Expr, err = decodeExpression(f.values["expr"]); err != nil {
			return nil, err
		}
		if m.Collection, err = decodeExpression(f.values["collection"]); err != nil {
			return nil, err
		}
		if m.Negated, err = f.boolean("not"); err != nil {
			return nil, err
		}
		return m, nil
	case "in":
		f, err := mapping(v, "expr", "list", "not")
		if err != nil {
			return nil, err
		}
		if !f.has("expr") || !f.has("list") {
			return nil, errorf(v, "in requires expr and list")
		}
		in := &InList{}
		if in.Expr, err = decodeExpression(f.values["expr"]); err != nil {
			return nil, err
		}
		if in.List, err = decodeExpressions(f.values["list"]); err != nil {
			return nil, err
		}
		if in.Negated, err = f.boolean("not"); err != nil {
			return nil, err
		}
		return in, nil
	case "in_subquery":
		f, err := mapping(v, "expr", "query", "not")
		if err != nil {
			return nil, err
		}
		if !f.has("expr") || !f.has("query") {
			return nil, errorf(v, "in_subquery requires expr and query")
		}
		in := &InSubquery{}
		if in.Expr, err = decodeExpression(f.values["expr"]); err != nil {
			return nil, err
		}
		if in.Query, err = decodeQuerySpec(f.values["query"]); err != nil {
			return nil, err
		}
		if in.Negated, err = f.boolean("not"); err != nil {
			return nil, err
		}
		return in, nil
	}
	return nil, errorf(n, "unknown predicate kind %q", kind)
}
