package semantic

import (
	"fmt"
	"strings"

	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

// functionTypes gives return types for well-known functions. Unknown
// functions are passed through untyped.
var functionTypes = map[string]model.Type{
	"upper":             model.String,
	"lower":             model.String,
	"trim":              model.String,
	"substring":         model.String,
	"str":               model.String,
	"length":            model.Integer,
	"locate":            model.Integer,
	"sqrt":              model.Double,
	"current_date":      model.Date,
	"current_timestamp": model.Timestamp,
}

func (b *Builder) expressions(es []parsetree.Expression) ([]sqm.Expression, error) {
	out := make([]sqm.Expression, 0, len(es))
	for _, e := range es {
		se, err := b.expression(e)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

func (b *Builder) expression(e parsetree.Expression) (sqm.Expression, error) {
	switch e := e.(type) {
	case *parsetree.Path:
		return b.resolvePath(e)
	case *parsetree.TreatPath:
		return b.treat(e)
	case *parsetree.IndexedPath:
		if _, err := b.resolvePath(e.Base); err != nil {
			return nil, err
		}
		return nil, qerr.NotYetImplemented("indexed path " + e.Base.Text() + "[]")
	case *parsetree.NamedParameter:
		return &sqm.NamedParameter{Name: e.Name}, nil
	case *parsetree.PositionalParameter:
		return &sqm.PositionalParameter{Position: e.Position}, nil
	case *parsetree.Literal:
		return parseLiteral(e)

	case *parsetree.Unary:
		operand, err := b.expression(e.Operand)
		if err != nil {
			return nil, err
		}
		op := sqm.UnaryMinus
		if e.Op == parsetree.UnaryPlus {
			op = sqm.UnaryPlus
		}
		return &sqm.Unary{Op: op, Operand: operand}, nil

	case *parsetree.Binary:
		if len(e.Operands) != 2 {
			return nil, qerr.Structural("operator %s expects 2 operands, found %d", e.Op, len(e.Operands))
		}
		ops, err := b.expressions(e.Operands)
		if err != nil {
			return nil, err
		}
		infer(ops[0], ops[1])
		return &sqm.BinaryArithmetic{Op: arithmeticOp(e.Op), Left: ops[0], Right: ops[1]}, nil

	case *parsetree.Concat:
		if len(e.Operands) != 2 {
			return nil, qerr.Structural("operator || expects 2 operands, found %d", len(e.Operands))
		}
		ops, err := b.expressions(e.Operands)
		if err != nil {
			return nil, err
		}
		for _, o := range ops {
			if i, ok := o.(sqm.Inferable); ok {
				i.InferType(model.String)
			}
		}
		return &sqm.Concat{Left: ops[0], Right: ops[1]}, nil

	case *parsetree.Function:
		args, err := b.expressions(e.Args)
		if err != nil {
			return nil, err
		}
		name := strings.ToLower(e.Name)
		ret := functionTypes[name]
		if ret == nil && name == "abs" && len(args) == 1 {
			ret = args[0].ExpressionType()
		}
		return &sqm.Function{Name: name, Args: args, ReturnType: ret}, nil

	case *parsetree.Aggregate:
		name := strings.ToLower(e.Name)
		if e.Star {
			if name != "count" {
				return nil, qerr.Structural("%s(*) is not a valid aggregate", name)
			}
			return &sqm.Aggregate{Name: name, Star: true}, nil
		}
		if e.Arg == nil {
			return nil, qerr.Structural("aggregate %s requires an argument", name)
		}
		arg, err := b.expression(e.Arg)
		if err != nil {
			return nil, err
		}
		return &sqm.Aggregate{Name: name, Distinct: e.Distinct, Arg: arg}, nil

	case *parsetree.Coalesce:
		if len(e.Args) == 0 {
			return nil, qerr.Structural("coalesce expects at least 1 operand")
		}
		args, err := b.expressions(e.Args)
		if err != nil {
			return nil, err
		}
		infer(args...)
		return &sqm.Coalesce{Args: args}, nil

	case *parsetree.NullIf:
		if len(e.Args) != 2 {
			return nil, qerr.Structural("nullif expects 2 operands, found %d", len(e.Args))
		}
		args, err := b.expressions(e.Args)
		if err != nil {
			return nil, err
		}
		infer(args...)
		return &sqm.NullIf{Left: args[0], Right: args[1]}, nil

	case *parsetree.SimpleCase:
		return b.simpleCase(e)
	case *parsetree.SearchedCase:
		return b.searchedCase(e)

	case *parsetree.Subquery:
		q, err := b.querySpec(e.Query)
		if err != nil {
			return nil, err
		}
		if list, ok := q.Select.Selection.(*sqm.SelectList); !ok || len(list.Items) != 1 {
			return nil, qerr.Semantic("subquery", "scalar subquery must select exactly one value")
		}
		return &sqm.Subquery{Query: q}, nil
	}
	return nil, qerr.NotYetImplemented("expression " + typeName(e))
}

func arithmeticOp(op parsetree.ArithmeticOperator) sqm.ArithmeticOperator {
	switch op {
	case parsetree.OpSubtract:
		return sqm.OpSubtract
	case parsetree.OpMultiply:
		return sqm.OpMultiply
	case parsetree.OpDivide:
		return sqm.OpDivide
	case parsetree.OpModulo:
		return sqm.OpModulo
	}
	return sqm.OpAdd
}

func (b *Builder) simpleCase(e *parsetree.SimpleCase) (sqm.Expression, error) {
	operand, err := b.expression(e.Operand)
	if err != nil {
		return nil, err
	}
	out := &sqm.SimpleCase{Operand: operand}
	var results []sqm.Expression
	for _, w := range e.Whens {
		v, err := b.expression(w.Value)
		if err != nil {
			return nil, err
		}
		infer(operand, v)
		r, err := b.expression(w.Result)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
		out.Whens = append(out.Whens, &sqm.SimpleWhen{Value: v, Result: r})
	}
	if e.Else != nil {
		if out.Else, err = b.expression(e.Else); err != nil {
			return nil, err
		}
		results = append(results, out.Else)
	}
	infer(results...)
	return out, nil
}

func (b *Builder) searchedCase(e *parsetree.SearchedCase) (sqm.Expression, error) {
	out := &sqm.SearchedCase{}
	var results []sqm.Expression
	for _, w := range e.Whens {
		cond, err := b.predicate(w.Condition)
		if err != nil {
			return nil, err
		}
		r, err := b.expression(w.Result)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
		out.Whens = append(out.Whens, &sqm.SearchedWhen{Condition: cond, Result: r})
	}
	if e.Else != nil {
		var err error
		if out.Else, err = b.expression(e.Else); err != nil {
			return nil, err
		}
		results = append(results, out.Else)
	}
	infer(results...)
	return out, nil
}

// treat resolves `treat(base as Target)[.rest]`. The target is recorded on
// the base element's treated-as set; repeating the same treat is a no-op.
func (b *Builder) treat(e *parsetree.TreatPath) (sqm.Expression, error) {
	base, err := b.ctx.navigateToElement(b.clause, e.Base.Parts)
	if err != nil {
		return nil, err
	}
	var target *model.EntityType
	if b.ctx.metamodel != nil {
		target = b.ctx.metamodel.ResolveEntityType(e.Target)
	}
	if target == nil {
		return nil, qerr.Semantic(e.Target, "TREAT target %q is not an entity type", e.Target)
	}
	if be := elementEntity(base); be == nil || !(target.IsSubtypeOf(be) || be.IsSubtypeOf(target)) {
		return nil, qerr.Semantic(e.Target, "cannot treat %s as unrelated type %s",
			e.Base.Text(), target.Name)
	}

	treated := b.ctx.treat(base, target)
	if len(e.Rest) == 0 {
		return &sqm.FromElementReference{Element: treated}, nil
	}
	text := fmt.Sprintf("treat(%s as %s).%s", e.Base.Text(), e.Target, strings.Join(e.Rest, "."))
	return b.ctx.navigate(treated, e.Rest, text)
}

// inferenceType is the type an untyped operand adopts from e.
func inferenceType(e sqm.Expression) model.Type {
	switch e := e.(type) {
	case *sqm.AttributeReference:
		a := e.Attribute
		if a.Collection != nil {
			return a.Collection.Element
		}
		if a.Target != nil && a.ReferencedProperty != "" {
			if ref := a.Target.FindAttribute(a.ReferencedProperty); ref != nil {
				return ref.Type
			}
		}
		return a.Type
	case *sqm.Literal:
		if e.Kind == sqm.LiteralNull {
			return nil
		}
	}
	return e.ExpressionType()
}

// infer gives every untyped operand the type of the first typed one.
func infer(es ...sqm.Expression) {
	var t model.Type
	for _, e := range es {
		if t = inferenceType(e); t != nil {
			break
		}
	}
	if t == nil {
		return
	}
	for _, e := range es {
		if i, ok := e.(sqm.Inferable); ok {
			i.InferType(t)
		}
	}
}
