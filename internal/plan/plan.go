// Package plan holds the output of one compilation: rendered SQL, parameter
// binders in placeholder order, return descriptors and the statement type.
//
// A Plan can be serialized to canonical JSON and fingerprinted so two
// compilations of the same statement can be compared byte for byte.
package plan

import (
	"fmt"
	"math/big"

	"github.com/roach88/oqlc/internal/querysql"
	"github.com/roach88/oqlc/internal/sqlast"
)

// Plan is a compiled statement.
type Plan struct {
	SQL           string             `json:"sql"`
	Binders       []*querysql.Binder `json:"binders"`
	Returns       []*sqlast.Return   `json:"returns"`
	StatementType string             `json:"statement_type"`
	Dialect       string             `json:"dialect"`
}

// New assembles a plan from a lowered statement and its rendering.
func New(stmt sqlast.Statement, res *querysql.Result, d querysql.Dialect) (*Plan, error) {
	p := &Plan{SQL: res.SQL, Binders: res.Binders, Dialect: d.Name()}
	switch s := stmt.(type) {
	case *sqlast.SelectStatement:
		p.StatementType = "select"
		p.Returns = s.Returns
	case *sqlast.UpdateStatement:
		p.StatementType = "update"
	case *sqlast.DeleteStatement:
		p.StatementType = "delete"
	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
	if p.Binders == nil {
		p.Binders = []*querysql.Binder{}
	}
	if p.Returns == nil {
		p.Returns = []*sqlast.Return{}
	}
	return p, nil
}

// Columns returns the number of result columns the returns describe.
func (p *Plan) Columns() int {
	n := 0
	for _, r := range p.Returns {
		n += r.Columns
	}
	return n
}

// Bind orders argument values for database/sql, one per binder.
//
// Named arguments are keyed by name and positional ones by position. A
// parameter spanning several columns takes a []any with one element per
// column. Literal binders supply their own value.
func (p *Plan) Bind(named map[string]any, positional map[int]any) ([]any, error) {
	out := make([]any, 0, len(p.Binders))
	for i, b := range p.Binders {
		var (
			v  any
			ok bool
		)
		switch b.Source {
		case querysql.BindLiteral:
			out = append(out, driverLiteral(b))
			continue
		case querysql.BindNamed:
			v, ok = named[b.Name]
			if !ok {
				return nil, fmt.Errorf("binder %d: no value for parameter :%s", i, b.Name)
			}
		case querysql.BindPositional:
			v, ok = positional[b.Position]
			if !ok {
				return nil, fmt.Errorf("binder %d: no value for parameter ?%d", i, b.Position)
			}
		default:
			return nil, fmt.Errorf("binder %d: unknown source %q", i, b.Source)
		}

		if b.Span > 1 {
			parts, ok := v.([]any)
			if !ok || len(parts) != b.Span {
				return nil, fmt.Errorf("binder %d: parameter spans %d columns, want a []any of that length, got %T",
					i, b.Span, v)
			}
			v = parts[b.Column]
		}
		out = append(out, v)
	}
	return out, nil
}

// driverLiteral converts a literal binder's value to a type database/sql
// accepts.
func driverLiteral(b *querysql.Binder) any {
	switch v := b.Value.(type) {
	case *big.Int:
		return v.String()
	case int32:
		if b.Type == "character" {
			return string(rune(v))
		}
		return int64(v)
	case float32:
		return float64(v)
	}
	return b.Value
}
