package querysql

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/oqlc/internal/model"
)

// Dialect supplies the database-specific parts of rendering: inline literal
// syntax and functions whose spelling differs between databases.
type Dialect interface {
	// Name identifies the dialect in configuration and plan output.
	Name() string

	// Literal renders v of column type t inline. It is only called for
	// literals in a select list. t may be nil.
	Literal(v any, t *model.BasicType) (string, error)

	// Function renders a call of name over already rendered arguments. It
	// returns false when the generic name(args) form applies.
	Function(name string, args []string) (string, bool)
}

// SQLite renders for SQLite: booleans as 1/0 and mod as the % operator.
var SQLite Dialect = sqliteDialect{}

// ANSI renders standard SQL.
var ANSI Dialect = ansiDialect{}

// DialectByName looks up a dialect by its configured name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite":
		return SQLite, nil
	case "ansi":
		return ANSI, nil
	}
	return nil, fmt.Errorf("unknown dialect %q (want sqlite or ansi)", name)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Literal(v any, t *model.BasicType) (string, error) {
	if b, ok := v.(bool); ok {
		if b {
			return "1", nil
		}
		return "0", nil
	}
	return inlineLiteral(v, t)
}

func (sqliteDialect) Function(name string, args []string) (string, bool) {
	if name == "mod" && len(args) == 2 {
		return "(" + args[0] + "%" + args[1] + ")", true
	}
	return "", false
}

type ansiDialect struct{}

func (ansiDialect) Name() string { return "ansi" }

func (ansiDialect) Literal(v any, t *model.BasicType) (string, error) {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b), nil
	}
	return inlineLiteral(v, t)
}

func (ansiDialect) Function(string, []string) (string, bool) { return "", false }

// inlineLiteral renders the literal forms every dialect shares. Characters
// are stored as int32 and told apart from integers by their column type.
func inlineLiteral(v any, t *model.BasicType) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(v), nil
	case int32:
		if t == model.Character {
			return quote(string(rune(v))), nil
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case *big.Int:
		return v.String(), nil
	}
	return "", fmt.Errorf("cannot inline literal of type %T", v)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
