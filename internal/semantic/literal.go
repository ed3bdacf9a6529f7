package semantic

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/roach88/oqlc/internal/parsetree"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// stripSuffix removes a case-insensitive type suffix if present.
func stripSuffix(text, suffix string) string {
	if len(text) > len(suffix) && strings.EqualFold(text[len(text)-len(suffix):], suffix) {
		return text[:len(text)-len(suffix)]
	}
	return text
}

// unquote strips surrounding single quotes and collapses doubled quotes.
func unquote(text string) string {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return strings.ReplaceAll(text[1:len(text)-1], "''", "'")
	}
	return text
}

// parseLiteral maps a literal token to exactly one semantic literal kind.
// Numeric parse failures carry the original literal text.
func parseLiteral(l *parsetree.Literal) (*sqm.Literal, error) {
	text := l.Text
	switch l.Kind {
	case parsetree.LiteralString:
		return &sqm.Literal{Kind: sqm.LiteralString, Value: unquote(text), Text: text}, nil

	case parsetree.LiteralCharacter:
		s := unquote(text)
		if utf8.RuneCountInString(s) != 1 {
			return nil, qerr.LiteralFormat(text, "character", nil)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return &sqm.Literal{Kind: sqm.LiteralCharacter, Value: r, Text: text}, nil

	case parsetree.LiteralInteger:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, qerr.LiteralFormat(text, "integer", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralInteger, Value: int32(v), Text: text}, nil

	case parsetree.LiteralLong:
		v, err := strconv.ParseInt(stripSuffix(text, "l"), 10, 64)
		if err != nil {
			return nil, qerr.LiteralFormat(text, "long", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralLong, Value: v, Text: text}, nil

	case parsetree.LiteralBigInteger:
		v, ok := new(big.Int).SetString(stripSuffix(text, "bi"), 10)
		if !ok {
			return nil, qerr.LiteralFormat(text, "big integer", nil)
		}
		return &sqm.Literal{Kind: sqm.LiteralBigInteger, Value: v, Text: text}, nil

	case parsetree.LiteralFloat:
		v, err := strconv.ParseFloat(stripSuffix(text, "f"), 32)
		if err != nil {
			return nil, qerr.LiteralFormat(text, "float", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralFloat, Value: float32(v), Text: text}, nil

	case parsetree.LiteralDouble:
		v, err := strconv.ParseFloat(stripSuffix(text, "d"), 64)
		if err != nil {
			return nil, qerr.LiteralFormat(text, "double", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralDouble, Value: v, Text: text}, nil

	case parsetree.LiteralBigDecimal:
		v, err := decimal.NewFromString(stripSuffix(text, "bd"))
		if err != nil {
			return nil, qerr.LiteralFormat(text, "big decimal", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralBigDecimal, Value: v, Text: text}, nil

	case parsetree.LiteralHex:
		return parseRadix(text, stripHexPrefix, 16)
	case parsetree.LiteralOctal:
		return parseRadix(text, func(s string) string { return s }, 8)

	case parsetree.LiteralTrue:
		return &sqm.Literal{Kind: sqm.LiteralBoolean, Value: true, Text: text}, nil
	case parsetree.LiteralFalse:
		return &sqm.Literal{Kind: sqm.LiteralBoolean, Value: false, Text: text}, nil
	case parsetree.LiteralNull:
		return &sqm.Literal{Kind: sqm.LiteralNull, Text: text}, nil
	}
	return nil, qerr.Structural("unexpected literal kind %d", l.Kind)
}

func stripHexPrefix(s string) string {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

// parseRadix parses hex and octal literals: long with an l/L suffix,
// integer otherwise.
func parseRadix(text string, prefix func(string) string, base int) (*sqm.Literal, error) {
	long := strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L")
	digits := prefix(text)
	if long {
		digits = digits[:len(digits)-1]
		v, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			return nil, qerr.LiteralFormat(text, "long", err)
		}
		return &sqm.Literal{Kind: sqm.LiteralLong, Value: v, Text: text}, nil
	}
	v, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		return nil, qerr.LiteralFormat(text, "integer", err)
	}
	return &sqm.Literal{Kind: sqm.LiteralInteger, Value: int32(v), Text: text}, nil
}
