package querysql

import (
	"fmt"
	"strings"
)

// BinderSource says where a binder's value comes from at execution time.
type BinderSource string

const (
	// BindNamed takes its value from a named parameter.
	BindNamed BinderSource = "named"
	// BindPositional takes its value from a positional parameter.
	BindPositional BinderSource = "positional"
	// BindLiteral carries the value of a query literal rendered as a
	// placeholder.
	BindLiteral BinderSource = "literal"
)

// Binder is one `?` placeholder of rendered SQL, in emission order.
//
// A parameter spanning several columns registers one binder per column;
// Column is the index within the parameter's value.
type Binder struct {
	Source   BinderSource `json:"source"`
	Name     string       `json:"name,omitempty"`
	Position int          `json:"position,omitempty"`
	Column   int          `json:"column"`
	Span     int          `json:"span"`
	Type     string       `json:"type,omitempty"`
	Value    any          `json:"value,omitempty"`
}

// Result is rendered SQL plus its binders.
type Result struct {
	SQL     string
	Binders []*Binder
}

// String renders b as one short line:
//
//	:name string        named parameter
//	?1 long             positional parameter
//	:addr[1/2] string   column 1 of a two-column parameter
//	literal(65) integer query literal bound as a value
func (b *Binder) String() string {
	var sb strings.Builder
	switch b.Source {
	case BindNamed:
		sb.WriteString(":" + b.Name)
	case BindPositional:
		fmt.Fprintf(&sb, "?%d", b.Position)
	case BindLiteral:
		fmt.Fprintf(&sb, "literal(%v)", b.Value)
	default:
		sb.WriteString(string(b.Source))
	}
	if b.Span > 1 {
		fmt.Fprintf(&sb, "[%d/%d]", b.Column, b.Span)
	}
	if b.Type != "" {
		sb.WriteString(" " + b.Type)
	}
	return sb.String()
}
