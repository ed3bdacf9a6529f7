package semantic

import (
	"strings"

	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqm"
)

// resolveConstant interprets text as Class.MEMBER: an enum constant, or an
// exported static field.
func (b *Builder) resolveConstant(text string) (sqm.Expression, error) {
	dot := strings.LastIndex(text, ".")
	if dot <= 0 || dot == len(text)-1 {
		return nil, qerr.Semantic(text, "not a qualified constant reference")
	}
	className, member := text[:dot], text[dot+1:]
	if b.ctx.symbols == nil {
		return nil, qerr.Semantic(text, "no symbol table configured")
	}
	class, ok := b.ctx.symbols.ClassByName(className)
	if !ok {
		return nil, qerr.Semantic(className, "unknown class %q", className)
	}

	if class.Enum {
		ord, ok := class.EnumConstant(member)
		if !ok {
			return nil, qerr.Semantic(text, "enum %s has no constant %s", className, member)
		}
		return &sqm.ConstantEnum{Class: class, Name: member, Ordinal: ord}, nil
	}

	f, ok := class.Field(member)
	switch {
	case !ok:
		return nil, qerr.Semantic(text, "class %s has no field %s", className, member)
	case !f.Static:
		return nil, qerr.Semantic(text, "field %s.%s is not static", className, member)
	case !f.Exported:
		return nil, qerr.Semantic(text, "field %s.%s is not accessible", className, member)
	}
	return &sqm.ConstantField{Class: class, Field: f}, nil
}
