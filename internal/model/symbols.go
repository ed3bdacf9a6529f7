package model

// SymbolTable resolves class names for constant references and dynamic
// instantiation targets.
type SymbolTable interface {
	ClassByName(name string) (*Class, bool)
}

// Class is a named class or enum visible to queries.
//
// Enum classes list their constants in ordinal order. Ordinal selects whether
// an enum constant is bound by ordinal (integer) or by name (string).
type Class struct {
	Name      string
	Enum      bool
	Ordinal   bool
	Constants []string
	Fields    map[string]*Field
}

// Field is a class member readable as a constant.
type Field struct {
	Name     string
	Static   bool
	Exported bool
	Type     *BasicType
	Value    any
}

// EnumConstant returns the ordinal of the named constant.
func (c *Class) EnumConstant(name string) (int, bool) {
	for i, k := range c.Constants {
		if k == name {
			return i, true
		}
	}
	return 0, false
}

// Field returns the named field.
func (c *Class) Field(name string) (*Field, bool) {
	f, ok := c.Fields[name]
	return f, ok
}

// EnumType is the basic type enum constants of c bind as.
func (c *Class) EnumType() *BasicType {
	if c.Ordinal {
		return Integer
	}
	return String
}

// Symbols is a map-backed SymbolTable. It is read-only once handed to the
// compiler.
type Symbols map[string]*Class

// ClassByName implements SymbolTable.
func (s Symbols) ClassByName(name string) (*Class, bool) {
	c, ok := s[name]
	return c, ok
}

// Add registers classes by name.
func (s Symbols) Add(classes ...*Class) Symbols {
	for _, c := range classes {
		s[c.Name] = c
	}
	return s
}
