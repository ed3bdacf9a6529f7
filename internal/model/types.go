package model

// Type is a relational type: anything a query expression can evaluate to.
//
// ColumnSpan is the number of physical columns a value of this type
// occupies. Basic types span one column; embeddables span the sum of their
// attributes; entity types span their identifier.
type Type interface {
	TypeName() string
	ColumnSpan() int
}

// BasicType is a single-column type.
type BasicType struct {
	Name    string
	SQLType string
}

// TypeName implements Type.
func (t *BasicType) TypeName() string { return t.Name }

// ColumnSpan implements Type.
func (t *BasicType) ColumnSpan() int { return 1 }

// Built-in basic types. Literal kinds map onto these one-to-one.
var (
	String     = &BasicType{Name: "string", SQLType: "varchar"}
	Character  = &BasicType{Name: "character", SQLType: "char"}
	Integer    = &BasicType{Name: "integer", SQLType: "integer"}
	Long       = &BasicType{Name: "long", SQLType: "bigint"}
	BigInteger = &BasicType{Name: "big_integer", SQLType: "numeric"}
	Float      = &BasicType{Name: "float", SQLType: "real"}
	Double     = &BasicType{Name: "double", SQLType: "double precision"}
	BigDecimal = &BasicType{Name: "big_decimal", SQLType: "numeric"}
	Boolean    = &BasicType{Name: "boolean", SQLType: "boolean"}
	Date       = &BasicType{Name: "date", SQLType: "date"}
	Timestamp  = &BasicType{Name: "timestamp", SQLType: "timestamp"}
)

var basicTypes = map[string]*BasicType{
	String.Name:     String,
	Character.Name:  Character,
	Integer.Name:    Integer,
	"int":           Integer,
	Long.Name:       Long,
	BigInteger.Name: BigInteger,
	Float.Name:      Float,
	Double.Name:     Double,
	BigDecimal.Name: BigDecimal,
	"decimal":       BigDecimal,
	Boolean.Name:    Boolean,
	"bool":          Boolean,
	Date.Name:       Date,
	Timestamp.Name:  Timestamp,
}

// BasicTypeByName looks up a built-in basic type by name.
func BasicTypeByName(name string) (*BasicType, bool) {
	t, ok := basicTypes[name]
	return t, ok
}

// IsNumeric reports whether t is one of the numeric basic types.
func IsNumeric(t Type) bool {
	switch t {
	case Integer, Long, BigInteger, Float, Double, BigDecimal:
		return true
	}
	return false
}

// ColumnTypes flattens t into one basic type per physical column.
func ColumnTypes(t Type) []*BasicType {
	switch t := t.(type) {
	case *BasicType:
		return []*BasicType{t}
	case *EmbeddableType:
		var out []*BasicType
		for _, a := range t.Attributes() {
			out = append(out, ColumnTypes(a.Type)...)
		}
		return out
	case *EntityType:
		if id := t.Identifier(); id != nil {
			return ColumnTypes(id.Type)
		}
	}
	return nil
}
