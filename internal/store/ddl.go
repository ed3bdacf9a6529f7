package store

import (
	"fmt"
	"strings"

	"github.com/roach88/oqlc/internal/model"
)

// Table is the physical layout of one mapped table.
type Table struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// Column is one physical column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateSQL returns the create statement for t.
func (t *Table) CreateSQL() string {
	var sb strings.Builder
	sb.WriteString("create table if not exists ")
	sb.WriteString(t.Name)
	sb.WriteString(" (")
	pk := map[string]bool{}
	for _, c := range t.PrimaryKey {
		pk[c] = true
	}
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(c.Type)
		if pk[c.Name] {
			sb.WriteString(" not null")
		}
	}
	if len(t.PrimaryKey) > 0 {
		sb.WriteString(", primary key (")
		sb.WriteString(strings.Join(t.PrimaryKey, ", "))
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String()
}

// tableSet collects tables and columns in first-seen order.
type tableSet struct {
	order  []*Table
	byName map[string]*Table
}

func (s *tableSet) table(name string) *Table {
	if t, ok := s.byName[name]; ok {
		return t
	}
	t := &Table{Name: name}
	s.byName[name] = t
	s.order = append(s.order, t)
	return t
}

// addColumns appends columns typed by types. A column already present must
// carry the same type.
func (s *tableSet) addColumns(table string, columns []string, types []*model.BasicType) error {
	if len(columns) != len(types) {
		return fmt.Errorf("table %s: %d columns but %d types for %v", table, len(columns), len(types), columns)
	}
	t := s.table(table)
	for i, name := range columns {
		typ := types[i].SQLType
		if existing := t.column(name); existing != nil {
			if existing.Type != typ {
				return fmt.Errorf("column %s.%s declared as %s and %s", table, name, existing.Type, typ)
			}
			continue
		}
		t.Columns = append(t.Columns, Column{Name: name, Type: typ})
	}
	return nil
}

func (t *Table) column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Tables derives the physical tables of a catalog.
//
// Entity tables come first, in entity name order, with identifier columns
// leading. A joined subtype's table repeats the identifier columns as its
// primary key. Collection tables follow: a one-to-many mapped by a foreign
// key on the target adds the key columns to the target's table, every other
// collection gets its own table of key and element columns.
func Tables(c *model.Catalog) ([]*Table, error) {
	s := &tableSet{byName: map[string]*Table{}}
	entities := c.Entities()

	for _, e := range entities {
		id := e.Identifier()
		if err := s.addColumns(e.Table, id.Columns, model.ColumnTypes(id.Type)); err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		s.table(e.Table).PrimaryKey = id.Columns

		for _, a := range e.DeclaredAttributes() {
			if a == id || a.IsPlural() {
				continue
			}
			types, err := attributeTypes(a)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", e.Name, err)
			}
			if err := s.addColumns(a.Table, a.Columns, types); err != nil {
				return nil, fmt.Errorf("entity %s: %w", e.Name, err)
			}
		}
	}

	for _, e := range entities {
		for _, a := range e.DeclaredAttributes() {
			if !a.IsPlural() || a.Collection == nil {
				continue
			}
			m := a.Collection
			if err := s.addColumns(m.Table, m.KeyColumns, model.ColumnTypes(e)); err != nil {
				return nil, fmt.Errorf("collection %s.%s: %w", e.Name, a.Name, err)
			}
			if target := m.ElementEntity(); target != nil && target.Table == m.Table {
				continue
			}
			if err := s.addColumns(m.Table, m.ElementColumns, model.ColumnTypes(m.Element)); err != nil {
				return nil, fmt.Errorf("collection %s.%s: %w", e.Name, a.Name, err)
			}
		}
	}
	return s.order, nil
}

// attributeTypes returns one basic type per column of a singular attribute.
// To-one foreign keys take the types of the columns they reference.
func attributeTypes(a *model.Attribute) ([]*model.BasicType, error) {
	if a.Target == nil {
		return model.ColumnTypes(a.Type), nil
	}
	if a.ReferencedProperty == "" {
		return model.ColumnTypes(a.Target), nil
	}
	ref := a.Target.FindAttribute(a.ReferencedProperty)
	if ref == nil {
		return nil, fmt.Errorf("attribute %s references unknown property %s.%s",
			a.Name, a.Target.Name, a.ReferencedProperty)
	}
	return model.ColumnTypes(ref.Type), nil
}

// DDL returns the create statements for every table of c.
func DDL(c *model.Catalog) ([]string, error) {
	tables, err := Tables(c)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.CreateSQL()
	}
	return out, nil
}
