package sqlgen

import (
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/qerr"
	"github.com/roach88/oqlc/internal/sqlast"
)

// buildEntityGroup builds the table group of entity: its own table, inner
// joins to every supertype table and left joins to every subtype table, all
// joined on the hierarchy identifier columns.
func buildEntityGroup(entity *model.EntityType, alloc *tableAliases) (*sqlast.EntityTableGroup, error) {
	root := alloc.bind(entity.Table)
	g := sqlast.NewEntityTableGroup(entity, alloc.base, root)

	id := entity.Identifier()
	if id == nil {
		return nil, qerr.Invariant("entity %s has no identifier", entity.Name)
	}
	types := model.ColumnTypes(id.Type)

	for s := entity.Super(); s != nil; s = s.Super() {
		ref := alloc.bind(s.Table)
		pred, err := keyEquality(ref, id.Columns, root, id.Columns, types)
		if err != nil {
			return nil, err
		}
		g.AddTableJoin(&sqlast.TableJoin{Type: sqlast.JoinInner, Table: ref, Predicate: pred})
	}

	var subtypes func(parent *sqlast.TableReference, e *model.EntityType) error
	subtypes = func(parent *sqlast.TableReference, e *model.EntityType) error {
		for _, sub := range e.Subtypes() {
			ref := alloc.bind(sub.Table)
			pred, err := keyEquality(ref, id.Columns, parent, id.Columns, types)
			if err != nil {
				return err
			}
			g.AddTableJoin(&sqlast.TableJoin{Type: sqlast.JoinLeft, Table: ref, Predicate: pred})
			if err := subtypes(ref, sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := subtypes(root, entity); err != nil {
		return nil, err
	}
	return g, nil
}

// keyEquality conjoins lhs[i] = rhs[i] over two column lists. The lists
// must have the same length.
func keyEquality(lhs *sqlast.TableReference, lcols []string, rhs *sqlast.TableReference, rcols []string, types []*model.BasicType) (sqlast.Predicate, error) {
	if len(lcols) != len(rcols) || len(lcols) == 0 {
		return nil, qerr.Invariant("join key arity mismatch between %s and %s: %d vs %d",
			lhs.Table, rhs.Table, len(lcols), len(rcols))
	}
	preds := make([]sqlast.Predicate, 0, len(lcols))
	for i := range lcols {
		preds = append(preds, &sqlast.Comparison{
			Op:    sqlast.Equal,
			Left:  column(lhs, lcols[i], typeAt(types, i)),
			Right: column(rhs, rcols[i], typeAt(types, i)),
		})
	}
	return sqlast.Conjoin(preds...), nil
}

// keyToColumns conjoins key[i] = owner[i], pairing key columns of ref with
// already resolved owner columns.
func keyToColumns(ref *sqlast.TableReference, key []string, owner []*sqlast.ColumnReference) (sqlast.Predicate, error) {
	if len(key) != len(owner) || len(key) == 0 {
		return nil, qerr.Invariant("join key arity mismatch on %s: %d vs %d", ref.Table, len(key), len(owner))
	}
	preds := make([]sqlast.Predicate, 0, len(key))
	for i, c := range owner {
		preds = append(preds, &sqlast.Comparison{
			Op:    sqlast.Equal,
			Left:  column(ref, key[i], c.Type),
			Right: c,
		})
	}
	return sqlast.Conjoin(preds...), nil
}

func typeAt(types []*model.BasicType, i int) *model.BasicType {
	if i < len(types) {
		return types[i]
	}
	return nil
}

func column(ref *sqlast.TableReference, name string, typ *model.BasicType) *sqlast.ColumnReference {
	return &sqlast.ColumnReference{Qualifier: ref.Alias, Column: name, Type: typ}
}

// valueTypes returns one basic type per column of attr. Associations
// referencing a non-identifier property take that property's types.
func valueTypes(attr *model.Attribute) []*model.BasicType {
	if attr.Target != nil && attr.ReferencedProperty != "" {
		if ref := attr.Target.FindAttribute(attr.ReferencedProperty); ref != nil {
			return model.ColumnTypes(ref.Type)
		}
	}
	return model.ColumnTypes(attr.Type)
}

// attributeColumns resolves a singular attribute to its column bindings in g.
func attributeColumns(g sqlast.TableGroup, attr *model.Attribute) ([]*sqlast.ColumnReference, error) {
	if attr.IsPlural() {
		return nil, qerr.Semantic(attr.Name, "collection-valued attribute %q cannot be used as a value", attr.Name)
	}
	ref := g.Table(attr.Table)
	if ref == nil {
		return nil, qerr.Invariant("table %s of attribute %s is not part of table group %s",
			attr.Table, attr.Name, g.AliasBase())
	}
	types := valueTypes(attr)
	if len(types) != len(attr.Columns) {
		return nil, qerr.Invariant("attribute %s maps %d columns but %d types",
			attr.Name, len(attr.Columns), len(types))
	}
	out := make([]*sqlast.ColumnReference, len(attr.Columns))
	for i, c := range attr.Columns {
		out[i] = column(ref, c, types[i])
	}
	return out, nil
}

// identifierColumns resolves entity's identifier in g.
func identifierColumns(g sqlast.TableGroup, entity *model.EntityType) ([]*sqlast.ColumnReference, error) {
	id := entity.Identifier()
	if id == nil {
		return nil, qerr.Invariant("entity %s has no identifier", entity.Name)
	}
	return attributeColumns(g, id)
}

// elementColumns resolves the element columns of a collection group's
// collection table.
func elementColumns(ref *sqlast.TableReference, m *model.CollectionMapping) ([]*sqlast.ColumnReference, error) {
	types := model.ColumnTypes(m.Element)
	if len(types) != len(m.ElementColumns) {
		return nil, qerr.Invariant("collection %s maps %d element columns but %d types",
			m.Table, len(m.ElementColumns), len(types))
	}
	out := make([]*sqlast.ColumnReference, len(types))
	for i, c := range m.ElementColumns {
		out[i] = column(ref, c, types[i])
	}
	return out, nil
}

// entityColumns lists every selectable column of entity in g: the
// identifier, then each singular attribute of the hierarchy from the root
// down, then the attributes declared by subtypes.
func entityColumns(g sqlast.TableGroup, entity *model.EntityType) ([]*sqlast.ColumnReference, error) {
	out, err := identifierColumns(g, entity)
	if err != nil {
		return nil, err
	}
	id := entity.Identifier()
	add := func(attrs []*model.Attribute) error {
		for _, a := range attrs {
			if a == id || a.IsPlural() {
				continue
			}
			cols, err := attributeColumns(g, a)
			if err != nil {
				return err
			}
			out = append(out, cols...)
		}
		return nil
	}
	if err := add(entity.Attributes()); err != nil {
		return nil, err
	}
	var subtypes func(e *model.EntityType) error
	subtypes = func(e *model.EntityType) error {
		for _, sub := range e.Subtypes() {
			if err := add(sub.DeclaredAttributes()); err != nil {
				return err
			}
			if err := subtypes(sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := subtypes(entity); err != nil {
		return nil, err
	}
	return out, nil
}

// asExpression turns a column list into a single value.
func asExpression(cols []*sqlast.ColumnReference) sqlast.Expression {
	if len(cols) == 1 {
		return cols[0]
	}
	items := make([]sqlast.Expression, len(cols))
	for i, c := range cols {
		items[i] = c
	}
	return &sqlast.Tuple{Items: items}
}
