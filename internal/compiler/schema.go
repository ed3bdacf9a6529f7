package compiler

import (
	_ "embed"
	"fmt"
	"math"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"github.com/shopspring/decimal"

	"github.com/roach88/oqlc/internal/model"
)

//go:embed schema.cue
var schemaDefinitions string

// Schema is a compiled mapping schema.
type Schema struct {
	Catalog *model.Catalog
	Symbols model.Symbols
}

type idSpec struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Column     string `json:"column"`
	Embeddable string `json:"embeddable"`
}

type collectionSpec struct {
	Table   string   `json:"table"`
	Key     []string `json:"key"`
	Element []string `json:"element"`
}

type attributeSpec struct {
	Kind       string          `json:"kind"`
	Type       string          `json:"type"`
	Column     string          `json:"column"`
	Target     string          `json:"target"`
	Columns    []string        `json:"columns"`
	References string          `json:"references"`
	Collection *collectionSpec `json:"collection"`
}

type fieldSpec struct {
	Type     string `json:"type"`
	Static   *bool  `json:"static"`
	Exported *bool  `json:"exported"`
}

// CompileSchema turns a CUE value into a frozen catalog and a symbol table.
//
// The value is first validated against the #Schema definition, so shape
// errors (unknown fields, wrong kinds) are reported before anything is
// built:
//
//	entity: Person: {
//		table: "person"
//		id: {name: "id", type: "long", column: "id"}
//		attributes: {
//			name: {type: "string"}
//			employer: {kind: "many_to_one", target: "Company", columns: ["employer_id"]}
//		}
//	}
//	class: "com.acme.Status": {enum: ["ACTIVE", "RETIRED"]}
func CompileSchema(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}

	defs := v.Context().CompileString(schemaDefinitions, cue.Filename("schema.cue"))
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("schema definitions: %w", err)
	}
	if err := defs.LookupPath(cue.ParsePath("#Schema")).Unify(v).Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(err)
	}

	c := &catalogBuilder{
		catalog:     model.NewCatalog(),
		entities:    map[string]*model.EntityType{},
		embeddables: map[string]*model.EmbeddableType{},
	}
	if err := c.embeddableTypes(v.LookupPath(cue.ParsePath("embeddable"))); err != nil {
		return nil, err
	}
	if err := c.entityTypes(v.LookupPath(cue.ParsePath("entity"))); err != nil {
		return nil, err
	}
	if err := c.catalog.Freeze(); err != nil {
		return nil, errorAt(v, "entity", err.Error())
	}

	symbols, err := compileClasses(v.LookupPath(cue.ParsePath("class")))
	if err != nil {
		return nil, err
	}
	return &Schema{Catalog: c.catalog, Symbols: symbols}, nil
}

type catalogBuilder struct {
	catalog     *model.Catalog
	entities    map[string]*model.EntityType
	embeddables map[string]*model.EmbeddableType
}

type entityValue struct {
	name  string
	value cue.Value
	typ   *model.EntityType
}

func (c *catalogBuilder) embeddableTypes(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return fromCUE(err)
	}
	for iter.Next() {
		name := iter.Label()
		attrs, err := basicAttributes(iter.Value().LookupPath(cue.ParsePath("attributes")), "embeddable."+name)
		if err != nil {
			return err
		}
		emb := model.NewEmbeddable(name, attrs...)
		if err := c.catalog.AddEmbeddable(emb); err != nil {
			return errorAt(iter.Value(), "embeddable."+name, err.Error())
		}
		c.embeddables[name] = emb
	}
	return nil
}

// basicAttributes reads the single-column attributes of an embeddable in
// declaration order. The column defaults to the attribute name.
func basicAttributes(v cue.Value, field string) ([]*model.Attribute, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	var attrs []*model.Attribute
	for iter.Next() {
		name := iter.Label()
		var spec attributeSpec
		if err := iter.Value().Decode(&spec); err != nil {
			return nil, fromCUE(err)
		}
		typ, ok := model.BasicTypeByName(spec.Type)
		if !ok {
			return nil, errorAt(iter.Value(), field+"."+name, fmt.Sprintf("unknown basic type %q", spec.Type))
		}
		attrs = append(attrs, &model.Attribute{
			Name:    name,
			Nature:  model.NatureBasic,
			Type:    typ,
			Columns: []string{columnOr(spec.Column, name)},
		})
	}
	return attrs, nil
}

// entityTypes builds entities in passes so that supertypes and targets can
// be referenced regardless of declaration order. Referenced properties are
// checked once every attribute is declared.
func (c *catalogBuilder) entityTypes(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return fromCUE(err)
	}

	var all []*entityValue
	for iter.Next() {
		ev := &entityValue{name: iter.Label(), value: iter.Value()}
		table, err := ev.value.LookupPath(cue.ParsePath("table")).String()
		if err != nil {
			return fromCUE(err)
		}
		ev.typ = model.NewEntity(ev.name, table)
		if d := ev.value.LookupPath(cue.ParsePath("discriminator")); d.Exists() {
			if ev.typ.Discriminator, err = d.String(); err != nil {
				return fromCUE(err)
			}
		}
		c.entities[ev.name] = ev.typ
		all = append(all, ev)
	}

	for _, ev := range all {
		ext := ev.value.LookupPath(cue.ParsePath("extends"))
		if !ext.Exists() {
			continue
		}
		superName, err := ext.String()
		if err != nil {
			return fromCUE(err)
		}
		super, ok := c.entities[superName]
		if !ok {
			return errorAt(ext, "entity."+ev.name+".extends", fmt.Sprintf("unknown entity %q", superName))
		}
		ev.typ.Extends(super)
	}

	for _, ev := range all {
		if err := c.identifier(ev); err != nil {
			return err
		}
		if err := c.attributes(ev); err != nil {
			return err
		}
	}

	for _, ev := range all {
		for _, a := range ev.typ.DeclaredAttributes() {
			if a.ReferencedProperty != "" && a.Target.FindAttribute(a.ReferencedProperty) == nil {
				return errorAt(ev.value, "entity."+ev.name+".attributes."+a.Name, fmt.Sprintf("target %s has no attribute %q", a.Target.Name, a.ReferencedProperty))
			}
		}
		if err := c.catalog.AddEntity(ev.typ); err != nil {
			return errorAt(ev.value, "entity."+ev.name, err.Error())
		}
	}
	return nil
}

func (c *catalogBuilder) identifier(ev *entityValue) error {
	v := ev.value.LookupPath(cue.ParsePath("id"))
	field := "entity." + ev.name + ".id"
	if !v.Exists() {
		if ev.typ.Super() == nil {
			return errorAt(ev.value, field, "id is required for a hierarchy root")
		}
		return nil
	}
	if ev.typ.Super() != nil {
		return errorAt(v, field, "a subtype inherits the identifier of its supertype")
	}

	var spec idSpec
	if err := v.Decode(&spec); err != nil {
		return fromCUE(err)
	}
	if spec.Embeddable != "" {
		emb, ok := c.embeddables[spec.Embeddable]
		if !ok {
			return errorAt(v, field, fmt.Sprintf("unknown embeddable %q", spec.Embeddable))
		}
		ev.typ.CompositeID(spec.Name, emb)
		return nil
	}
	typ, ok := model.BasicTypeByName(spec.Type)
	if !ok {
		return errorAt(v, field, fmt.Sprintf("unknown basic type %q", spec.Type))
	}
	ev.typ.ID(spec.Name, typ, columnOr(spec.Column, spec.Name))
	return nil
}

func (c *catalogBuilder) attributes(ev *entityValue) error {
	v := ev.value.LookupPath(cue.ParsePath("attributes"))
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return fromCUE(err)
	}
	for iter.Next() {
		name := iter.Label()
		var spec attributeSpec
		if err := iter.Value().Decode(&spec); err != nil {
			return fromCUE(err)
		}
		if err := c.attribute(ev.typ, name, &spec); err != nil {
			return errorAt(iter.Value(), "entity."+ev.name+".attributes."+name, err.Error())
		}
	}
	return nil
}

func (c *catalogBuilder) attribute(e *model.EntityType, name string, spec *attributeSpec) error {
	kind := spec.Kind
	if kind == "" {
		kind = "basic"
	}
	nature, ok := model.ParseNature(kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", kind)
	}

	var target *model.EntityType
	if spec.Target != "" {
		if target, ok = c.entities[spec.Target]; !ok {
			return fmt.Errorf("unknown target entity %q", spec.Target)
		}
	}
	requireTarget := func() error {
		if target == nil {
			return fmt.Errorf("%s requires a target", kind)
		}
		return nil
	}
	requireCollection := func() error {
		if spec.Collection == nil {
			return fmt.Errorf("%s requires a collection mapping", kind)
		}
		return nil
	}

	switch nature {
	case model.NatureBasic:
		typ, ok := model.BasicTypeByName(spec.Type)
		if !ok {
			return fmt.Errorf("unknown basic type %q", spec.Type)
		}
		e.Basic(name, typ, columnOr(spec.Column, name))

	case model.NatureEmbedded:
		emb, ok := c.embeddables[spec.Type]
		if !ok {
			return fmt.Errorf("unknown embeddable %q", spec.Type)
		}
		e.Embedded(name, emb)

	case model.NatureManyToOne, model.NatureOneToOne:
		if err := requireTarget(); err != nil {
			return err
		}
		if len(spec.Columns) == 0 {
			return fmt.Errorf("%s requires foreign key columns", kind)
		}
		if nature == model.NatureManyToOne {
			e.ManyToOne(name, target, spec.Columns...)
		} else {
			e.OneToOne(name, target, spec.Columns...)
		}
		if spec.References != "" {
			e.ReferencingProperty(spec.References)
		}

	case model.NatureOneToMany, model.NatureManyToMany:
		if err := requireTarget(); err != nil {
			return err
		}
		if err := requireCollection(); err != nil {
			return err
		}
		m := spec.Collection.mapping()
		if nature == model.NatureOneToMany {
			e.OneToMany(name, target, m)
		} else {
			e.ManyToMany(name, target, m)
		}

	case model.NatureElementCollection:
		typ, ok := model.BasicTypeByName(spec.Type)
		if !ok {
			return fmt.Errorf("unknown basic type %q", spec.Type)
		}
		if err := requireCollection(); err != nil {
			return err
		}
		e.ElementCollection(name, typ, spec.Collection.mapping())
	}
	return nil
}

func (s *collectionSpec) mapping() model.CollectionMapping {
	return model.CollectionMapping{
		Table:          s.Table,
		KeyColumns:     s.Key,
		ElementColumns: s.Element,
	}
}

func columnOr(column, name string) string {
	if column != "" {
		return column
	}
	return name
}

func compileClasses(v cue.Value) (model.Symbols, error) {
	symbols := model.Symbols{}
	if !v.Exists() {
		return symbols, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	for iter.Next() {
		class, err := compileClass(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		symbols.Add(class)
	}
	return symbols, nil
}

func compileClass(name string, v cue.Value) (*model.Class, error) {
	class := &model.Class{Name: name}
	field := "class." + name

	if enum := v.LookupPath(cue.ParsePath("enum")); enum.Exists() {
		class.Enum = true
		if err := enum.Decode(&class.Constants); err != nil {
			return nil, fromCUE(err)
		}
	}
	if ord := v.LookupPath(cue.ParsePath("ordinal")); ord.Exists() {
		ordinal, err := ord.Bool()
		if err != nil {
			return nil, fromCUE(err)
		}
		class.Ordinal = ordinal
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if !fields.Exists() {
		return class, nil
	}
	if class.Enum {
		return nil, errorAt(fields, field, "an enum declares constants, not fields")
	}
	iter, err := fields.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	class.Fields = map[string]*model.Field{}
	for iter.Next() {
		fname := iter.Label()
		var spec fieldSpec
		if err := iter.Value().Decode(&spec); err != nil {
			return nil, fromCUE(err)
		}
		typ, ok := model.BasicTypeByName(spec.Type)
		if !ok {
			return nil, errorAt(iter.Value(), field+".fields."+fname, fmt.Sprintf("unknown basic type %q", spec.Type))
		}
		raw := iter.Value().LookupPath(cue.ParsePath("value"))
		value, err := fieldValue(raw, typ)
		if err != nil {
			return nil, errorAt(raw, field+".fields."+fname, err.Error())
		}
		class.Fields[fname] = &model.Field{
			Name:     fname,
			Static:   spec.Static == nil || *spec.Static,
			Exported: spec.Exported == nil || *spec.Exported,
			Type:     typ,
			Value:    value,
		}
	}
	return class, nil
}

// fieldValue converts a concrete CUE value to the Go representation the
// compiler uses for literals of type t.
func fieldValue(v cue.Value, t *model.BasicType) (any, error) {
	switch t {
	case model.String, model.Date, model.Timestamp:
		return v.String()
	case model.Character:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("character value %q must be a single character", s)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	case model.Integer:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("integer value %d out of range", n)
		}
		return int32(n), nil
	case model.Long:
		return v.Int64()
	case model.BigInteger:
		return v.Int(nil)
	case model.Float:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case model.Double:
		return v.Float64()
	case model.BigDecimal:
		if s, err := v.String(); err == nil {
			return decimal.NewFromString(s)
		}
		text, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return decimal.NewFromString(string(text))
	case model.Boolean:
		return v.Bool()
	}
	return nil, fmt.Errorf("unsupported field type %s", t.Name)
}
