package model

import (
	"fmt"
	"sort"
)

// Metamodel resolves entity names for the compiler.
//
// Implementations must be safe for concurrent reads.
type Metamodel interface {
	ResolveEntityType(name string) *EntityType
}

// Catalog is the in-memory Metamodel.
//
// A Catalog is populated with AddEntity and then frozen. After Freeze it is
// read-only and safe to share between goroutines.
type Catalog struct {
	entities    map[string]*EntityType
	embeddables map[string]*EmbeddableType
	frozen      bool
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entities:    map[string]*EntityType{},
		embeddables: map[string]*EmbeddableType{},
	}
}

// AddEntity registers entity types. Names must be unique.
func (c *Catalog) AddEntity(entities ...*EntityType) error {
	if c.frozen {
		return fmt.Errorf("catalog is frozen")
	}
	for _, e := range entities {
		if _, dup := c.entities[e.Name]; dup {
			return fmt.Errorf("duplicate entity %q", e.Name)
		}
		c.entities[e.Name] = e
	}
	return nil
}

// AddEmbeddable registers an embeddable type by name.
func (c *Catalog) AddEmbeddable(e *EmbeddableType) error {
	if c.frozen {
		return fmt.Errorf("catalog is frozen")
	}
	if _, dup := c.embeddables[e.Name]; dup {
		return fmt.Errorf("duplicate embeddable %q", e.Name)
	}
	c.embeddables[e.Name] = e
	return nil
}

// Freeze validates the catalog and makes it read-only.
func (c *Catalog) Freeze() error {
	for _, e := range c.Entities() {
		if e.Identifier() == nil {
			return fmt.Errorf("entity %s has no identifier", e.Name)
		}
		if e.Table == "" {
			return fmt.Errorf("entity %s has no table", e.Name)
		}
	}
	c.frozen = true
	return nil
}

// ResolveEntityType implements Metamodel.
func (c *Catalog) ResolveEntityType(name string) *EntityType {
	return c.entities[name]
}

// Embeddable looks up an embeddable type by name.
func (c *Catalog) Embeddable(name string) *EmbeddableType {
	return c.embeddables[name]
}

// Entities returns all entities sorted by name.
func (c *Catalog) Entities() []*EntityType {
	out := make([]*EntityType, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
