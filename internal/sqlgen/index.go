package sqlgen

import (
	"github.com/roach88/oqlc/internal/sqlast"
	"github.com/roach88/oqlc/internal/sqm"
)

// FromClauseIndex memoizes the table group of every from element lowered
// for one query spec, and the table space of every from-element space.
// Lookups fall back to the enclosing query spec's index.
type FromClauseIndex struct {
	parent *FromClauseIndex
	groups map[sqm.FromElement]sqlast.TableGroup
	spaces map[*sqm.FromElementSpace]*sqlast.TableSpace
}

// NewFromClauseIndex creates an index nested in parent, which may be nil.
func NewFromClauseIndex(parent *FromClauseIndex) *FromClauseIndex {
	return &FromClauseIndex{
		parent: parent,
		groups: map[sqm.FromElement]sqlast.TableGroup{},
		spaces: map[*sqm.FromElementSpace]*sqlast.TableSpace{},
	}
}

// Register records the group for e. Treated wrappers register their
// underlying element.
func (x *FromClauseIndex) Register(e sqm.FromElement, g sqlast.TableGroup) {
	x.groups[sqm.Underlying(e)] = g
}

// Find returns the group already lowered for e, or nil.
func (x *FromClauseIndex) Find(e sqm.FromElement) sqlast.TableGroup {
	e = sqm.Underlying(e)
	for i := x; i != nil; i = i.parent {
		if g, ok := i.groups[e]; ok {
			return g
		}
	}
	return nil
}

// RegisterSpace records the table space a from-element space lowered to.
func (x *FromClauseIndex) RegisterSpace(s *sqm.FromElementSpace, ts *sqlast.TableSpace) {
	x.spaces[s] = ts
}

// Space returns the table space for s and the index that owns it, or nil
// if s has not been lowered.
func (x *FromClauseIndex) Space(s *sqm.FromElementSpace) (*sqlast.TableSpace, *FromClauseIndex) {
	for i := x; i != nil; i = i.parent {
		if ts, ok := i.spaces[s]; ok {
			return ts, i
		}
	}
	return nil, nil
}

// Len returns the number of elements memoized in this index alone.
func (x *FromClauseIndex) Len() int { return len(x.groups) }
