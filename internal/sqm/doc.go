// Package sqm defines the Semantic Query Model: the name-resolved
// representation of a query built by the semantic pass and consumed by SQL
// lowering.
//
// ARCHITECTURE:
//
//	[parse tree] → [indexer] → [builder] → [SQM] → [lowering] → [SQL AST] → [renderer]
//
// The SQM refers to schema objects directly (entity types, attributes,
// classes) rather than by name. Every alias, path and constant has already
// been resolved when an SQM node exists.
//
// SCOPES:
//
// A FromClause is a scope. Nested query specs (subqueries) get child
// FromClauses whose Parent link is used for enclosing-scope alias lookups.
// Parent/child links always form a tree.
//
// A FromElementSpace holds one root from-element plus the explicit joins
// chained off it. Once Complete is called the explicit element list is
// frozen. Implicit joins created while resolving dotted paths are tracked in
// a separate list so that declared join order never changes.
//
// SEALED INTERFACES:
//
// Statement, FromElement, Expression, Predicate and Selection are sealed with
// unexported marker methods. Consumers switch over the concrete types; the
// default branch of every such switch is a defect, reported as
// NOT_YET_IMPLEMENTED.
//
// MUTATION:
//
// The only mutation after construction is the treated-as set of a
// from-element, which TREAT expressions extend idempotently, and the
// inferred type of an untyped parameter or literal.
package sqm
