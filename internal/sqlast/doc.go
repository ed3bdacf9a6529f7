// Package sqlast defines the relational SQL abstract syntax tree produced by
// lowering and consumed by rendering.
//
// ARCHITECTURE:
//
// The SQL AST sits between the semantic model and SQL text:
//
//	[SQM] → sqlgen.Lower → [SQL AST] → querysql.Render → SQL + binders
//
// Nothing here knows about entities as query-language concepts. A from
// element has already become a TableGroup: one or more physical tables bound
// to aliases, plus the intra-group joins between them (joined-subclass
// tables, collection join tables). Attribute references have already become
// ColumnReference values, the (alias, column) pairs the renderer prints as
// `alias.column`.
//
// TABLE SPACES:
//
// A FromClause owns TableSpaces in declared order. A TableSpace owns one root
// TableGroup followed by TableGroupJoins in join order. The renderer emits
// spaces separated by `,`, and within a space the root group first, then
// every joined group prefixed by its join keyword and an `on` clause when a
// join predicate exists.
//
// SEALED INTERFACES:
//
// Statement, TableGroup, Expression and Predicate are sealed with marker
// methods so renderers can switch over them exhaustively:
//
//	switch p := pred.(type) {
//	case *Junction:
//	    // n-ary and/or
//	case *Comparison:
//	    // lhs op rhs
//	default:
//	    // not yet wired: fail fast
//	}
//
// Conjunction and disjunction are n-ary Junction nodes. The semantic model's
// fixed-arity binary AND/OR trees are flattened during lowering.
//
// VALIDATION:
//
// Validate walks a lowered statement and reports internal inconsistencies
// (comparison arity, dangling column qualifiers, joins without predicates).
// A non-empty result indicates a lowering defect, not a bad query.
package sqlast
