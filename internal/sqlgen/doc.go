// Package sqlgen lowers the Semantic Query Model into the SQL AST.
//
// Lowering walks each query spec from-clause first, then the select clause,
// then the where clause, so every expression finds its table group already
// built. A FromClauseIndex per query spec memoizes from element → table
// group; a from element referenced from many expressions lowers to exactly
// one table group join. Nested query specs push a new index whose parent is
// the enclosing one, which is how correlated references find outer groups.
//
// Join predicates are synthesized from the metamodel: foreign key columns
// against the target identifier (or referenced unique property), collection
// key columns against the owner identifier, and identifier equality between
// the tables of a joined-subclass hierarchy. Mismatched key column counts are
// reported as qerr.InvariantError.
//
// Aliases come from an alias-base manager owned by one Lowerer: each table
// group gets a base `<letter><n>` and its tables `<base>_<i>`.
package sqlgen
