// Package semantic turns a parse tree into the Semantic Query Model.
//
// Compilation is two passes over the same tree:
//
//  1. The Indexer discovers from-clause nesting, declares every alias and
//     creates every declared from-element. Qualified attribute joins get a
//     join-scoped PathResolver installed on their node, which resolves the
//     right-hand path relative to the join's left-hand side.
//  2. The Builder resolves expressions, predicates and select items, looking
//     scopes up in the Index by node identity.
//
// Dotted paths resolve with strict precedence: alias or attribute path in
// the current scope, then entity type name, then constant (enum constant or
// exported static field via model.SymbolTable). A failed constant probe is
// logged at debug level and only reported if nothing else matched.
//
// All mutable traversal state lives in a Context owned by one compilation.
package semantic
