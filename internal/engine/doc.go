// Package engine runs one compilation from a parse tree to a plan.
//
// Pipeline:
//  1. decode the YAML parse-tree document (parsetree)
//  2. index the from clauses and build the semantic model (semantic)
//  3. lower the semantic model to the SQL AST (sqlgen)
//  4. validate the SQL AST (sqlast)
//  5. render SQL text and binders for the configured dialect (querysql)
//  6. assemble the plan (plan)
//
// Every stage fails fast. The first error aborts the compilation and is
// returned wrapped in a StageError.
//
// An Engine holds only read-only collaborators: the metamodel, the symbol
// table, the dialect and the logger. All mutable state lives in the
// per-compilation contexts the stages create, so one Engine may compile any
// number of statements concurrently.
package engine
