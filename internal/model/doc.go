// Package model provides the schema metamodel consulted by the query compiler.
//
// The compiler only reads the metamodel. Catalog and Symbols are immutable
// once constructed, so a single instance may be shared by any number of
// concurrent compilations without locking.
//
// The metamodel answers three kinds of questions:
//   - does entity E exist, and does it have attribute A (Metamodel, ManagedType)
//   - what is A's relational type and column span (Type)
//   - which tables and key columns realise E and A (EntityType, Attribute,
//     CollectionMapping), used when lowering joins
//
// Constant resolution (Class.FIELD, Enum.CONSTANT) goes through the separate
// SymbolTable interface, which the embedding application supplies.
package model
