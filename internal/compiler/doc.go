// Package compiler loads mapping schemas written in CUE into the metamodel
// and symbol table the query compiler consumes.
//
// A schema declares entities (table, identifier, attributes, joined
// supertype), embeddables and classes (enums and constant holders). It is
// unified with the #Schema definition before it is read, so misspelled
// fields fail with a source position.
package compiler
