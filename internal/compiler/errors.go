package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a schema that cannot become a catalog. Field is the
// dotted path inside the schema document (entity.Person.attributes.age).
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
}

// errorAt reports msg against the schema value v.
func errorAt(v cue.Value, field, msg string) *CompileError {
	return &CompileError{Field: field, Message: msg, Pos: v.Pos()}
}

// fromCUE turns a CUE evaluation or decode error into a CompileError at the
// first reported position. Further errors are counted in the message.
func fromCUE(err error) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err
	}
	first := list[0]
	positions := cueerrors.Positions(first)
	if len(positions) == 0 {
		return err
	}
	msg := first.Error()
	if n := len(list) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return &CompileError{Field: "cue", Message: msg, Pos: positions[0]}
}
