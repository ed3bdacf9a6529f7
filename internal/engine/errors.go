package engine

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a compilation failed in.
type Stage string

const (
	// StageDecode reads the parse-tree document.
	StageDecode Stage = "decode"

	// StageAnalyze indexes the from clauses and builds the semantic model.
	StageAnalyze Stage = "analyze"

	// StageLower translates the semantic model into the SQL AST.
	StageLower Stage = "lower"

	// StageValidate checks the SQL AST for internal inconsistencies.
	StageValidate Stage = "validate"

	// StageRender produces SQL text and binders.
	StageRender Stage = "render"
)

// StageError wraps the first error of a compilation with the stage that
// raised it and the compilation token.
//
// The wrapped error keeps its identity: qerr helpers see through StageError
// via errors.As.
type StageError struct {
	Stage Stage
	Token string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %v (compilation=%s)", e.Stage, e.Err, e.Token)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage that produced err, or "" when err did not come
// from a compilation.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
