package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/oqlc/internal/plan"
)

// CheckError reports a plan whose SQL SQLite refuses to prepare, or whose
// placeholder count disagrees with its binders.
type CheckError struct {
	SQL     string
	Code    string
	Message string
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("check failed (%s): %s: %s", e.Code, e.Message, e.SQL)
	}
	return fmt.Sprintf("check failed: %s: %s", e.Message, e.SQL)
}

// IsCheckError reports whether err is a CheckError.
func IsCheckError(err error) bool {
	var ce *CheckError
	return errors.As(err, &ce)
}

// Check prepares p's SQL against the catalog's tables without executing it
// and verifies that SQLite counts one parameter per binder.
func (s *Store) Check(ctx context.Context, p *plan.Plan) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		stmt, err := sc.Prepare(p.SQL)
		if err != nil {
			ce := &CheckError{SQL: p.SQL, Message: err.Error()}
			var se sqlite3.Error
			if errors.As(err, &se) {
				ce.Code = se.Code.Error()
			}
			return ce
		}
		defer stmt.Close()

		if n := stmt.NumInput(); n != len(p.Binders) {
			return &CheckError{
				SQL:     p.SQL,
				Message: fmt.Sprintf("statement has %d parameters but the plan has %d binders", n, len(p.Binders)),
			}
		}
		return nil
	})
}
