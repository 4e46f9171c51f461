package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when an id no longer refers to a row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicate marks a rejected insert that hit a unique index.
	ErrDuplicate = errors.New("already exists")
)

// ValidationError is a recoverable input error the user can correct and
// resubmit. Field names the offending form field.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func duplicate(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg, Err: ErrDuplicate}
}

func sqliteCode(err error) (int, string, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return 0, "", false
	}
	return se.Code(), se.Error(), true
}

// uniqueViolation reports whether err was raised by a unique or primary key
// index, and on which "table.column" when the message names it.
func uniqueViolation(err error) (string, bool) {
	code, msg, ok := sqliteCode(err)
	if !ok {
		return "", false
	}
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return "", false
	}
	// "constraint failed: UNIQUE constraint failed: users.email (2067)"
	col := ""
	if i := strings.LastIndex(msg, "failed: "); i >= 0 {
		col = msg[i+len("failed: "):]
		if j := strings.IndexAny(col, " ,"); j >= 0 {
			col = col[:j]
		}
	}
	return col, true
}

func foreignKeyViolation(err error) bool {
	code, _, ok := sqliteCode(err)
	return ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
