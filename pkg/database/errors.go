package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQL error codes the substitution workflow reacts to.
const (
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsExclusionViolation reports whether err comes from an EXCLUDE constraint,
// i.e. an overlapping substitution slipped past the application check.
func IsExclusionViolation(err error) bool {
	return pqCode(err) == codeExclusionViolation
}

// IsTransient reports failures that a caller can retry as a whole: lost connections,
// serialization failures and deadlocks.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	code := pqCode(err)
	if code == codeSerializationFailure || code == codeDeadlockDetected {
		return true
	}
	// class 08: connection exception
	return strings.HasPrefix(code, "08")
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
