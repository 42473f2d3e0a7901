package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the reconciliation cares about.
const (
	mysqlDuplicateEntry = 1062
	mysqlLockWait       = 1205
	mysqlDeadlock       = 1213
	mysqlRowReferenced  = 1451
	mysqlNoParentRow    = 1452
)

// classifyStoreError maps a failed transaction to a short metrics label.
func classifyStoreError(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlRowReferenced, mysqlNoParentRow:
			return "constraint"
		case mysqlLockWait, mysqlDeadlock:
			return "contention"
		}
		return "store"
	}
	if errors.Is(err, ErrInvalidDocument) {
		return "invalid"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "foreign key constraint"),
		strings.Contains(msg, "duplicate key"), strings.Contains(msg, "violates"):
		return "constraint"
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "deadlock"):
		return "contention"
	}
	return "store"
}

// IsConstraintViolation reports whether err came from a unique or foreign
// key constraint in any of the supported stores.
func IsConstraintViolation(err error) bool {
	return err != nil && classifyStoreError(err) == "constraint"
}
