package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation recognises unique constraint failures from Postgres
// (SQLSTATE 23505) and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// violates reports whether a unique violation names the given column or index
func violates(err error, column string) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), column)
}
