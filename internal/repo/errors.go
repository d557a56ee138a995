// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file defines repo-level error values and helpers
// shared across repositories.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound indicates that no matching row exists.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates that a unique constraint rejected the insert.
// Callers in the generation pipeline treat this as success-by-convergence:
// a concurrent writer already created the row, so re-read it.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations,
// so the message is inspected in addition to gorm's sentinel.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
