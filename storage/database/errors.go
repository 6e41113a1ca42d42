package database

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err comes from a unique constraint.
// Drivers that do not translate their errors are matched on their message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
