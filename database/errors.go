package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/authgate/errors"
)

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a unique constraint violation.
// The string check covers drivers that do not translate errors.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FromDatabase converts a database error to an AppError. op names the
// operation for StorageFailure; resource names the entity for NotFound.
func FromDatabase(err error, op, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicateError(err):
		return apperrors.Conflict(resource + " already exists").WithCause(err)
	default:
		return apperrors.StorageFailure(op, err)
	}
}
