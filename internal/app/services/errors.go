package services

import (
	"errors"
	"fmt"

	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
)

// Service errors wrap the apperrors categories so the error middleware can map
// them without knowing each service.
var (
	ErrTutorNotFound    = fmt.Errorf("tutor not found: %w", apperrors.ErrResourceNotFound)
	ErrMobileNotFound   = fmt.Errorf("mobile not registered: %w", apperrors.ErrResourceNotFound)
	ErrMobileRegistered = fmt.Errorf("mobile already registered: %w", apperrors.ErrResourceAlreadyExists)
	ErrPhoneNotFound    = fmt.Errorf("phone not registered: %w", apperrors.ErrResourceNotFound)
	ErrOTPRejected      = fmt.Errorf("otp rejected: %w", apperrors.ErrInvalidOTP)

	ErrBatchNotFound    = fmt.Errorf("batch not found: %w", apperrors.ErrResourceNotFound)
	ErrBatchHasStudents = fmt.Errorf("batch has students: %w", apperrors.ErrConflict)

	ErrStudentNotFound = fmt.Errorf("student not found: %w", apperrors.ErrResourceNotFound)
	ErrPhoneTaken      = fmt.Errorf("phone already registered: %w", apperrors.ErrResourceAlreadyExists)

	ErrInvalidAttendanceDate = fmt.Errorf("invalid attendance date: %w", apperrors.ErrBadRequest)
	ErrAttendanceLocked      = fmt.Errorf("attendance locked: %w", apperrors.ErrConflict)

	ErrHomeworkNotFound = fmt.Errorf("homework not found: %w", apperrors.ErrResourceNotFound)
	ErrFileNotFound     = fmt.Errorf("file not found: %w", apperrors.ErrResourceNotFound)
)

// fail pairs a service sentinel with the text shown to the user.
func fail(sentinel error, message string) error {
	return apperrors.NewCustomError(sentinel, message)
}

// invalid reports a form field error.
func invalid(field, message string) error {
	return apperrors.NewValidationError(field, message)
}

// batchLookupError maps a repository miss to the service error.
func batchLookupError(err error) error {
	if errors.Is(err, repositories.ErrBatchNotFound) {
		return fail(ErrBatchNotFound, "Batch not found")
	}
	return err
}

// studentLookupError maps a repository miss to the service error.
func studentLookupError(err error) error {
	if errors.Is(err, repositories.ErrStudentNotFound) {
		return fail(ErrStudentNotFound, "Student not found")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrResourceNotFound)
}
