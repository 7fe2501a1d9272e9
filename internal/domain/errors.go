package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so a sentinel still
// matches after WithError has copied it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Startup errors. The process must not start.
	ErrAssetMissing = &AppError{
		Code:       "ASSET_MISSING",
		Message:    "Detection model asset not found",
		StatusCode: 500,
	}

	ErrAssetInvalid = &AppError{
		Code:       "ASSET_INVALID",
		Message:    "Detection model asset looks invalid",
		StatusCode: 500,
	}

	ErrDeviceUnavailable = &AppError{
		Code:       "DEVICE_UNAVAILABLE",
		Message:    "Frame source could not be opened",
		StatusCode: 500,
	}

	ErrStorageUnavailable = &AppError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "Backing store is not accessible",
		StatusCode: 503,
	}

	// Degraded mode: the kiosk keeps running without a relay.
	ErrTransportUnavailable = &AppError{
		Code:       "TRANSPORT_UNAVAILABLE",
		Message:    "Relay transport is not available",
		StatusCode: 503,
	}

	// Enrollment errors, reported to the operator.
	ErrDuplicateName = &AppError{
		Code:       "DUPLICATE_NAME",
		Message:    "An identity with this name is already enrolled",
		StatusCode: 409,
	}

	ErrInvalidInput = &AppError{
		Code:       "INVALID_INPUT",
		Message:    "Invalid enrollment input",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected, keep exactly one face in view",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "Multiple faces detected, keep exactly one face in view",
		StatusCode: 422,
	}

	ErrIdentityNotFound = &AppError{
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "Identity not found",
		StatusCode: 404,
	}

	ErrInvalidEmbedding = &AppError{
		Code:       "INVALID_EMBEDDING",
		Message:    "Embedding must have 128 dimensions",
		StatusCode: 422,
	}
)
