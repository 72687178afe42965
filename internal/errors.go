package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeDependency   ErrorType = "DEPENDENCY_ERROR"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeEmptyUpdate      ErrorCode = "EMPTY_UPDATE"
	ErrCodeCompanyRequired  ErrorCode = "COMPANY_REQUIRED"
	ErrCodeDuplicateName    ErrorCode = "DUPLICATE_NAME"
	ErrCodeEmailTaken       ErrorCode = "EMAIL_TAKEN"
	ErrCodeAmbiguousLogin   ErrorCode = "AMBIGUOUS_LOGIN"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodeCompanyNotFound    ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeDepartmentNotFound ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeCredentialNotFound ErrorCode = "CREDENTIAL_NOT_FOUND"
	ErrCodeRecipientNotFound  ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodeDepartmentEmpty    ErrorCode = "DEPARTMENT_EMPTY"

	ErrCodeUnauthorizedAccess     ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInsufficientPermission ErrorCode = "INSUFFICIENT_PERMISSION"
	ErrCodeSystemRole             ErrorCode = "SYSTEM_ROLE"
	ErrCodeRoleInUse              ErrorCode = "ROLE_IN_USE"
	ErrCodeCompanyInUse           ErrorCode = "COMPANY_IN_USE"

	ErrCodeShareTargetInvalid ErrorCode = "SHARE_TARGET_INVALID"
	ErrCodeShareTokenInvalid  ErrorCode = "SHARE_TOKEN_INVALID"
	ErrCodeShareTokenExpired  ErrorCode = "SHARE_TOKEN_EXPIRED"
	ErrCodeShareConsumed      ErrorCode = "SHARE_CONSUMED"
	ErrCodeNotDeptMember      ErrorCode = "NOT_DEPARTMENT_MEMBER"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"

	ErrCodeUnsharedCredentials ErrorCode = "UNSHARED_CREDENTIALS"
	ErrCodePendingShares       ErrorCode = "PENDING_SHARES"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvitationInvalid  ErrorCode = "INVITATION_INVALID"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage flattens field errors into one line for the response envelope.
func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewBadRequestError is the business-rule flavour of a 400; same shape as a validation error.
func NewBadRequestError(message string, code ErrorCode) *AppError {
	return NewValidationError(message, code)
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewDependencyError is a 500 whose message is safe to show, e.g. a notification that could not be sent.
func NewDependencyError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDependency,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// Shared instances are read-only. Never call WithCause/WithDetails on them.
var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrUnauthenticated    = NewUnauthorizedError("Authentication required", ErrCodeInvalidToken)
	ErrForbidden          = NewForbiddenError("Forbidden: insufficient permissions", ErrCodeInsufficientPermission)
	ErrCompanyRequired    = NewValidationError("Company is required", ErrCodeCompanyRequired)
)

// IsAppError reports whether err is, or wraps, an *AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
