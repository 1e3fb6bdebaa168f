package models

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeAuthentication   = "AUTHENTICATION_ERROR"
	CodeAuthorization    = "AUTHORIZATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeAlreadyDone      = "ALREADY_DONE"
	CodeNotDone          = "NOT_DONE"
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeInternal         = "INTERNAL_ERROR"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError carries an application error code alongside a user-facing message
// and the wrapped cause. Handlers map the code to an HTTP status via
// HTTPStatus and the envelope via RespondWithAppError.
type AppError struct {
	Code    string
	Message string
	Err     error
	Fields  []FieldError
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

// NewValidationError creates a validation error with optional field details.
func NewValidationError(message string, fields ...FieldError) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Fields: fields}
}

// NewFieldValidationError creates a validation error for a single field.
func NewFieldValidationError(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// NewAuthenticationError creates an error for missing or invalid credentials.
func NewAuthenticationError(message string) *AppError {
	return &AppError{Code: CodeAuthentication, Message: message}
}

// NewAuthorizationError creates an error for an authenticated caller lacking
// permission on the target resource.
func NewAuthorizationError(message string) *AppError {
	return &AppError{Code: CodeAuthorization, Message: message}
}

// NewNotFoundError creates a not-found error for a resource and identifier.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// NewConflictError creates an error for a uniqueness conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewAlreadyDoneError creates an error for re-applying an engagement that is
// already in place, such as liking an already-liked tweet.
func NewAlreadyDoneError(message string) *AppError {
	return &AppError{Code: CodeAlreadyDone, Message: message}
}

// NewNotDoneError creates an error for undoing an engagement that was never
// applied, such as unliking a tweet that was not liked.
func NewNotDoneError(message string) *AppError {
	return &AppError{Code: CodeNotDone, Message: message}
}

// NewInvalidOperationError creates an error for a structurally disallowed
// operation, such as following yourself.
func NewInvalidOperationError(message string) *AppError {
	return &AppError{Code: CodeInvalidOperation, Message: message}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal server error", Err: err}
}

// HTTPStatus maps an error to its HTTP status code. Unrecognized errors map
// to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeAlreadyDone, CodeNotDone, CodeInvalidOperation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the envelope for every non-2xx reply.
type ErrorResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// SuccessResponse is the envelope for every 2xx reply.
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// RespondWithError writes the error envelope with an explicit status code.
// Internal error details are suppressed outside development.
func RespondWithError(c *fiber.Ctx, statusCode int, err error) error {
	message := "internal server error"
	var fields []FieldError

	var appErr *AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		fields = appErr.Fields
		if appErr.Code == CodeInternal && os.Getenv("APP_ENV") == "production" {
			message = "internal server error"
		}
	} else if err != nil && statusCode < http.StatusInternalServerError {
		message = err.Error()
	}

	return c.Status(statusCode).JSON(ErrorResponse{
		Status:  "error",
		Message: message,
		Errors:  fields,
	})
}

// RespondWithAppError writes the error envelope at the status HTTPStatus maps
// the error to.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, HTTPStatus(err), err)
}

// Respond writes the success envelope with the given status code.
func Respond(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(SuccessResponse{Status: "success", Data: data})
}
