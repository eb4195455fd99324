// Package errors provides the unified error taxonomy for the service layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the seven taxonomy values every user-visible error maps to.
type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeEmbedding             Code = "EMBEDDING_ERROR"
	CodeStorage               Code = "STORAGE_ERROR"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	CodeConsentDenied         Code = "CONSENT_DENIED"
	CodeTimeout               Code = "TIMEOUT"
	CodeInternal              Code = "INTERNAL_ERROR"
)

var httpStatusByCode = map[Code]int{
	CodeValidation:            http.StatusBadRequest,
	CodeEmbedding:             http.StatusBadGateway,
	CodeStorage:               http.StatusServiceUnavailable,
	CodeDependencyUnavailable: http.StatusTooManyRequests,
	CodeConsentDenied:         http.StatusForbidden,
	CodeTimeout:               http.StatusGatewayTimeout,
	CodeInternal:              http.StatusInternalServerError,
}

// ServiceError is the structured error every handler eventually translates
// into a `{error_code, message, details?, correlation_id}` response body.
type ServiceError struct {
	Code          Code                   `json:"error_code"`
	Message       string                 `json:"message"`
	HTTPStatus    int                    `json:"-"`
	Details       map[string]interface{} `json:"details,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Err           error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *ServiceError) WithCorrelationID(id string) *ServiceError {
	e.CorrelationID = id
	return e
}

// New builds a ServiceError for code, deriving the HTTP status from the taxonomy.
func New(code Code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatusByCode[code]}
}

// Wrap builds a ServiceError carrying an underlying cause.
func Wrap(code Code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatusByCode[code], Err: err}
}

// Validation-domain constructors.

func Validation(message string) *ServiceError {
	return New(CodeValidation, message)
}

func InvalidField(field, reason string) *ServiceError {
	return New(CodeValidation, "invalid field").WithDetails("field", field).WithDetails("reason", reason)
}

func MissingField(field string) *ServiceError {
	return New(CodeValidation, "missing required field").WithDetails("field", field)
}

func OutOfRange(field string, min, max interface{}) *ServiceError {
	return New(CodeValidation, "value out of range").
		WithDetails("field", field).WithDetails("min", min).WithDetails("max", max)
}

// Embedding-domain constructors.

func EmbeddingUnavailable(err error) *ServiceError {
	return Wrap(CodeEmbedding, "embedding provider unavailable", err)
}

func EmbeddingMalformed(reason string) *ServiceError {
	return New(CodeEmbedding, "embedding provider returned malformed output").WithDetails("reason", reason)
}

// Storage-domain constructors.

func StorageFailure(adapter string, err error) *ServiceError {
	return Wrap(CodeStorage, "required store operation failed", err).WithDetails("adapter", adapter)
}

// DependencyUnavailable marks an optional-store failure; never a request failure on its own.
func DependencyUnavailable(adapter string, err error) *ServiceError {
	return Wrap(CodeDependencyUnavailable, "optional dependency unavailable", err).WithDetails("adapter", adapter)
}

func ConsentDenied(operation string) *ServiceError {
	return New(CodeConsentDenied, "operation lacks required consent").WithDetails("operation", operation)
}

func Timeout(operation string) *ServiceError {
	return New(CodeTimeout, "operation exceeded its deadline").WithDetails("operation", operation)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(CodeInternal, message, err)
}

func NotFound(resource, id string) *ServiceError {
	se := New(CodeValidation, "resource not found").WithDetails("resource", resource).WithDetails("id", id)
	se.HTTPStatus = http.StatusNotFound
	return se
}

func Forbidden(message string) *ServiceError {
	se := New(CodeConsentDenied, message)
	se.HTTPStatus = http.StatusForbidden
	return se
}

func Conflict(message string) *ServiceError {
	se := New(CodeValidation, message)
	se.HTTPStatus = http.StatusConflict
	return se
}

// Helper functions.

func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func GetCode(err error) Code {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Code
	}
	return CodeInternal
}
