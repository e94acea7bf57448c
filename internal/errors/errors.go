package errors

import (
	goerrors "errors"
	"fmt"
)

// ErrorCode represents a navsync error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrUnsupportedType    ErrorCode = "UNSUPPORTED_TYPE"    // 422
	ErrUnsupportedCompany ErrorCode = "UNSUPPORTED_COMPANY" // 422
	ErrParse              ErrorCode = "PARSE_ERROR"         // 422
	ErrDuplicateObject    ErrorCode = "DUPLICATE_OBJECT"    // 409
	ErrCacheAbsent        ErrorCode = "CACHE_ABSENT"        // 404
	ErrCacheInvalid       ErrorCode = "CACHE_INVALID"       // 422
	ErrTool               ErrorCode = "TOOL_ERROR"          // 502
	ErrEnvironment        ErrorCode = "ENVIRONMENT"         // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// SyncError represents a structured error with code, status, and details.
type SyncError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SyncError {
	return &SyncError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when an object cannot be found.
func NewNotFound(identifier string) *SyncError {
	return &SyncError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("object not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUnsupportedType creates an error for an object type ordinal outside
// the supported set. The offending identity is named so bad rows can be
// traced back to the data source.
func NewUnsupportedType(ordinal, id int) *SyncError {
	return &SyncError{
		Code:    ErrUnsupportedType,
		Status:  422,
		Message: fmt.Sprintf("unsupported object type %d for object id %d", ordinal, id),
		Details: map[string]any{"type": ordinal, "id": id},
	}
}

// NewUnsupportedCompany creates an error for a company-scoped object row.
// Only objects in the default (empty) company scope are supported.
func NewUnsupportedCompany(identifier, company string) *SyncError {
	return &SyncError{
		Code:    ErrUnsupportedCompany,
		Status:  422,
		Message: fmt.Sprintf("object %s is scoped to company %q; company-scoped objects are not supported", identifier, company),
		Details: map[string]any{"identifier": identifier, "company": company},
	}
}

// NewParse creates an error for a malformed working-copy artifact.
func NewParse(path, msg string) *SyncError {
	return &SyncError{
		Code:    ErrParse,
		Status:  422,
		Message: fmt.Sprintf("%s: %s", path, msg),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateObject creates an error for a duplicate identity within a
// snapshot input, which indicates a data-source contract violation.
func NewDuplicateObject(key string) *SyncError {
	return &SyncError{
		Code:    ErrDuplicateObject,
		Status:  409,
		Message: fmt.Sprintf("duplicate object key %q in snapshot input", key),
		Details: map[string]any{"key": key},
	}
}

// NewCacheAbsent creates an error for a missing cache artifact.
// This is a normal first-run condition, distinct from corruption.
func NewCacheAbsent(path string) *SyncError {
	return &SyncError{
		Code:    ErrCacheAbsent,
		Status:  404,
		Message: fmt.Sprintf("no cache artifact at %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCacheInvalid creates an error for a cache artifact that does not
// conform to the expected schema.
func NewCacheInvalid(path, msg string) *SyncError {
	return &SyncError{
		Code:    ErrCacheInvalid,
		Status:  422,
		Message: fmt.Sprintf("invalid cache artifact %s: %s", path, msg),
		Details: map[string]any{"path": path},
	}
}

// NewTool creates an error for a failure reported by the external tool,
// carrying the object identity, the attempted operation, and the decoded
// message from the tool's error log.
func NewTool(identifier, operation, msg string) *SyncError {
	return &SyncError{
		Code:    ErrTool,
		Status:  502,
		Message: fmt.Sprintf("%s of %s failed: %s", operation, identifier, msg),
		Details: map[string]any{"identifier": identifier, "operation": operation, "tool_message": msg},
	}
}

// NewEnvironment creates a fatal error for configuration or environment
// problems (missing executable, scratch directory allocation, cleanup).
func NewEnvironment(msg string) *SyncError {
	return &SyncError{
		Code:    ErrEnvironment,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the underlying error is kept in Details
// for logging so it never leaks to callers.
func NewInternal(err error) *SyncError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &SyncError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a SyncError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SyncError
	if goerrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
