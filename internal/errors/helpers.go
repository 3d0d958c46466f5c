package errors

import "fmt"

// Common error creators for frequent use cases

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewAPIError creates a network error for an external client call. Errors
// from 5xx, 429 and 408 responses are marked retryable.
func NewAPIError(service, endpoint string, statusCode int, err error) *AppError {
	var code ErrorCode
	switch service {
	case "whatsapp":
		code = ErrCodeWhatsAppAPI
	case "workspace":
		code = ErrCodeWorkspaceAPI
	default:
		code = ErrCodeInternalError
	}

	appErr := Wrap(err, code, fmt.Sprintf("%s API call failed", service)).
		WithContext("service", service).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)

	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}

	return appErr
}

// NewMediaError creates a media pipeline error for the given stage.
func NewMediaError(stage ErrorCode, kind string, err error) *AppError {
	return Wrap(err, stage, fmt.Sprintf("media %s processing failed", kind)).
		WithContext("media_kind", kind).
		WithUserMessage("Media could not be forwarded")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("Cannot resolve %s %q", resource, identifier))
}

// NewAuthorizationError creates an authorization error for admin commands.
func NewAuthorizationError(callerID int64) *AppError {
	return New(ErrCodeAuthorization, "caller is not authorized").
		WithContext("caller_id", callerID).
		WithUserMessage("You are not authorized to use this command")
}

// NewTimeoutError creates a timeout error with context
func NewTimeoutError(operation string, duration string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, duration)).
		WithContext("operation", operation).
		WithContext("timeout", duration).
		WithUserMessage("Operation timed out, please try again")
}
