package utils

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication/Authorization errors
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN" // Authenticated but not allowed to touch the resource
	ErrInvalidToken       = "INVALID_TOKEN"
	ErrInvalidCredentials = "INVALID_CREDENTIALS"
	ErrAuth               = "AUTH_ERROR"

	// Account errors
	ErrAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrAccountAlreadyExists = "ACCOUNT_ALREADY_EXISTS"

	// Backing-store errors
	ErrDataAccess = "DATA_ACCESS"

	// Profile hydration errors (non-fatal; identity state stays valid)
	ErrHydration = "HYDRATION"

	// Optimistic-write rollback (failed message send)
	ErrSendRollback = "SEND_ROLLBACK"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: what + " not found",
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewDataAccessError(op string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrDataAccess,
		Message: "Data access failed: " + op,
		Origin:  originalErr,
	}
}

func NewHydrationError(reason string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrHydration,
		Message: "Profile hydration failed: " + reason,
		Origin:  originalErr,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}
