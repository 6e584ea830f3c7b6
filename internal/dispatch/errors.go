package dispatch

import "fmt"

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnknownNodeTypeError(nodeType string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_NODE_TYPE",
		Status:  400,
		Message: fmt.Sprintf("Unknown node type: %s", nodeType),
	}
}

func UnknownOperationError(op string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_OPERATION",
		Status:  400,
		Message: fmt.Sprintf("Unknown operation: %s", op),
	}
}

func InvalidPayloadError(err error) *AppError {
	return &AppError{
		Code:    "INVALID_PAYLOAD",
		Status:  400,
		Message: fmt.Sprintf("Invalid payload: %v", err),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func PreconditionFailedError(msg string) *AppError {
	return &AppError{
		Code:    "PRECONDITION_FAILED",
		Status:  422,
		Message: msg,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Status:  401,
		Message: msg,
	}
}

func ConflictError() *AppError {
	return &AppError{
		Code:    "MANIFEST_CONFLICT",
		Status:  409,
		Message: "Manifest was modified concurrently, retry the operation",
	}
}
