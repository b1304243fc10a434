package server

import (
	"errors"
	"fmt"
	"net/http"

	"hohparser/internal/extractor"
	"hohparser/internal/pyast"
	"hohparser/internal/rpc"
)

// ErrInvalidInput marks malformed requests.
var ErrInvalidInput = errors.New("invalid input")

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
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

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapError maps an analysis error to an AppError with an appropriate HTTP
// status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var syntaxErr *pyast.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		return NewAppError(http.StatusUnprocessableEntity,
			fmt.Sprintf("Syntax error at line %d, column %d: %s", syntaxErr.Line, syntaxErr.Column, syntaxErr.Msg), err)
	case errors.Is(err, extractor.ErrRead):
		return NewAppError(http.StatusNotFound, "File not found or unreadable", err)
	case errors.Is(err, extractor.ErrFileTooLarge):
		return NewAppError(http.StatusRequestEntityTooLarge, "File too large", err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, rpc.ErrInvalidParams), errors.Is(err, extractor.ErrInvalidContent):
		return NewAppError(http.StatusBadRequest, "Invalid request", err)
	}

	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
