package common

import (
	"errors"
	"fmt"
)

// Error codes for the four failure classes the pipeline distinguishes.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeConversion    = "CONVERSION_ERROR"
	CodeExtraction    = "EXTRACTION_ERROR"
	CodeDelivery      = "DELIVERY_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ConfigurationError(message string) *AppError {
	return NewAppError(CodeConfiguration, message, nil)
}

func ConversionError(message string, cause error) *AppError {
	return NewAppError(CodeConversion, message, cause)
}

func ExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, cause)
}

func DeliveryError(message string, cause error) *AppError {
	return NewAppError(CodeDelivery, message, cause)
}

// HasCode reports whether err (or anything it wraps) is an AppError
// carrying the given code.
func HasCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
