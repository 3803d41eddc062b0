package layout

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes layout errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates a missing comparator, a nil allocation
	// or a missing timestamp.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeInvalidInterval indicates an allocation that ends before it starts.
	ErrCodeInvalidInterval ErrorCode = "INVALID_INTERVAL"
)

// Error is returned when the input cannot be laid out.
// No allocation is modified when Assign returns an Error.
type Error struct {
	Code    ErrorCode
	Message string

	// Position is the offending allocation's position in the input, or -1.
	Position int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s: %s (allocation %d)", e.Code, e.Message, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidInput reports whether err is an INVALID_INPUT layout error.
func IsInvalidInput(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == ErrCodeInvalidInput
	}
	return false
}

// IsInvalidInterval reports whether err is an INVALID_INTERVAL layout error.
func IsInvalidInterval(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == ErrCodeInvalidInterval
	}
	return false
}

func invalidInput(pos int, msg string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: msg, Position: pos}
}

func invalidInterval(pos int) *Error {
	return &Error{Code: ErrCodeInvalidInterval, Message: "allocation ends before it starts", Position: pos}
}
