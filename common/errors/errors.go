package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrTypeInternal     ErrorType = "INTERNAL"
	ErrTypeRateLimit    ErrorType = "RATE_LIMIT"

	ErrTypeMalformedIdentifier ErrorType = "MALFORMED_IDENTIFIER"
	ErrTypeUnknownSeries       ErrorType = "UNKNOWN_SERIES"
	ErrTypeCrosswalkRowInvalid ErrorType = "CROSSWALK_ROW_INVALID"
	ErrTypeBatchFetchFailed    ErrorType = "BATCH_FETCH_FAILED"
	ErrTypeUpstreamUnavailable ErrorType = "UPSTREAM_UNAVAILABLE"
)

// DomainError carries a classification and the stack where it was raised.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// TypeOf returns the classification of the outermost DomainError in err's
// chain, or "" when there is none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ""
}

// Is reports whether err carries a DomainError of the given type.
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func InvalidInput(message string, err error) *DomainError {
	return New(ErrTypeInvalidInput, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

func RateLimit(message string, err error) *DomainError {
	return New(ErrTypeRateLimit, message, err)
}

func MalformedIdentifier(message string, err error) *DomainError {
	return New(ErrTypeMalformedIdentifier, message, err)
}

func UnknownSeries(message string, err error) *DomainError {
	return New(ErrTypeUnknownSeries, message, err)
}

func CrosswalkRowInvalid(message string, err error) *DomainError {
	return New(ErrTypeCrosswalkRowInvalid, message, err)
}

func BatchFetchFailed(message string, err error) *DomainError {
	return New(ErrTypeBatchFetchFailed, message, err)
}

func UpstreamUnavailable(message string, err error) *DomainError {
	return New(ErrTypeUpstreamUnavailable, message, err)
}
