package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Message(t *testing.T) {
	err := BatchFetchFailed("batch 2", stderrors.New("timeout"))
	assert.Equal(t, "BATCH_FETCH_FAILED: batch 2: timeout", err.Error())
	assert.NotEmpty(t, err.StackTrace())

	bare := UnknownSeries("OEUS480000000000051412104", nil)
	assert.Equal(t, "UNKNOWN_SERIES: OEUS480000000000051412104", bare.Error())
	assert.NotEmpty(t, bare.StackTrace())
}

func TestTypeOf_Wrapped(t *testing.T) {
	inner := MalformedIdentifier("51-41", nil)
	wrapped := fmt.Errorf("encoding: %w", inner)

	assert.Equal(t, ErrTypeMalformedIdentifier, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrTypeMalformedIdentifier))
	assert.False(t, Is(wrapped, ErrTypeUnknownSeries))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := UpstreamUnavailable("scorecard", cause)
	assert.True(t, stderrors.Is(err, cause))
}
