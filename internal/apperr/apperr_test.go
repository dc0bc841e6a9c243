package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("padding mismatch")
	err := Unauthorized("Invalid PIN", cause)

	assert.Equal(t, "Invalid PIN: padding mismatch", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnauthenticated, CodeOf(err))
	assert.Equal(t, "Invalid PIN", MessageOf(fmt.Errorf("send: %w", err)))
}

func TestUnknownErrors(t *testing.T) {
	err := errors.New("raw")
	assert.Equal(t, CodeUnknown, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Equal(t, "gone", New(CodeNotFound, "gone").Error())
}
