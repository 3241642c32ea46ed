package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsAppError_Wrapped(t *testing.T) {
	base := NewUnknownEntity("widget")
	wrapped := fmt.Errorf("list: %w", base)

	appErr, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeUnknownEntity, appErr.Code)
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
	assert.True(t, IsNotFound(wrapped))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestInvalidID_UnwrapsCause(t *testing.T) {
	cause := errors.New("invalid UUID length: 3")
	err := NewInvalidID("user", "abc", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "abc", err.Details["id"])
}

func TestWithDetail_InitializesMap(t *testing.T) {
	err := NewSchema("entity must have exactly one identifier").WithDetail("type", "Post")
	assert.Equal(t, "Post", err.Details["type"])
	assert.True(t, HasCode(err, CodeSchema))
}
