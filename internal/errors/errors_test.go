package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("user_id", "user id is required")
	assert.Equal(t, "INVALID_INPUT: user id is required (field: user_id)", err.Error())
	assert.True(t, IsInvalidInput(err))

	wrapped := fmt.Errorf("rank: %w", err)
	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsInvalidInput(errors.New("plain")))
}

func TestUnavailableUnwraps(t *testing.T) {
	err := Unavailable("catalog", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, ErrUnavailable, CodeOf(err))
	assert.True(t, CodeOf(err).Retryable())
	assert.False(t, ErrInvalidInput.Retryable())
	assert.Equal(t, "SERVICE_UNAVAILABLE: catalog is temporarily unavailable", err.Error())
}

func TestTimeoutAndNotFound(t *testing.T) {
	assert.Equal(t, ErrTimeout, CodeOf(Timeout("similar titles", nil)))
	assert.Equal(t, "NOT_FOUND: title not found", NotFound("title").Error())
}
