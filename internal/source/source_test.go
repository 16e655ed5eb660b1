package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	auth := fmt.Errorf("listing: %w", &AuthError{Provider: "gmail", Message: "token expired"})
	fetch := fmt.Errorf("listing: %w", &FetchError{Op: "list", StatusCode: 503, Err: errors.New("unavailable")})

	assert.True(t, IsAuthError(auth))
	assert.False(t, IsFetchError(auth))
	assert.True(t, IsFetchError(fetch))
	assert.False(t, IsAuthError(fetch))
	assert.False(t, IsAuthError(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(&AuthError{Provider: "imap"}), "reconnect")
	assert.Equal(t,
		"get message failed (HTTP 500): boom",
		UserMessage(&FetchError{Op: "get message", StatusCode: 500, Err: errors.New("boom")}),
	)
}
