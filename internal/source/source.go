// Package source defines the mail provider contract and its error types.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/mailboard/internal/model"
)

// AuthError indicates that credentials are missing or expired. The UI
// reacts by asking the user to reconnect.
type AuthError struct {
	Provider string
	Message  string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FetchError is a network or non-2xx failure talking to a remote service.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// UserMessage renders err as the single line shown in the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsAuthError(err) {
		return "Session expired, please reconnect (mailboard login)"
	}
	return err.Error()
}

// Page is one page of a listing. An empty NextCursor means there are no
// further pages.
type Page struct {
	Messages   []model.Message
	NextCursor string
}

// Provider lists and fetches mail.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// ListMessages returns one page for a Gmail-style query. cursor is
	// empty for page one, otherwise the NextCursor of the previous page.
	ListMessages(ctx context.Context, query string, pageSize int, cursor string) (Page, error)

	// GetFullMessage returns a message including its body.
	GetFullMessage(ctx context.Context, id string) (model.FullMessage, error)
}

// ReadMarker is implemented by providers that can change the read state
// of messages on the server.
type ReadMarker interface {
	MarkRead(ctx context.Context, ids []string, unread bool) error
}
