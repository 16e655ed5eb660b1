// Package auth supplies bearer tokens for the mail provider. Token refresh
// is delegated to golang.org/x/oauth2; this package only stores tokens and
// maps failures onto source.AuthError.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/source"
)

// Provider yields a bearer token or a *source.AuthError.
type Provider interface {
	BearerToken(ctx context.Context) (string, error)
}

// StaticProvider always returns the same token.
type StaticProvider string

// BearerToken implements Provider.
func (p StaticProvider) BearerToken(context.Context) (string, error) {
	if p == "" {
		return "", &source.AuthError{Provider: "static", Message: "no token configured"}
	}
	return string(p), nil
}

// Scopes requested for Gmail. Modify is needed to mark messages read.
var Scopes = []string{gmailv1.GmailModifyScope}

// LoadOAuthConfig reads a Google client secret JSON file.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client secret at %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return cfg, nil
}

// KeyringProvider serves tokens from an OAuth token stored in a credential
// store, refreshing through the oauth2 config and writing refreshed tokens
// back.
type KeyringProvider struct {
	cfg   *oauth2.Config
	store credential.Store

	mu  sync.Mutex
	src oauth2.TokenSource
	// last is the access token most recently written to the store.
	last string
}

// NewKeyringProvider returns a provider reading its token from store.
func NewKeyringProvider(cfg *oauth2.Config, store credential.Store) *KeyringProvider {
	return &KeyringProvider{cfg: cfg, store: store}
}

// BearerToken implements Provider.
func (p *KeyringProvider) BearerToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == nil {
		tok, err := LoadToken(p.store)
		if err != nil {
			return "", err
		}
		p.src = oauth2.ReuseTokenSource(tok, p.cfg.TokenSource(context.Background(), tok))
		p.last = tok.AccessToken
	}

	tok, err := p.src.Token()
	if err != nil {
		p.src = nil
		return "", &source.AuthError{
			Provider: "gmail",
			Message:  "token expired or revoked",
			Err:      err,
		}
	}

	if tok.AccessToken != p.last {
		if err := SaveToken(p.store, tok); err == nil {
			p.last = tok.AccessToken
		}
	}
	return tok.AccessToken, nil
}

// LoadToken reads the stored Gmail token. A missing token is an AuthError.
func LoadToken(store credential.Store) (*oauth2.Token, error) {
	raw, err := store.Get(credential.KeyGmailToken)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, &source.AuthError{Provider: "gmail", Message: "not logged in"}
		}
		return nil, fmt.Errorf("loading gmail token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, &source.AuthError{Provider: "gmail", Message: "stored token is corrupt", Err: err}
	}
	return &tok, nil
}

// SaveToken writes tok to the store.
func SaveToken(store credential.Store, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return store.Set(credential.KeyGmailToken, string(b))
}

// TokenSource adapts a Provider to oauth2.TokenSource so it can back an
// HTTP client.
func TokenSource(ctx context.Context, p Provider) oauth2.TokenSource {
	return tokenSource{ctx: ctx, p: p}
}

type tokenSource struct {
	ctx context.Context
	p   Provider
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.p.BearerToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
