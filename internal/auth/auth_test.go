package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/source"
)

type memStore map[string]string

func (m memStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("getting credential %q: %w", key, credential.ErrNotFound)
	}
	return v, nil
}
func (m memStore) Set(key, value string) error { m[key] = value; return nil }
func (m memStore) Delete(key string) error { delete(m, key); return nil }

func TestStaticProvider(t *testing.T) {
	tok, err := StaticProvider("abc").BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticProvider("").BearerToken(context.Background())
	assert.True(t, source.IsAuthError(err))
}

func TestKeyringProviderNotLoggedIn(t *testing.T) {
	p := NewKeyringProvider(&oauth2.Config{}, memStore{})
	_, err := p.BearerToken(context.Background())
	assert.True(t, source.IsAuthError(err))
}

func TestKeyringProviderValidToken(t *testing.T) {
	store := memStore{}
	require.NoError(t, SaveToken(store, &oauth2.Token{
		AccessToken: "live",
		Expiry:      time.Now().Add(time.Hour),
	}))

	p := NewKeyringProvider(&oauth2.Config{}, store)
	tok, err := p.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", tok)
}

func TestKeyringProviderRefreshes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"token_type":    "Bearer",
			"refresh_token": "r2",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	store := memStore{}
	require.NoError(t, SaveToken(store, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	cfg := &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}
	p := NewKeyringProvider(cfg, store)

	tok, err := p.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)

	saved, err := LoadToken(store)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken, "refreshed token written back")
}

func TestKeyringProviderRevoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	store := memStore{}
	require.NoError(t, SaveToken(store, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	p := NewKeyringProvider(&oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}, store)
	_, err := p.BearerToken(context.Background())
	assert.True(t, source.IsAuthError(err))
}

func TestTokenSourceAdapter(t *testing.T) {
	tok, err := TokenSource(context.Background(), StaticProvider("xyz")).Token()
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
}

func TestCodeFromInput(t *testing.T) {
	code, err := CodeFromInput("  4/abc  ")
	require.NoError(t, err)
	assert.Equal(t, "4/abc", code)

	code, err = CodeFromInput("http://127.0.0.1:5555/?state=x&code=4%2Fxyz")
	require.NoError(t, err)
	assert.Equal(t, "4/xyz", code)

	_, err = CodeFromInput("https://example.com/?state=x")
	assert.Error(t, err)

	_, err = CodeFromInput("")
	assert.Error(t, err)
}
