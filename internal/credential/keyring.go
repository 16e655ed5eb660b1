package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "mailboard"

// Keys under which mailboard stores secrets.
const (
	KeyAnthropic    = "anthropic_api_key"
	KeyIMAPPassword = "imap_password"
	KeyGmailToken   = "gmail_oauth_token"
)

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = keyring.ErrKeyNotFound

// Store reads and writes secrets.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring is the Store backed by the system keyring.
type Keyring struct{}

func (Keyring) Get(key string) (string, error) { return Get(key) }
func (Keyring) Set(key, value string) error { return Set(key, value) }
func (Keyring) Delete(key string) error { return Delete(key) }

// Lookup returns the environment variable env when set, otherwise the
// keyring value for key. A missing value is not an error.
func Lookup(s Store, key, env string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func fileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "credentials")
	}
	return filepath.Join(home, ".config", serviceName, "credentials")
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir(),
		FilePasswordFunc:         keyring.FixedStringPrompt("mailboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "mailboard " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
