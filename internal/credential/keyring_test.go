package credential

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string]string

func (m memStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	return v, nil
}
func (m memStore) Set(key, value string) error { m[key] = value; return nil }
func (m memStore) Delete(key string) error { delete(m, key); return nil }

func TestLookupPrefersEnvironment(t *testing.T) {
	s := memStore{KeyAnthropic: "from-keyring"}

	v, err := Lookup(s, KeyAnthropic, "MAILBOARD_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", v)

	t.Setenv("MAILBOARD_TEST_KEY", "from-env")
	v, err = Lookup(s, KeyAnthropic, "MAILBOARD_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestLookupMissingIsEmpty(t *testing.T) {
	v, err := Lookup(memStore{}, KeyIMAPPassword, "MAILBOARD_TEST_UNSET")
	require.NoError(t, err)
	assert.Empty(t, v)
}
