package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/model"
)

type memCreds map[string]string

func (m memCreds) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", credential.ErrNotFound
	}
	return v, nil
}

func (m memCreds) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memCreds) Delete(key string) error {
	delete(m, key)
	return nil
}

func TestSaveWritesConfigAndPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	creds := memCreds{}

	m := New(path, creds, 100, 40)
	m.Start(model.DefaultConfig())
	m.fb.kind = "imap"
	m.fb.imapHost = "imap.example.com"
	m.fb.imapUsername = "me@example.com"
	m.fb.imapPassword = "hunter2"
	m.fb.pageSize = "25"

	msg, ok := m.save()().(SavedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.True(t, msg.Restart)
	assert.Equal(t, "hunter2", creds[credential.KeyIMAPPassword])

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "imap", loaded.Provider.Kind)
	assert.Equal(t, "imap.example.com", loaded.Provider.IMAP.Host)
	assert.Equal(t, 25, loaded.Provider.PageSize)
}

func TestPageSizeAppliesLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(path, memCreds{}, 100, 40)
	m.Start(model.DefaultConfig())
	m.fb.pageSize = "100"

	msg := m.save()().(SavedMsg)
	require.NoError(t, msg.Err)
	assert.False(t, msg.Restart)
	assert.Equal(t, 100, msg.Config.Provider.PageSize)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort("0"))
	assert.Error(t, validatePort("abc"))
	assert.NoError(t, validateURL("https://api.anthropic.com"))
	assert.Error(t, validateURL("api.anthropic.com"))
	assert.Error(t, validateRange("Batch size", 1, 50)("51"))
	assert.Error(t, validateRequired("Name")("  "))
}
