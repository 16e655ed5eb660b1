package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gmail", cfg.Provider.Kind)
	assert.Equal(t, 50, cfg.Provider.PageSize)
	assert.Equal(t, 1000, cfg.Classify.DebounceMS)
	assert.Equal(t, 50, cfg.Classify.BatchSize)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  kind: imap
  page_size: 25
  imap:
    host: imap.example.com
    username: me@example.com
classify:
  batch_size: 500
ai:
  model: claude-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "imap", cfg.Provider.Kind)
	assert.Equal(t, 25, cfg.Provider.PageSize)
	assert.Equal(t, "imap.example.com", cfg.Provider.IMAP.Host)
	assert.Equal(t, 993, cfg.Provider.IMAP.Port, "unset keys keep defaults")
	assert.Equal(t, "INBOX", cfg.Provider.IMAP.Mailbox)
	assert.Equal(t, 50, cfg.Classify.BatchSize, "batch size is capped")
	assert.Equal(t, "claude-test", cfg.AI.Model)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Provider.Kind = "imap"
	cfg.Provider.IMAP.Host = "mail.example.org"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "imap", loaded.Provider.Kind)
	assert.Equal(t, "mail.example.org", loaded.Provider.IMAP.Host)
}
