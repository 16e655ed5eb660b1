package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "mailboard dev\n", out.String())
}

func TestRequired(t *testing.T) {
	check := required("host")
	assert.EqualError(t, check("  "), "host is required")
	assert.NoError(t, check("imap.example.com"))
}
