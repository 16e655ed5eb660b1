package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr string
	}{
		{line: "refresh", want: Command{Name: "refresh", Args: []string{}}},
		{line: "  cat work finance ", want: Command{Name: "cat", Args: []string{"work", "finance"}}},
		{line: "DATE week", want: Command{Name: "date", Args: []string{"week"}}},
		{line: "sum", want: Command{Name: "summarize", Args: []string{}}},
		{line: "ch", want: Command{Name: "check", Args: []string{}}},
		{line: "search invoice from:acme", want: Command{Name: "search", Args: []string{"invoice", "from:acme"}}},
		{line: "", wantErr: "empty command"},
		{line: "bogus", wantErr: `unknown command "bogus"`},
		{line: "t", wantErr: `ambiguous command "t"`},
		{line: "date", wantErr: "usage: date all|today|week|month"},
		{line: "tag", wantErr: "usage: tag <name>"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExactNameBeatsPrefix(t *testing.T) {
	// "tag" is also a prefix of "tags".
	got, err := Parse("tag work")
	require.NoError(t, err)
	assert.Equal(t, "tag", got.Name)
	assert.Equal(t, "work", got.Arg())
}

func TestModelSubmit(t *testing.T) {
	m := New(80, 20)
	m.Focus()
	for _, r := range "unread" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ExecMsg{Command: Command{Name: "unread", Args: []string{}}}, cmd())
	assert.Contains(t, m.View(), "Command Palette")
}

func TestModelInvalidStaysOpen(t *testing.T) {
	m := New(80, 20)
	m.Focus()
	for _, r := range "nope" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), `unknown command "nope"`)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}
