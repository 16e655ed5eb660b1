package textutil

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain passes through", "hello", "hello"},
		{"breaks become newlines", "a<br>b<br/>c", "a\nb\nc"},
		{"entities decoded", "<p>Tom &amp; Jerry &lt;3</p>", "Tom & Jerry <3"},
		{"style blocks dropped", "<style>.x{color:red}</style><div>Hi</div>", "Hi"},
		{"blank runs collapsed", "<p>a</p><p></p><p></p><p>b</p>", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel…", Truncate("hello world", 4))
	assert.Equal(t, "", Truncate("hello", 0))

	wide := Truncate("日本語のテキスト", 7)
	assert.LessOrEqual(t, runewidth.StringWidth(wide), 7)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, 5, runewidth.StringWidth(PadRight("日本語のテキスト", 5)))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a\n\tb   c "))
}
