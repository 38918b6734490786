package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseString(t *testing.T) {
	p := NewParser()

	out, err := p.ParseString("Your account is linked to **Pilot One**.")
	require.NoError(t, err)
	assert.Equal(t, "<p>Your account is linked to <strong>Pilot One</strong>.</p>\n", out)
}

func TestParseString_EscapesHTML(t *testing.T) {
	out, err := NewParser().ParseString("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestParseString_Links(t *testing.T) {
	out, err := NewParser().ParseString("Use [/bind](https://discord.com) again")
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://discord.com">/bind</a>`)
}
