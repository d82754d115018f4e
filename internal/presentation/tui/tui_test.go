package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer(80)
	require.NoError(t, err)

	out, err := render("# Title\n\nbody text")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "body text")
}
