package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *domain.Run {
	return &domain.Run{
		ID:      "run-1",
		GraphID: "graph-1",
		Status:  domain.RunFailed,
		State:   domain.State{"text": "hello", "chunks": []any{"he", "llo"}},
		Log: []domain.LogEntry{
			{NodeID: "split", StateSnapshot: domain.State{"text": "hello", "tmp": 1}},
			{NodeID: "summarize", StateSnapshot: domain.State{"text": "hello", "chunks": []any{"he", "llo"}}},
		},
		LastError: "node 'summarize' (tool 'generate_summaries') failed: key | missing",
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRun())

	assert.Contains(t, md, "# Run `run-1`")
	assert.Contains(t, md, "- **Status:** failed")
	assert.Contains(t, md, "- **Steps:** 2")
	assert.Contains(t, md, `key \| missing`)
	assert.Contains(t, md, "| 1 | `split` | `chunks` = [\"he\",\"llo\"]<br>~~`tmp`~~ |")
	assert.Contains(t, md, "| 2 | `summarize` | _no changes_ |")
	assert.Contains(t, md, "```json\n{")
	assert.Contains(t, md, `"text": "hello"`)
}

func TestMarkdown_ErrorIsNotTruncated(t *testing.T) {
	run := sampleRun()
	run.LastError = "node 'refine' failed: " + strings.Repeat("very long reason ", 10) + "| end\nsecond line"
	md := Markdown(run)

	assert.Contains(t, md, strings.Repeat("very long reason ", 10)+`\| end second line`)
	assert.NotContains(t, md, "…")
}

func TestMarkdown_NoSteps(t *testing.T) {
	md := Markdown(&domain.Run{ID: "r", Status: domain.RunCompleted, State: domain.State{}})
	assert.NotContains(t, md, "## Steps")
	assert.NotContains(t, md, "**Error:**")
}

func TestWrite_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun()))
	assert.Equal(t, Markdown(sampleRun()), buf.String())
}

func TestCell(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := cell(long)
	assert.Equal(t, maxValueWidth, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "a b", cell("a\nb"))
}
