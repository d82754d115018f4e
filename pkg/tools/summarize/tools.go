// Package summarize provides a small text summarization pipeline built from four
// tools: split_text, generate_summaries, merge_summaries and refine_summary.
// Summaries are plain prefixes of the text; no language model is involved.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/spf13/cast"
)

// Tool names as registered by Register.
const (
	SplitText         = "split_text"
	GenerateSummaries = "generate_summaries"
	MergeSummaries    = "merge_summaries"
	RefineSummary     = "refine_summary"
)

const (
	DefaultChunkSize        = 300
	DefaultMaxSummaryLength = 400

	// summaryPrefix is how many characters of each chunk become its summary.
	summaryPrefix = 100
)

// Register installs the four summarization tools into reg.
func Register(reg *registry.Registry) {
	reg.Register(SplitText, Split)
	reg.Register(GenerateSummaries, Summarize)
	reg.Register(MergeSummaries, Merge)
	reg.Register(RefineSummary, Refine)
}

// Split reads "text" and the optional "chunk_size" and writes "chunks": consecutive
// pieces of chunk_size characters, the last one possibly shorter.
func Split(_ context.Context, state domain.State) (domain.State, error) {
	text, err := stringValue(state, "text", "")
	if err != nil {
		return nil, err
	}
	size, err := intValue(state, "chunk_size", DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", size)
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}

	state["chunks"] = chunks
	return state, nil
}

// Summarize reads "chunks" and writes "summaries": the first 100 characters of every
// chunk with surrounding whitespace trimmed.
func Summarize(_ context.Context, state domain.State) (domain.State, error) {
	chunks, err := stringList(state, "chunks")
	if err != nil {
		return nil, err
	}

	summaries := make([]string, len(chunks))
	for i, chunk := range chunks {
		summaries[i] = strings.TrimSpace(truncate(chunk, summaryPrefix))
	}

	state["summaries"] = summaries
	return state, nil
}

// Merge reads "summaries" and writes "summary", joining them with single spaces.
func Merge(_ context.Context, state domain.State) (domain.State, error) {
	summaries, err := stringList(state, "summaries")
	if err != nil {
		return nil, err
	}

	state["summary"] = strings.Join(summaries, " ")
	return state, nil
}

// Refine shortens "summary" to at most "max_summary_length" characters (default 400).
// A summary over the limit is cut at the last whitespace at or before the limit; with
// no whitespace in range the hard cut is kept.
func Refine(_ context.Context, state domain.State) (domain.State, error) {
	summary, err := stringValue(state, "summary", "")
	if err != nil {
		return nil, err
	}
	limit, err := intValue(state, "max_summary_length", DefaultMaxSummaryLength)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("max_summary_length must not be negative, got %d", limit)
	}

	state["summary"] = refine(summary, limit)
	return state, nil
}

func refine(summary string, limit int) string {
	runes := []rune(summary)
	if len(runes) <= limit {
		return summary
	}

	cut := runes[:limit]
	for i := len(cut) - 1; i >= 0; i-- {
		if unicode.IsSpace(cut[i]) {
			return string(cut[:i])
		}
	}
	return string(cut)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func stringValue(state domain.State, key, def string) (string, error) {
	raw, ok := state[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, raw)
	}
	return s, nil
}

// intValue accepts any numeric type or numeric string, as JSON callers send float64.
func intValue(state domain.State, key string, def int) (int, error) {
	raw, ok := state[key]
	if !ok || raw == nil {
		return def, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// stringList accepts []string or a []any holding only strings. A missing key is an empty list.
func stringList(state domain.State, key string) ([]string, error) {
	raw, ok := state[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a list of strings, got %T", key, raw)
}
