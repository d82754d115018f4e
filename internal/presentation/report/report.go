// Package report renders a finished run as a Markdown document.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/condition"
	"github.com/aretw0/stepgraph/pkg/domain"
	"golang.org/x/term"
)

// maxValueWidth truncates long values in the step table.
const maxValueWidth = 60

// Markdown renders run as Markdown: a header, one table row per visited node
// with the keys that node changed, and the final state.
func Markdown(run *domain.Run) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run `%s`\n\n", run.ID)
	fmt.Fprintf(&sb, "- **Graph:** `%s`\n", run.GraphID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", run.Status)
	fmt.Fprintf(&sb, "- **Steps:** %d\n", len(run.Log))
	if run.LastError != "" {
		fmt.Fprintf(&sb, "- **Error:** %s\n", escape(run.LastError))
	}

	if len(run.Log) > 0 {
		sb.WriteString("\n## Steps\n\n")
		sb.WriteString("| # | Node | Changes |\n")
		sb.WriteString("|---|------|---------|\n")
		for i, d := range domain.StepDiffs(run.Log, run.State) {
			fmt.Fprintf(&sb, "| %d | `%s` | %s |\n", i+1, run.Log[i].NodeID, changes(d))
		}
	}

	sb.WriteString("\n## Final state\n\n```json\n")
	data, err := marshalIndent(run.State)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", run.State))
	}
	sb.Write(data)
	sb.WriteString("\n```\n")

	return sb.String()
}

// Write renders run to w. Terminals get glamour output; anything else gets raw Markdown.
func Write(w io.Writer, run *domain.Run) error {
	md := Markdown(run)
	if width, ok := terminalWidth(w); ok {
		render, err := tui.NewRenderer(width)
		if err == nil {
			if out, err := render(md); err == nil {
				md = out
			}
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, true
	}
	return width, true
}

func changes(d domain.StateDiff) string {
	if d.IsEmpty() {
		return "_no changes_"
	}
	keys := make([]string, 0, len(d.Set))
	for k := range d.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(d.Removed))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("`%s` = %s", k, cell(condition.Text(condition.Of(d.Set[k])))))
	}
	for _, k := range d.Removed {
		parts = append(parts, fmt.Sprintf("~~`%s`~~", k))
	}
	return strings.Join(parts, "<br>")
}

// cell makes s safe for a single Markdown table cell.
// escape keeps s on one line and safe inside a table.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// cell escapes s and truncates it to maxValueWidth runes.
func cell(s string) string {
	s = escape(s)
	if r := []rune(s); len(r) > maxValueWidth {
		s = string(r[:maxValueWidth-1]) + "…"
	}
	return s
}

func marshalIndent(v any) ([]byte, error) {
	var sb strings.Builder
	enc := xjson.NewEncoder(&sb)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(sb.String(), "\n")), nil
}
