package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"      _                                    _", "#34d399"},
	{"  ___| |_ ___ _ __   __ _ _ __ __ _ _ __ | |__", "#2dd4bf"},
	{" / __| __/ _ \\ '_ \\ / _` | '__/ _` | '_ \\| '_ \\", "#22d3ee"},
	{" \\__ \\ ||  __/ |_) | (_| | | | (_| | |_) | | | |", "#38bdf8"},
	{" |___/\\__\\___| .__/ \\__, |_|  \\__,_| .__/|_| |_|", "#60a5fa"},
	{"             |_|    |___/          |_|", "#818cf8"},
}

// PrintBanner writes the coloured stepgraph banner and version to w.
// Colours degrade to plain text when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
