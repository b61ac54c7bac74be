package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// maxCellWidth caps a table cell; longer text is truncated.
const maxCellWidth = 32

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth is the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// printTable writes rows under header as aligned columns. Widths are
// measured in terminal cells, so wide runes line up; numbers are right
// aligned. Only the last column may exceed maxCellWidth.
func printTable(w io.Writer, header []string, rows [][]string) {
	limit := func(i, n int) int {
		if i == len(header)-1 {
			return n
		}
		return min(n, maxCellWidth)
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = limit(i, runewidth.StringWidth(h))
	}
	for _, row := range rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], limit(i, runewidth.StringWidth(c)))
			}
		}
	}

	line := func(cells []string, head bool) {
		var b strings.Builder
		for i := range widths {
			var c string
			if i < len(cells) {
				c = runewidth.Truncate(cells[i], widths[i], "…")
			}
			if i > 0 {
				b.WriteString("  ")
			}
			if !head && isNumber(c) {
				b.WriteString(runewidth.FillLeft(c, widths[i]))
			} else {
				b.WriteString(runewidth.FillRight(c, widths[i]))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(header, true)
	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("─", n)
	}
	line(rule, true)
	for _, row := range rows {
		line(row, false)
	}
}

// bar renders count as a bar of at most width cells relative to peak.
func bar(count, peak, width int) string {
	if peak <= 0 || count <= 0 {
		return ""
	}
	n := max(1, count*width/peak)
	return strings.Repeat("█", n)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter shows parse progress on stderr when it is a terminal.
func progressPrinter(name string) func(float64) {
	if !isTerminal(os.Stderr) {
		return nil
	}
	return func(p float64) {
		fmt.Fprintf(os.Stderr, "\r%s %3.0f%%", name, p)
		if p >= 100 {
			fmt.Fprint(os.Stderr, "\r\033[K")
		}
	}
}
