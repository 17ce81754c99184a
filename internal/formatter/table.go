// Package formatter renders command results as aligned tables, JSON or YAML.
package formatter

import (
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Table writes columnar output through a tabwriter. Nothing is written for a
// table without rows.
type Table struct {
	w        *tabwriter.Writer
	headers  []string
	maxWidth map[int]int
	rows     int
}

// NewTable creates a table that writes to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		w:        tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers:  headers,
		maxWidth: make(map[int]int),
	}
}

// SetMaxWidth caps the width of column col in runes. Longer values are cut
// and end in "...".
func (t *Table) SetMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// AddRow appends a row. Values beyond the header count are dropped and
// missing ones are left blank.
func (t *Table) AddRow(values ...string) {
	if t.rows == 0 {
		t.writeLine(t.headers)
		sep := make([]string, len(t.headers))
		for i, h := range t.headers {
			sep[i] = strings.Repeat("-", utf8.RuneCountInString(h))
		}
		t.writeLine(sep)
	}
	t.rows++

	cells := make([]string, len(t.headers))
	for i := range cells {
		if i < len(values) {
			cells[i] = t.truncate(i, sanitize(values[i]))
		}
	}
	t.writeLine(cells)
}

// Rows reports how many rows were added.
func (t *Table) Rows() int { return t.rows }

// Render flushes the table.
func (t *Table) Render() error {
	return t.w.Flush()
}

func (t *Table) writeLine(cells []string) {
	//nolint:errcheck // surfaced by Flush
	io.WriteString(t.w, strings.Join(cells, "\t")+"\n")
}

func (t *Table) truncate(col int, s string) string {
	max, ok := t.maxWidth[col]
	if !ok || max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// sanitize keeps a value on one table line.
func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(s)
}
