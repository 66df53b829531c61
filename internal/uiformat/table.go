package uiformat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ResultWriter formats query/memory results as either an aligned plain
// text table or JSON, mirroring the host CLI's internal/output.Writer
// status/progress helpers plus a tabular results mode the host left to
// its MCP front-end.
type ResultWriter struct {
	out  io.Writer
	json bool
}

// NewResultWriter builds a ResultWriter. asJSON selects machine-readable
// output for scripting; otherwise results render as an aligned table.
func NewResultWriter(out io.Writer, asJSON bool) *ResultWriter {
	return &ResultWriter{out: out, json: asJSON}
}

// Status prints a one-line status message with a short prefix tag.
func (w *ResultWriter) Status(tag, msg string) {
	if w.json {
		return
	}
	if tag != "" {
		_, _ = fmt.Fprintf(w.out, "[%s] %s\n", tag, msg)
	} else {
		_, _ = fmt.Fprintln(w.out, msg)
	}
}

// Errorf prints a formatted error line.
func (w *ResultWriter) Errorf(format string, args ...any) {
	w.Status("ERROR", fmt.Sprintf(format, args...))
}

// Table prints rows under headers as a space-aligned plain text table,
// or as a JSON array of objects keyed by header when asJSON is set.
func (w *ResultWriter) Table(headers []string, rows [][]string) {
	if w.json {
		w.writeJSONTable(headers, rows)
		return
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w.out, "(no results)")
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	_, _ = fmt.Fprintln(w.out, formatRow(headers, widths))
	sep := make([]string, len(headers))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	_, _ = fmt.Fprintln(w.out, formatRow(sep, widths))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w.out, formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		padded[i] = cell + strings.Repeat(" ", width-len(cell))
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}

func (w *ResultWriter) writeJSONTable(headers []string, rows [][]string) {
	objs := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				obj[h] = row[i]
			}
		}
		objs = append(objs, obj)
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(objs)
}

// JSON marshals v directly, for results shapes richer than a flat table.
func (w *ResultWriter) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// IsJSON reports whether this writer emits JSON.
func (w *ResultWriter) IsJSON() bool { return w.json }
