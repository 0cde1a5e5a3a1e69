package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Field is one labelled value in a PrintFields listing.
type Field struct {
	Key   string
	Value string
}

// Formatter renders command results.
type Formatter interface {
	PrintSuccess(message string) error
	// PrintFields prints labelled values in order.
	PrintFields(fields []Field) error
	PrintTable(headers []string, rows [][]string) error
	PrintJSON(data any) error
}

// NewFormatter returns the Formatter for format writing to w.
func NewFormatter(format OutputFormat, w io.Writer) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{w: w}
	}
	return &TextFormatter{w: w}
}

// TextFormatter writes aligned plain text.
type TextFormatter struct {
	w io.Writer
}

func (f *TextFormatter) PrintSuccess(message string) error {
	_, err := fmt.Fprintln(f.w, "✓", message)
	return err
}

// PrintFields aligns values one column after the longest key.
func (f *TextFormatter) PrintFields(fields []Field) error {
	lines := make([][]string, len(fields))
	for i, field := range fields {
		lines[i] = []string{field.Key + ":", field.Value}
	}
	return f.aligned(1, lines)
}

// PrintTable writes an upper-cased header, a dashed rule and the rows.
func (f *TextFormatter) PrintTable(headers []string, rows [][]string) error {
	head := make([]string, len(headers))
	rule := make([]string, len(headers))
	for i, h := range headers {
		head[i] = strings.ToUpper(h)
		rule[i] = strings.Repeat("-", len(h))
	}
	return f.aligned(2, append([][]string{head, rule}, rows...))
}

func (f *TextFormatter) PrintJSON(data any) error {
	return encodeJSON(f.w, data)
}

func (f *TextFormatter) aligned(padding int, lines [][]string) error {
	tw := tabwriter.NewWriter(f.w, 0, 0, padding, ' ', 0)
	for _, cells := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// JSONFormatter writes indented JSON documents.
type JSONFormatter struct {
	w io.Writer
}

func (f *JSONFormatter) PrintSuccess(message string) error {
	return encodeJSON(f.w, map[string]string{"status": "success", "message": message})
}

// PrintFields writes one object keyed by lower-cased field names.
func (f *JSONFormatter) PrintFields(fields []Field) error {
	obj := make(map[string]string, len(fields))
	for _, field := range fields {
		obj[strings.ToLower(field.Key)] = field.Value
	}
	return encodeJSON(f.w, obj)
}

// PrintTable writes {"headers": [...], "data": [{header: cell}, ...]}.
// Missing cells are empty strings.
func (f *JSONFormatter) PrintTable(headers []string, rows [][]string) error {
	data := make([]map[string]string, len(rows))
	for i, row := range rows {
		data[i] = make(map[string]string, len(headers))
		for j, h := range headers {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			data[i][h] = cell
		}
	}
	return encodeJSON(f.w, map[string]any{"headers": headers, "data": data})
}

func (f *JSONFormatter) PrintJSON(data any) error {
	return encodeJSON(f.w, data)
}

func encodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
