// Package output renders command results as aligned tables or JSON, and
// prints toast messages raised by the page controllers.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
)

// jsonPathLanguage is JSONPath with gval's full expression language, so
// filters such as $[?(@.price > 200)] can compare and combine values.
var jsonPathLanguage = gval.NewLanguage(gval.Full(), jsonpath.Language())

// Formatter handles output formatting (table or JSON).
type Formatter struct {
	Writer   io.Writer
	JSONMode bool
	// JSONPath, when set, selects part of the JSON document before it is
	// printed, e.g. "$[*].symbol". It implies JSON mode.
	JSONPath string
}

// New creates a new Formatter with the specified writer and JSON mode.
func New(w io.Writer, jsonMode bool) *Formatter {
	return &Formatter{
		Writer:   w,
		JSONMode: jsonMode,
	}
}

// WithJSONPath sets the selection applied to JSON output.
func (f *Formatter) WithJSONPath(expr string) *Formatter {
	f.JSONPath = strings.TrimSpace(expr)
	return f
}

func (f *Formatter) json() bool {
	return f.JSONMode || f.JSONPath != ""
}

// Table outputs data as a formatted table or JSON array depending on mode.
// Headers define column names, rows contain the data.
func (f *Formatter) Table(headers []string, rows [][]string) error {
	if f.json() {
		return f.tableAsJSON(headers, rows)
	}
	return f.tableAsText(headers, rows)
}

// tableAsText renders a table with aligned columns.
func (f *Formatter) tableAsText(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}

	separators := make([]string, len(headers))
	for i, h := range headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(separators, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// tableAsJSON renders a table as a JSON array of objects.
func (f *Formatter) tableAsJSON(headers []string, rows [][]string) error {
	result := make([]map[string]string, 0, len(rows))

	for _, row := range rows {
		obj := make(map[string]string)
		for i, header := range headers {
			if i < len(row) {
				obj[header] = row[i]
			} else {
				obj[header] = ""
			}
		}
		result = append(result, obj)
	}

	return f.Print(result)
}

// Field is one labelled value of a detail view.
type Field struct {
	Label string
	Value string
}

// Details prints label/value pairs, one per line, or a JSON object keyed by
// label.
func (f *Formatter) Details(fields []Field) error {
	if f.json() {
		obj := make(map[string]string, len(fields))
		for _, fl := range fields {
			obj[fl.Label] = fl.Value
		}
		return f.Print(obj)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	for _, fl := range fields {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", fl.Label, fl.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Print outputs data as formatted JSON (pretty-printed) or as a simple string representation.
func (f *Formatter) Print(data any) error {
	if f.json() {
		if f.JSONPath != "" {
			selected, err := Select(data, f.JSONPath)
			if err != nil {
				return err
			}
			data = selected
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	_, err := fmt.Fprintf(f.Writer, "%v\n", data)
	return err
}

// Select evaluates a JSONPath expression against the JSON form of data.
func Select(data any, expr string) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}

	eval, err := jsonPathLanguage.NewEvaluable(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	v, err := eval(context.Background(), doc)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	return v, nil
}
