// Package report renders check results and parameter listings.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/tensortypes/internal/check"
	"github.com/born-ml/tensortypes/internal/config"
	"github.com/born-ml/tensortypes/internal/manifest"
	"github.com/born-ml/tensortypes/param"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "table", "markdown" (or "md") and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return FormatTable, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, markdown or json)", s)
}

// Results writes results followed by a summary line.
func Results(w io.Writer, results []check.Result, format Format) error {
	summary := check.Summarize(results)
	if format == FormatJSON {
		return writeJSON(w, struct {
			Results []check.Result `json:"results"`
			Summary check.Summary  `json:"summary"`
		}{results, summary})
	}

	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(no tensors)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Tensor", "Type", "Shape", "DType", "Expected", "Size", "Status", "Message"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.File,
			r.Tensor,
			r.Type,
			shapeString(r.Shape),
			r.DType,
			r.Expected,
			sizeString(r),
			string(r.Status),
			r.Message,
		})
	}
	render(t, format)
	_, err := fmt.Fprintln(w, SummaryLine(summary))
	return err
}

// SummaryLine returns e.g. "1,024 tensors in 3 files: 1,020 ok, 2 mismatch,
// 2 unmatched, 0 errors".
func SummaryLine(s check.Summary) string {
	return fmt.Sprintf("%s tensors in %s files: %s ok, %s mismatch, %s unmatched, %s errors",
		param.Format(s.Tensors),
		param.Format(s.Files),
		param.Format(s.OK),
		param.Format(s.Mismatch),
		param.Format(s.Unmatched),
		param.Format(s.Errors),
	)
}

// Params writes the parameter values and, when rules is non-nil, every
// manifest type with its shape resolved against values.
func Params(w io.Writer, values config.Values, rules manifest.Rules, format Format) error {
	if format == FormatJSON {
		types := make([]typeJSON, 0, len(rules))
		for _, r := range rules {
			types = append(types, typeJSON{
				Name:     r.Spec.Name(),
				Kind:     r.Spec.Kind().String(),
				Dims:     r.Spec.DimNames(),
				Shape:    r.Spec.Resolve(&values),
				Patterns: r.Patterns,
			})
		}
		return writeJSON(w, struct {
			Params config.Values `json:"params"`
			Types  []typeJSON    `json:"types,omitempty"`
		}{values, types})
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Parameter", "Value"})
	for _, name := range values.Names() {
		t.AppendRow(table.Row{name, param.Format(values[name])})
	}
	render(t, format)

	if len(rules) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(w)
	t = newTable(w)
	t.AppendHeader(table.Row{"Type", "Dims", "Shape", "Kind", "Tensors"})
	for _, r := range rules {
		t.AppendRow(table.Row{
			r.Spec.Name(),
			strings.Join(r.Spec.DimNames(), " "),
			r.Spec.Resolve(&values).String(),
			r.Spec.Kind().String(),
			strings.Join(r.Patterns, " "),
		})
	}
	render(t, format)
	return nil
}

type typeJSON struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Dims     []string `json:"dims"`
	Shape    []int    `json:"shape"`
	Patterns []string `json:"tensors"`
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func render(t table.Writer, format Format) {
	if format == FormatMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shapeString(shape []int) string {
	if shape == nil {
		return ""
	}
	return fmt.Sprint(shape)
}

func sizeString(r check.Result) string {
	if r.Tensor == "" {
		return ""
	}
	return humanize.IBytes(uint64(r.Bytes)) //nolint:gosec // G115: sizes are non-negative.
}
