package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable renders a rounded go-pretty table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatPlain renders a kubectl-style table without box drawing,
	// for grep and awk.
	OutputFormatPlain OutputFormat = "plain"
	// OutputFormatJSON prints the underlying data as indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML prints the underlying data as YAML.
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatPlain,
	OutputFormatJSON,
	OutputFormatYAML,
}

// Tabular reports whether the format is meant for a human rather than a
// parser.
func (f OutputFormat) Tabular() bool {
	return f == OutputFormatTable || f == OutputFormatPlain
}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	for _, f := range ValidOutputFormats {
		if OutputFormat(format) == f {
			return nil
		}
	}
	valid := make([]string, len(ValidOutputFormats))
	for i, f := range ValidOutputFormats {
		valid[i] = string(f)
	}
	return NewUsageError("unsupported output format %q (valid: %s)", format, strings.Join(valid, ", "))
}

// Table is the tabular form of a view.
type Table struct {
	Header []string
	Rows   [][]string
	// Footer is printed below the table, e.g. a count.
	Footer string
	// Empty is printed instead of the table when there are no rows.
	Empty string
}

// Options controls Render.
type Options struct {
	Format    OutputFormat
	NoHeaders bool
}

// Render writes data in the serialised formats and tbl in the tabular ones.
func Render(w io.Writer, opts Options, data any, tbl Table) error {
	switch opts.Format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case OutputFormatPlain:
		if len(tbl.Rows) == 0 && tbl.Empty != "" {
			fmt.Fprintln(w, tbl.Empty)
			return nil
		}
		pw := NewPlainTableWriter(w)
		pw.SetNoHeaders(opts.NoHeaders)
		pw.SetHeaders(tbl.Header)
		for _, row := range tbl.Rows {
			pw.AppendRow(row)
		}
		pw.Render()
		return nil
	case OutputFormatTable, "":
		renderTable(w, opts, tbl)
		return nil
	default:
		return ValidateOutputFormat(string(opts.Format))
	}
}

func renderTable(w io.Writer, opts Options, tbl Table) {
	if len(tbl.Rows) == 0 && tbl.Empty != "" {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint(tbl.Empty))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	if !opts.NoHeaders {
		header := make(table.Row, len(tbl.Header))
		for i, h := range tbl.Header {
			header[i] = text.FgHiCyan.Sprint(strings.ToUpper(h))
		}
		t.AppendHeader(header)
	}
	for _, r := range tbl.Rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}
	t.Render()

	if tbl.Footer != "" {
		fmt.Fprintf(w, "\n%s\n", text.FgHiBlue.Sprint(tbl.Footer))
	}
}
