package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is an output format for listings.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// TableData is a listing with named columns.
type TableData struct {
	Headers []string
	Rows    [][]string
}

// Formatter writes listings in one format.
type Formatter struct {
	Format Format
	Writer io.Writer
}

// NewFormatter returns a formatter writing to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{Format: format, Writer: w}
}

// PrintTable writes data. JSON and YAML get a list of header -> cell maps,
// with headers lower-cased.
func (f *Formatter) PrintTable(data TableData) {
	if f.Format != FormatTable {
		rows := make([]map[string]string, len(data.Rows))
		for i, row := range data.Rows {
			m := make(map[string]string, len(row))
			for j, cell := range row {
				if j < len(data.Headers) {
					m[strings.ToLower(data.Headers[j])] = cell
				}
			}
			rows[i] = m
		}
		if f.Format == FormatYAML {
			enc := yaml.NewEncoder(f.Writer)
			enc.SetIndent(2)
			_ = enc.Encode(rows)
			_ = enc.Close()
			return
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rows)
		return
	}

	table := tablewriter.NewWriter(f.Writer)
	if len(data.Headers) > 0 {
		table.SetHeader(data.Headers)
	}
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data.Rows)
	table.Render()
}
