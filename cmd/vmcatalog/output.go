package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/vmcatalog/apierr"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// printer writes command results in the selected output format.
type printer struct {
	out    io.Writer
	format string
}

func newPrinter(out io.Writer, format string) (*printer, error) {
	switch f := strings.ToLower(format); f {
	case outputTable, outputJSON, outputYAML:
		return &printer{out: out, format: f}, nil
	default:
		return nil, apierr.NewValidation(fmt.Sprintf("unknown output format %q, expected table, json or yaml", format))
	}
}

func (p *printer) structured() bool {
	return p.format != outputTable
}

// value writes v as JSON or YAML. Table output is the caller's job.
func (p *printer) value(v any) error {
	switch p.format {
	case outputJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(p.out, v)
	default:
		return fmt.Errorf("format %s has no structured encoding", p.format)
	}
}

// writeYAML encodes v through its JSON form so field names and order match
// the JSON output.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	clearStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow and quoting styles picked up from JSON input.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// row is one table row. Highlighted rows print in green on a terminal.
type row struct {
	cells       []string
	highlighted bool
}

func (p *printer) table(header []string, rows []row) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range rows {
		if !r.highlighted || color.NoColor {
			table.Append(r.cells)
			continue
		}
		colors := make([]tablewriter.Colors, len(r.cells))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.FgGreenColor}
		}
		table.Rich(r.cells, colors)
	}
	table.Render()
}

// line writes a plain message line.
func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// pageFooter prints the pagination position below a table.
func (p *printer) pageFooter(page, total, shown, matched int) {
	if total <= 1 && shown == matched {
		return
	}
	p.line("%s", color.New(color.Faint).Sprintf("page %d of %d, %d of %d results", page, total, shown, matched))
}

func marker(selected bool) string {
	if selected {
		return "*"
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// pageView is the structured form of one page of a catalog level.
type pageView[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Matched    int `json:"matched"`
}
