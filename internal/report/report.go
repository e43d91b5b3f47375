// Package report renders airtime sweeps, measurement statistics and NPU
// projections as JSON, CSV, LaTeX tabular blocks and aligned text tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects an output rendering.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatLaTeX Format = "latex"
	FormatText  Format = "text"
	// FormatProto renders results in their google.protobuf.Struct JSON
	// form, the shape served by the gRPC service.
	FormatProto Format = "proto"
	// FormatAll renders JSON, CSV and LaTeX separated by a rule.
	FormatAll Format = "all"
)

// Separator is written between sections when rendering FormatAll.
var Separator = "\n" + strings.Repeat("=", 60) + "\n\n"

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatLaTeX, FormatText, FormatProto, FormatAll:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, csv, latex, text, proto or all)", s)
}

// Formats expands f into the concrete renderings to emit, in order.
func (f Format) Formats() []Format {
	if f == FormatAll {
		return []Format{FormatJSON, FormatCSV, FormatLaTeX}
	}
	return []Format{f}
}

// WriteJSON writes v as two-space indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// latexTable writes a booktabs tabular environment with a leading comment.
func latexTable(w io.Writer, comment, columns, header string, rows []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%% %s\n", comment)
	fmt.Fprintf(&b, "\\begin{tabular}{%s}\n", columns)
	b.WriteString("\\toprule\n")
	fmt.Fprintf(&b, "%s \\\\\n", header)
	b.WriteString("\\midrule\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s \\\\\n", row)
	}
	b.WriteString("\\bottomrule\n")
	b.WriteString("\\end{tabular}\n")
	_, err := io.WriteString(w, b.String())
	return err
}
