package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// WriteResultsSummary writes the markdown index of a results directory,
// listing files under data, LaTeX and figure headings by extension. Other
// files are ignored.
func WriteResultsSummary(w io.Writer, files []string) error {
	groups := map[string][]string{}
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		groups[ext] = append(groups[ext], filepath.Base(f))
	}

	var b strings.Builder
	b.WriteString("# Paper Results Summary\n\n## Generated Files\n")
	for _, section := range []struct {
		title string
		exts  []string
	}{
		{"Results Data", []string{".json"}},
		{"LaTeX Fragments", []string{".tex"}},
		{"Figures", []string{".pdf", ".svg"}},
	} {
		var names []string
		for _, ext := range section.exts {
			names = append(names, groups[ext]...)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\n### %s\n", section.title)
		if len(names) == 0 {
			b.WriteString("- none\n")
		}
		for _, name := range names {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	}
	b.WriteString("\n## Usage\n\n")
	b.WriteString("1. Copy the LaTeX fragments into the paper source.\n")
	b.WriteString("2. Copy the figures into the paper figures/ directory.\n")
	_, err := io.WriteString(w, b.String())
	return err
}
