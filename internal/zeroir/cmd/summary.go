package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"zeroir/internal/ir"
	"zeroir/internal/symbols"
)

// maxListedSymbols bounds the symbol table of the text reports.
const maxListedSymbols = 25

// Summary is the report printed after building a model.
type Summary struct {
	Name         string           `json:"name"`
	Path         string           `json:"path"`
	Format       string           `json:"format"`
	ISA          string           `json:"isa"`
	BinaryType   string           `json:"binaryType,omitempty"`
	Entry        string           `json:"entry"`
	Sections     []SectionSummary `json:"sections"`
	Symbols      []symbols.Entry  `json:"symbols"`
	Relocations  int              `json:"relocations"`
	Libraries    []string         `json:"libraries,omitempty"`
	LibraryPaths []string         `json:"libraryPaths,omitempty"`
	Version      string           `json:"version"`
}

type SectionSummary struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Size    uint64   `json:"size"`
	Flags   []string `json:"flags"`
}

func summarize(m *ir.Model, cache *symbols.Cache) Summary {
	s := Summary{
		Name:         m.Name,
		Path:         m.Path,
		Format:       m.Format.String(),
		ISA:          m.ISA.String(),
		BinaryType:   strings.Join(m.Aux.BinaryType, ","),
		Symbols:      symbols.List(m, cache),
		Relocations:  len(m.Aux.Relocations),
		Libraries:    m.Aux.Libraries,
		LibraryPaths: m.Aux.LibraryPaths,
		Version:      m.Aux.Version,
	}
	if e := m.EntryPoint(); e != nil {
		s.Entry = fmt.Sprintf("%#x", e.Address())
	}
	for _, sec := range m.Sections() {
		ss := SectionSummary{
			Name:    sec.Name,
			Address: fmt.Sprintf("%#x", sec.Address),
			Size:    sec.Size,
		}
		for _, f := range sec.Flags {
			ss.Flags = append(ss.Flags, f.String())
		}
		s.Sections = append(s.Sections, ss)
	}
	return s
}

func (s Summary) listedSymbols() ([]symbols.Entry, int) {
	if len(s.Symbols) <= maxListedSymbols {
		return s.Symbols, 0
	}
	return s.Symbols[:maxListedSymbols], len(s.Symbols) - maxListedSymbols
}

func symbolName(e symbols.Entry) string {
	if e.Demangled != "" {
		return e.Demangled
	}
	return e.Name
}

func symbolAddr(e symbols.Entry) string {
	if !e.HasAddr {
		return "-"
	}
	return fmt.Sprintf("%#x", e.Address)
}

// Markdown renders the summary for glamour.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Name)
	fmt.Fprintf(&b, "- **Format:** %s %s\n", s.Format, s.BinaryType)
	fmt.Fprintf(&b, "- **ISA:** %s\n", s.ISA)
	fmt.Fprintf(&b, "- **Entry:** `%s`\n", s.Entry)
	fmt.Fprintf(&b, "- **Relocations:** %d\n", s.Relocations)
	if len(s.Libraries) > 0 {
		fmt.Fprintf(&b, "- **Libraries:** %s\n", strings.Join(s.Libraries, ", "))
	}
	if len(s.LibraryPaths) > 0 {
		fmt.Fprintf(&b, "- **Search paths:** %s\n", strings.Join(s.LibraryPaths, ", "))
	}

	b.WriteString("\n## Sections\n\n| Name | Address | Size | Flags |\n|---|---|---|---|\n")
	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "| %s | `%s` | %d | %s |\n", sec.Name, sec.Address, sec.Size, strings.Join(sec.Flags, " "))
	}

	listed, more := s.listedSymbols()
	if len(listed) > 0 {
		b.WriteString("\n## Symbols\n\n| Address | Name | Type |\n|---|---|---|\n")
		for _, e := range listed {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", symbolAddr(e), escapeCell(symbolName(e)), e.Type)
		}
		if more > 0 {
			fmt.Fprintf(&b, "\n*… and %d more*\n", more)
		}
	}
	fmt.Fprintf(&b, "\n*zeroir %s*\n", s.Version)
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WritePlain writes the summary as aligned plain text.
func (s Summary) WritePlain(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "name:\t%s\n", s.Name)
	fmt.Fprintf(tw, "format:\t%s %s\n", s.Format, s.BinaryType)
	fmt.Fprintf(tw, "isa:\t%s\n", s.ISA)
	fmt.Fprintf(tw, "entry:\t%s\n", s.Entry)
	fmt.Fprintf(tw, "relocations:\t%d\n", s.Relocations)
	if len(s.Libraries) > 0 {
		fmt.Fprintf(tw, "libraries:\t%s\n", strings.Join(s.Libraries, " "))
	}
	fmt.Fprintln(tw)
	for _, sec := range s.Sections {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sec.Name, sec.Address, sec.Size, strings.Join(sec.Flags, ","))
	}
	listed, more := s.listedSymbols()
	if len(listed) > 0 {
		fmt.Fprintln(tw)
		for _, e := range listed {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", symbolAddr(e), symbolName(e), e.Type)
		}
		if more > 0 {
			fmt.Fprintf(tw, "... and %d more\n", more)
		}
	}
	return tw.Flush()
}
