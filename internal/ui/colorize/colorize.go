// Package colorize highlights x86 instruction listings for terminals.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss/v2"
)

// ListingDark is the chroma style used for instruction listings.
var ListingDark = styles.Register(chroma.MustNewStyle("zeroir-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#8A8A8A",

	// nasm tokenizes mnemonics as functions and registers as builtins
	chroma.Keyword:      "#FFFFFF",
	chroma.NameFunction: "#FFFFFF",
	chroma.Name:         "#7C9C9D",
	chroma.NameBuiltin:  "#7C9C9D",
	chroma.NameVariable: "#7C9C9D",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.NameLabel:   "#FFD700",
	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
	chroma.String:      "#EACD53",
}))

var addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F4F4F"))

// Enabled reports whether highlighting is on. ZEROIR_NO_COLOR turns it off.
func Enabled() bool {
	return os.Getenv("ZEROIR_NO_COLOR") == ""
}

func lexer() chroma.Lexer {
	for _, name := range []string{"nasm", "gas"} {
		if l := lexers.Get(name); l != nil {
			return chroma.Coalesce(l)
		}
	}
	return nil
}

func formatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

// Listing highlights a multi-line listing. On failure the input is
// returned unchanged together with the error.
func Listing(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}
	l := lexer()
	if l == nil {
		return code, nil
	}
	it, err := l.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := formatter().Format(&buf, ListingDark, it); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Line renders one "address  instruction" row with a dimmed address.
// Tabs in the instruction text are kept.
func Line(addr, text string) string {
	if !Enabled() {
		return addr + "  " + text
	}
	hl, err := Listing(text)
	if err != nil {
		hl = text
	}
	return addrStyle.Render(addr) + "  " + strings.TrimRight(hl, "\n")
}
