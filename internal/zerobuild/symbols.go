package zerobuild

import (
	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// BuildSymbols adds the binary's symbols. Only ELF symbols are
// classified; other formats leave the symbol-info table empty.
func (b *Builder) BuildSymbols(m *ir.Model, r loader.Reader) {
	if r.Format() != ir.FormatELF {
		return
	}
	for _, desc := range r.Symbols() {
		var sym *ir.Symbol
		if Addressless(desc.SectionIndex) {
			sym = m.AddSymbol(desc.Name)
		} else {
			sym = m.AddSymbolAt(desc.Address, desc.Name)
		}
		m.Aux.SymbolInfo[sym.ID()] = ir.SymbolInfo{
			Size:         desc.Size,
			Type:         desc.Type,
			Scope:        desc.Scope,
			Visibility:   desc.Visibility,
			SectionIndex: desc.SectionIndex,
		}
	}
}

// Addressless reports whether a symbol defined relative to sectionIndex
// has no address: the index is undefined or in the reserved band.
func Addressless(sectionIndex uint64) bool {
	return sectionIndex == loader.SectionUndef ||
		(sectionIndex >= loader.SectionLoReserve && sectionIndex <= loader.SectionHiReserve)
}
