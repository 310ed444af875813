package elfx

import (
	"bytes"
	"debug/elf"
	"fmt"
	"strings"

	"github.com/lunixbochs/struc"
)

// Rel is one relocation entry from a SHT_REL or SHT_RELA section.
type Rel struct {
	Offset  uint64
	Type    string
	SymName string
	Addend  int64
	Section string
}

type rela64 struct {
	Off    uint64 `struc:"uint64"`
	Info   uint64 `struc:"uint64"`
	Addend int64  `struc:"int64"`
}

type rel64 struct {
	Off  uint64 `struc:"uint64"`
	Info uint64 `struc:"uint64"`
}

type rela32 struct {
	Off    uint32 `struc:"uint32"`
	Info   uint32 `struc:"uint32"`
	Addend int32  `struc:"int32"`
}

type rel32 struct {
	Off  uint32 `struc:"uint32"`
	Info uint32 `struc:"uint32"`
}

// Relocations decodes every SHT_REL and SHT_RELA section in file order.
// Symbol names are resolved through the section's linked symbol table.
func (im *Image) Relocations() []Rel {
	var out []Rel
	for _, s := range im.File.Sections {
		if s.Type != elf.SHT_RELA && s.Type != elf.SHT_REL {
			continue
		}
		data, ok := im.SectionContent(s)
		if !ok {
			continue
		}
		names := im.linkedSymbolNames(s)
		out = append(out, im.parseRelocations(s, data, names)...)
	}
	return out
}

// linkedSymbolNames returns the names of the symbol table the relocation
// section refers to, indexed from 1 as in r_info.
func (im *Image) linkedSymbolNames(s *elf.Section) []string {
	if int(s.Link) >= len(im.File.Sections) {
		return nil
	}
	var syms []elf.Symbol
	var err error
	switch im.File.Sections[s.Link].Type {
	case elf.SHT_DYNSYM:
		syms, err = im.File.DynamicSymbols()
	case elf.SHT_SYMTAB:
		syms, err = im.File.Symbols()
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	names := make([]string, len(syms))
	for i, sym := range syms {
		names[i] = sym.Name
	}
	return names
}

func (im *Image) parseRelocations(s *elf.Section, data []byte, names []string) []Rel {
	var out []Rel
	r := bytes.NewReader(data)
	order := im.File.ByteOrder
	is64 := im.File.Class == elf.ELFCLASS64

	symName := func(idx uint64) string {
		// Symbols are 1-indexed in relocations.
		if idx == 0 || idx > uint64(len(names)) {
			return ""
		}
		return names[idx-1]
	}

	for r.Len() > 0 {
		var rel Rel
		var symIdx, typ uint64
		switch {
		case is64 && s.Type == elf.SHT_RELA:
			var e rela64
			if err := struc.UnpackWithOrder(r, &e, order); err != nil {
				return out
			}
			rel.Offset, rel.Addend = e.Off, e.Addend
			symIdx, typ = e.Info>>32, e.Info&0xffffffff
		case is64:
			var e rel64
			if err := struc.UnpackWithOrder(r, &e, order); err != nil {
				return out
			}
			rel.Offset = e.Off
			symIdx, typ = e.Info>>32, e.Info&0xffffffff
		case s.Type == elf.SHT_RELA:
			var e rela32
			if err := struc.UnpackWithOrder(r, &e, order); err != nil {
				return out
			}
			rel.Offset, rel.Addend = uint64(e.Off), int64(e.Addend)
			symIdx, typ = uint64(e.Info>>8), uint64(e.Info&0xff)
		default:
			var e rel32
			if err := struc.UnpackWithOrder(r, &e, order); err != nil {
				return out
			}
			rel.Offset = uint64(e.Off)
			symIdx, typ = uint64(e.Info>>8), uint64(e.Info&0xff)
		}
		rel.Type = relocTypeName(im.File.Machine, uint32(typ))
		rel.SymName = symName(symIdx)
		rel.Section = s.Name
		out = append(out, rel)
	}
	return out
}

func relocTypeName(m elf.Machine, t uint32) string {
	var name string
	switch m {
	case elf.EM_X86_64:
		name = elf.R_X86_64(t).String()
	case elf.EM_386:
		name = elf.R_386(t).String()
	case elf.EM_AARCH64:
		name = elf.R_AARCH64(t).String()
	case elf.EM_ARM:
		name = elf.R_ARM(t).String()
	default:
		return fmt.Sprintf("%d", t)
	}
	for _, prefix := range []string{"R_X86_64_", "R_386_", "R_AARCH64_", "R_ARM_"} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}
