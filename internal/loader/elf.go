package loader

import (
	"debug/elf"

	"zeroir/internal/elfx"
	"zeroir/internal/ir"
)

var machineMap = map[elf.Machine]ir.ISA{
	elf.EM_386:     ir.ISAIA32,
	elf.EM_X86_64:  ir.ISAX64,
	elf.EM_ARM:     ir.ISAARM,
	elf.EM_AARCH64: ir.ISAARM64,
	elf.EM_PPC:     ir.ISAPPC32,
	elf.EM_PPC64:   ir.ISAPPC64,
}

// ELFReader reads ELF binaries through an elfx.Image.
type ELFReader struct {
	im *elfx.Image
}

// OpenELF maps the ELF file at path.
func OpenELF(path string) (*ELFReader, error) {
	im, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	return &ELFReader{im: im}, nil
}

// NewELFReader wraps an already parsed image.
func NewELFReader(im *elfx.Image) *ELFReader {
	return &ELFReader{im: im}
}

func (e *ELFReader) Valid() bool {
	return e.im != nil && e.im.File != nil
}

func (e *ELFReader) Format() ir.FileFormat { return ir.FormatELF }

func (e *ELFReader) ISA() ir.ISA {
	if e.im.File.Machine == elf.EM_MIPS {
		if e.im.File.Class == elf.ELFCLASS64 {
			return ir.ISAMIPS64
		}
		return ir.ISAMIPS32
	}
	return machineMap[e.im.File.Machine]
}

func (e *ELFReader) Entry() uint64 { return e.im.File.Entry }

func (e *ELFReader) Sections() []SectionDesc {
	out := make([]SectionDesc, 0, len(e.im.File.Sections))
	for i, s := range e.im.File.Sections {
		desc := SectionDesc{
			Name:    s.Name,
			Address: s.Addr,
			Size:    s.Size,
			Type:    uint64(s.Type),
			Flags:   uint64(s.Flags),
			Index:   uint64(i),
		}
		if content, ok := e.im.SectionContent(s); ok {
			desc.Content = content
		}
		out = append(out, desc)
	}
	return out
}

func (e *ELFReader) Symbols() []SymbolDesc {
	syms := e.im.Symbols()
	out := make([]SymbolDesc, 0, len(syms))
	for _, s := range syms {
		out = append(out, SymbolDesc{
			Name:         s.Name,
			Address:      s.Value,
			Size:         s.Size,
			Type:         s.Type,
			Scope:        s.Bind,
			Visibility:   s.Visibility,
			SectionIndex: uint64(s.Section),
		})
	}
	return out
}

func (e *ELFReader) Relocations() []ir.Relocation {
	rels := e.im.Relocations()
	out := make([]ir.Relocation, 0, len(rels))
	for _, r := range rels {
		out = append(out, ir.Relocation{
			Address: r.Offset,
			Type:    r.Type,
			Name:    r.SymName,
			Addend:  r.Addend,
		})
	}
	return out
}

func (e *ELFReader) Libraries() []string    { return e.im.Libraries() }
func (e *ELFReader) LibraryPaths() []string { return e.im.LibraryPaths() }
func (e *ELFReader) BinaryType() string     { return e.im.BinaryType() }

func (e *ELFReader) Close() error {
	return e.im.Close()
}
