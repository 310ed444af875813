// Package elftest assembles small little-endian ELF64 images for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

// Section is a section to emit. Size defaults to len(Data); NOBITS
// sections carry only Size.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint64
	Data  []byte
	Size  uint64
}

// Symbol is a .symtab entry. Section names the defining section; when it
// is empty Index is used as the raw section index.
type Symbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Bind    elf.SymBind
	Type    elf.SymType
	Section string
	Index   elf.SectionIndex
}

// Rela is a .rela.text entry against a named symbol.
type Rela struct {
	Offset uint64
	Symbol string
	Type   elf.R_X86_64
	Addend int64
}

// Image describes a whole file.
type Image struct {
	Type     elf.Type
	Machine  elf.Machine
	Entry    uint64
	Sections []Section
	Symbols  []Symbol
	Relas    []Rela
}

type strtab struct {
	buf bytes.Buffer
}

func newStrtab() *strtab {
	s := &strtab{}
	s.buf.WriteByte(0)
	return s
}

func (s *strtab) add(name string) uint32 {
	if name == "" {
		return 0
	}
	off := uint32(s.buf.Len())
	s.buf.WriteString(name)
	s.buf.WriteByte(0)
	return off
}

func align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

type pending struct {
	hdr  elf.Section64
	data []byte
}

// Build encodes im. Every allocated section with file content gets its
// own PT_LOAD segment.
func Build(im Image) []byte {
	if im.Type == 0 {
		im.Type = elf.ET_EXEC
	}
	if im.Machine == 0 {
		im.Machine = elf.EM_X86_64
	}
	shstr := newStrtab()
	index := make(map[string]uint16)

	secs := []pending{{}}
	for _, s := range im.Sections {
		size := s.Size
		if size == 0 {
			size = uint64(len(s.Data))
		}
		index[s.Name] = uint16(len(secs))
		secs = append(secs, pending{
			hdr: elf.Section64{
				Name:      shstr.add(s.Name),
				Type:      uint32(s.Type),
				Flags:     uint64(s.Flags),
				Addr:      s.Addr,
				Size:      size,
				Addralign: 16,
			},
			data: s.Data,
		})
	}

	symIndex := make(map[string]uint32)
	if len(im.Symbols) > 0 || len(im.Relas) > 0 {
		str := newStrtab()
		var syms bytes.Buffer
		binary.Write(&syms, binary.LittleEndian, elf.Sym64{})
		for i, s := range im.Symbols {
			shndx := uint16(s.Index)
			if s.Section != "" {
				shndx = index[s.Section]
			}
			symIndex[s.Name] = uint32(i + 1)
			binary.Write(&syms, binary.LittleEndian, elf.Sym64{
				Name:  str.add(s.Name),
				Info:  elf.ST_INFO(s.Bind, s.Type),
				Shndx: shndx,
				Value: s.Value,
				Size:  s.Size,
			})
		}
		symtab := uint32(len(secs))
		secs = append(secs, pending{
			hdr: elf.Section64{
				Name:      shstr.add(".symtab"),
				Type:      uint32(elf.SHT_SYMTAB),
				Size:      uint64(syms.Len()),
				Link:      symtab + 1,
				Info:      1,
				Addralign: 8,
				Entsize:   24,
			},
			data: syms.Bytes(),
		})
		secs = append(secs, pending{
			hdr: elf.Section64{
				Name:      shstr.add(".strtab"),
				Type:      uint32(elf.SHT_STRTAB),
				Size:      uint64(str.buf.Len()),
				Addralign: 1,
			},
			data: str.buf.Bytes(),
		})

		if len(im.Relas) > 0 {
			var rel bytes.Buffer
			for _, r := range im.Relas {
				binary.Write(&rel, binary.LittleEndian, elf.Rela64{
					Off:    r.Offset,
					Info:   elf.R_INFO(symIndex[r.Symbol], uint32(r.Type)),
					Addend: r.Addend,
				})
			}
			secs = append(secs, pending{
				hdr: elf.Section64{
					Name:      shstr.add(".rela.text"),
					Type:      uint32(elf.SHT_RELA),
					Size:      uint64(rel.Len()),
					Link:      symtab,
					Addralign: 8,
					Entsize:   24,
				},
				data: rel.Bytes(),
			})
		}
	}

	shstrndx := uint16(len(secs))
	name := shstr.add(".shstrtab")
	secs = append(secs, pending{
		hdr: elf.Section64{
			Name:      name,
			Type:      uint32(elf.SHT_STRTAB),
			Size:      uint64(shstr.buf.Len()),
			Addralign: 1,
		},
		data: shstr.buf.Bytes(),
	})

	var progs []elf.Prog64
	for _, s := range secs {
		if s.hdr.Flags&uint64(elf.SHF_ALLOC) != 0 && s.hdr.Type != uint32(elf.SHT_NOBITS) && len(s.data) > 0 {
			progs = append(progs, elf.Prog64{})
		}
	}

	off := align(64+56*len(progs), 16)
	p := 0
	for i := range secs {
		s := &secs[i]
		if s.hdr.Type == uint32(elf.SHT_NOBITS) || i == 0 {
			continue
		}
		s.hdr.Off = uint64(off)
		if s.hdr.Flags&uint64(elf.SHF_ALLOC) != 0 && len(s.data) > 0 {
			progs[p] = elf.Prog64{
				Type:   uint32(elf.PT_LOAD),
				Flags:  uint32(elf.PF_R),
				Off:    s.hdr.Off,
				Vaddr:  s.hdr.Addr,
				Paddr:  s.hdr.Addr,
				Filesz: uint64(len(s.data)),
				Memsz:  s.hdr.Size,
				Align:  16,
			}
			p++
		}
		off = align(off+len(s.data), 16)
	}
	shoff := off

	var out bytes.Buffer
	hdr := elf.Header64{
		Type:      uint16(im.Type),
		Machine:   uint16(im.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     im.Entry,
		Shoff:     uint64(shoff),
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     uint16(len(progs)),
		Shentsize: 64,
		Shnum:     uint16(len(secs)),
		Shstrndx:  shstrndx,
	}
	if len(progs) > 0 {
		hdr.Phoff = 64
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	binary.Write(&out, binary.LittleEndian, hdr)
	for _, ph := range progs {
		binary.Write(&out, binary.LittleEndian, ph)
	}
	for _, s := range secs {
		if s.hdr.Off == 0 {
			continue
		}
		pad(&out, int(s.hdr.Off))
		out.Write(s.data)
	}
	pad(&out, shoff)
	for _, s := range secs {
		binary.Write(&out, binary.LittleEndian, s.hdr)
	}
	return out.Bytes()
}

func pad(b *bytes.Buffer, n int) {
	for b.Len() < n {
		b.WriteByte(0)
	}
}

// Write builds im into the file at path.
func Write(path string, im Image) error {
	return os.WriteFile(path, Build(im), 0o644)
}
