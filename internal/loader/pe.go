package loader

import (
	"debug/pe"
	"os"

	"github.com/pkg/errors"

	"zeroir/internal/ir"
)

const (
	peScnCntUninitialized = 0x00000080
	peScnMemExecute       = 0x20000000
	peScnMemWrite         = 0x80000000
	peFileDLL             = 0x2000
)

var peMachineMap = map[uint16]ir.ISA{
	pe.IMAGE_FILE_MACHINE_I386:  ir.ISAIA32,
	pe.IMAGE_FILE_MACHINE_AMD64: ir.ISAX64,
	pe.IMAGE_FILE_MACHINE_ARMNT: ir.ISAARM,
	pe.IMAGE_FILE_MACHINE_ARM64: ir.ISAARM64,
}

// PEReader reads PE/COFF images. Symbol classification is ELF-only, so
// Symbols always returns an empty list.
type PEReader struct {
	f         *os.File
	file      *pe.File
	imageBase uint64
	entry     uint64
}

func NewPEReader(f *os.File) (*PEReader, error) {
	file, err := pe.NewFile(f)
	if err != nil {
		return nil, errors.Wrap(err, "open pe")
	}
	r := &PEReader{f: f, file: file}
	switch oh := file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		r.imageBase = uint64(oh.ImageBase)
		r.entry = r.imageBase + uint64(oh.AddressOfEntryPoint)
	case *pe.OptionalHeader64:
		r.imageBase = oh.ImageBase
		r.entry = r.imageBase + uint64(oh.AddressOfEntryPoint)
	default:
		return nil, errors.New("pe image has no optional header")
	}
	return r, nil
}

func (r *PEReader) Valid() bool           { return r.file != nil }
func (r *PEReader) Format() ir.FileFormat { return ir.FormatPE }
func (r *PEReader) ISA() ir.ISA           { return peMachineMap[r.file.Machine] }
func (r *PEReader) Entry() uint64         { return r.entry }

func (r *PEReader) Sections() []SectionDesc {
	out := make([]SectionDesc, 0, len(r.file.Sections))
	for i, s := range r.file.Sections {
		size := uint64(s.VirtualSize)
		if size == 0 {
			size = uint64(s.Size)
		}
		desc := SectionDesc{
			Name:    s.Name,
			Address: r.imageBase + uint64(s.VirtualAddress),
			Size:    size,
			Type:    TypeProgBits,
			Flags:   FlagAlloc,
			Index:   uint64(i + 1),
		}
		if s.Characteristics&peScnMemWrite != 0 {
			desc.Flags |= FlagWrite
		}
		if s.Characteristics&peScnMemExecute != 0 {
			desc.Flags |= FlagExecInstr
		}
		if s.Size == 0 && s.Characteristics&peScnCntUninitialized != 0 {
			desc.Type = TypeNoBits
		} else if data, err := s.Data(); err == nil {
			if uint64(len(data)) > size {
				data = data[:size]
			}
			desc.Content = data
		}
		out = append(out, desc)
	}
	return out
}

func (r *PEReader) Symbols() []SymbolDesc        { return nil }
func (r *PEReader) Relocations() []ir.Relocation { return nil }

func (r *PEReader) Libraries() []string {
	libs, err := r.file.ImportedLibraries()
	if err != nil {
		return nil
	}
	return libs
}

func (r *PEReader) LibraryPaths() []string { return nil }

func (r *PEReader) BinaryType() string {
	if r.file.Characteristics&peFileDLL != 0 {
		return "DLL"
	}
	return "EXEC"
}

func (r *PEReader) Close() error {
	r.file.Close()
	return r.f.Close()
}
