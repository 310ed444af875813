package loader

import (
	"bytes"
	"debug/macho"
	"os"
	"strings"

	"github.com/pkg/errors"

	"zeroir/internal/ir"
)

const (
	machoLoadCmdReqDyld = 0x80000000
	machoLoadCmdMain    = 0x28 | machoLoadCmdReqDyld
	machoLoadCmdRpath   = 0x1c | machoLoadCmdReqDyld

	machoSectionType   = 0xff
	machoZeroFill      = 0x1
	machoGBZeroFill    = 0xc
	machoTLVRegular    = 0x11
	machoTLVZeroFill   = 0x12
	machoAttrPureInstr = 0x80000000
	machoAttrSomeInstr = 0x400
	machoVMProtWrite   = 0x2
)

var machoCpuMap = map[macho.Cpu]ir.ISA{
	macho.Cpu386:   ir.ISAIA32,
	macho.CpuAmd64: ir.ISAX64,
	macho.CpuArm:   ir.ISAARM,
	macho.CpuArm64: ir.ISAARM64,
	macho.CpuPpc:   ir.ISAPPC32,
	macho.CpuPpc64: ir.ISAPPC64,
}

// MachOReader reads thin Mach-O images. Symbol classification is
// ELF-only, so Symbols always returns an empty list.
type MachOReader struct {
	f     *os.File
	file  *macho.File
	entry uint64
}

func NewMachOReader(f *os.File) (*MachOReader, error) {
	file, err := macho.NewFile(f)
	if err != nil {
		return nil, errors.Wrap(err, "open macho")
	}
	bits := 32
	if file.Magic == macho.Magic64 {
		bits = 64
	}
	entry, err := findEntry(file, bits)
	if err != nil {
		return nil, err
	}
	return &MachOReader{f: f, file: file, entry: entry}, nil
}

func findEntry(f *macho.File, bits int) (uint64, error) {
	for _, l := range f.Loads {
		data := l.Raw()
		if len(data) < 8 {
			continue
		}
		cmd := macho.LoadCmd(f.ByteOrder.Uint32(data))
		switch {
		case cmd == macho.LoadCmdUnixThread:
			if bits == 64 && len(data) >= 152 {
				return f.ByteOrder.Uint64(data[144:152]), nil
			}
			if len(data) >= 60 {
				return uint64(f.ByteOrder.Uint32(data[56:60])), nil
			}
		case cmd == machoLoadCmdMain && len(data) >= 16:
			// [8:16] == entry - __TEXT
			text := f.Segment("__TEXT")
			if text == nil {
				return 0, errors.New("found LC_MAIN but did not find __TEXT segment")
			}
			return f.ByteOrder.Uint64(data[8:16]) + text.Addr, nil
		}
	}
	return 0, errors.New("could not find entry point")
}

func (r *MachOReader) Valid() bool           { return r.file != nil }
func (r *MachOReader) Format() ir.FileFormat { return ir.FormatMachO }
func (r *MachOReader) ISA() ir.ISA           { return machoCpuMap[r.file.Cpu] }
func (r *MachOReader) Entry() uint64         { return r.entry }

func (r *MachOReader) Sections() []SectionDesc {
	out := make([]SectionDesc, 0, len(r.file.Sections))
	for i, s := range r.file.Sections {
		desc := SectionDesc{
			Name:    s.Seg + "," + s.Name,
			Address: s.Addr,
			Size:    s.Size,
			Type:    TypeProgBits,
			Index:   uint64(i + 1),
		}
		if seg := r.file.Segment(s.Seg); seg != nil && seg.Memsz > 0 {
			desc.Flags |= FlagAlloc
			if seg.Prot&machoVMProtWrite != 0 {
				desc.Flags |= FlagWrite
			}
		}
		if s.Flags&(machoAttrPureInstr|machoAttrSomeInstr) != 0 {
			desc.Flags |= FlagExecInstr
		}
		switch s.Flags & machoSectionType {
		case machoTLVRegular, machoTLVZeroFill:
			desc.Flags |= FlagTLS
		}
		switch s.Flags & machoSectionType {
		case machoZeroFill, machoGBZeroFill, machoTLVZeroFill:
			desc.Type = TypeNoBits
		default:
			if data, err := s.Data(); err == nil {
				desc.Content = data
			}
		}
		out = append(out, desc)
	}
	return out
}

func (r *MachOReader) Symbols() []SymbolDesc        { return nil }
func (r *MachOReader) Relocations() []ir.Relocation { return nil }

func (r *MachOReader) Libraries() []string {
	libs, err := r.file.ImportedLibraries()
	if err != nil {
		return nil
	}
	return libs
}

// LibraryPaths returns the LC_RPATH entries.
func (r *MachOReader) LibraryPaths() []string {
	var out []string
	for _, l := range r.file.Loads {
		data := l.Raw()
		if len(data) < 12 || r.file.ByteOrder.Uint32(data) != machoLoadCmdRpath {
			continue
		}
		off := r.file.ByteOrder.Uint32(data[8:12])
		if int(off) >= len(data) {
			continue
		}
		path := data[off:]
		if i := bytes.IndexByte(path, 0); i >= 0 {
			path = path[:i]
		}
		out = append(out, string(path))
	}
	return out
}

func (r *MachOReader) BinaryType() string {
	return strings.ToUpper(r.file.Type.String())
}

func (r *MachOReader) Close() error {
	r.file.Close()
	return r.f.Close()
}
