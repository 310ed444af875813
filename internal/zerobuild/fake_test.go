package zerobuild

import (
	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// fakeReader is an in-memory loader.Reader.
type fakeReader struct {
	valid    bool
	format   ir.FileFormat
	isa      ir.ISA
	entry    uint64
	sections []loader.SectionDesc
	symbols  []loader.SymbolDesc
	relocs   []ir.Relocation
	libs     []string
	paths    []string
	binType  string
	closed   bool
}

func (f *fakeReader) Valid() bool                    { return f.valid }
func (f *fakeReader) Format() ir.FileFormat          { return f.format }
func (f *fakeReader) ISA() ir.ISA                    { return f.isa }
func (f *fakeReader) Entry() uint64                  { return f.entry }
func (f *fakeReader) Sections() []loader.SectionDesc { return f.sections }
func (f *fakeReader) Symbols() []loader.SymbolDesc   { return f.symbols }
func (f *fakeReader) Relocations() []ir.Relocation   { return f.relocs }
func (f *fakeReader) Libraries() []string            { return f.libs }
func (f *fakeReader) LibraryPaths() []string         { return f.paths }
func (f *fakeReader) BinaryType() string             { return f.binType }
func (f *fakeReader) Close() error                   { f.closed = true; return nil }

func newELFReader() *fakeReader {
	return &fakeReader{
		valid:  true,
		format: ir.FormatELF,
		isa:    ir.ISAX64,
		entry:  0x1200,
		sections: []loader.SectionDesc{
			{Name: "", Index: 0},
			{
				Name:    ".text",
				Address: 0x1000,
				Size:    0x1000,
				Content: []byte{0x55, 0x48, 0x89, 0xe5, 0xc3},
				Type:    loader.TypeProgBits,
				Flags:   loader.FlagAlloc | loader.FlagExecInstr,
				Index:   1,
			},
			{
				Name:    ".data",
				Address: 0x3000,
				Size:    4,
				Content: []byte{1, 2, 3, 4},
				Type:    loader.TypeProgBits,
				Flags:   loader.FlagAlloc | loader.FlagWrite,
				Index:   2,
			},
			{
				Name:    ".bss",
				Address: 0x3004,
				Size:    0x10,
				Type:    loader.TypeNoBits,
				Flags:   loader.FlagAlloc | loader.FlagWrite,
				Index:   3,
			},
			{
				Name:    ".comment",
				Size:    3,
				Content: []byte("gcc"),
				Type:    loader.TypeProgBits,
				Index:   4,
			},
		},
		symbols: []loader.SymbolDesc{
			{Name: "main", Address: 0x1200, Size: 5, Type: "FUNC", Scope: "GLOBAL", Visibility: "DEFAULT", SectionIndex: 1},
			{Name: "puts", Type: "FUNC", Scope: "GLOBAL", Visibility: "DEFAULT", SectionIndex: loader.SectionUndef},
			{Name: "crt.c", Address: 0, Type: "FILE", Scope: "LOCAL", Visibility: "DEFAULT", SectionIndex: loader.SectionAbs},
			{Name: "counter", Address: 0x3000, Size: 4, Type: "OBJECT", Scope: "LOCAL", Visibility: "HIDDEN", SectionIndex: 2},
		},
		relocs:  []ir.Relocation{{Address: 0x3ff8, Type: "GLOB_DAT", Name: "puts", Addend: 0}},
		libs:    []string{"libc.so.6"},
		paths:   []string{"/opt/lib"},
		binType: "DYN",
	}
}
