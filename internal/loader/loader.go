// Package loader defines the binary-reader contract consumed by model
// construction and opens files through the matching format reader.
package loader

import (
	"zeroir/internal/ir"
)

// Raw section flag bits. Every reader reports flags with the ELF
// meaning of these bits regardless of the container format.
const (
	FlagWrite     uint64 = 0x1
	FlagAlloc     uint64 = 0x2
	FlagExecInstr uint64 = 0x4
	FlagTLS       uint64 = 0x400
)

// Section types that matter to model construction.
const (
	TypeProgBits uint64 = 0x1
	TypeNoBits   uint64 = 0x8
)

// Symbol section indexes with special meaning.
const (
	SectionUndef     uint64 = 0x0
	SectionLoReserve uint64 = 0xff00
	SectionHiReserve uint64 = 0xffff
	SectionAbs       uint64 = 0xfff1
	SectionCommon    uint64 = 0xfff2
)

// SectionDesc describes one section as found in the binary.
type SectionDesc struct {
	Name    string
	Address uint64
	Size    uint64
	// Content is nil when the section has no bytes in the file.
	Content []byte
	Type    uint64
	Flags   uint64
	Index   uint64
}

// Allocated reports whether the section occupies memory at run time.
func (s SectionDesc) Allocated() bool {
	return s.Flags&FlagAlloc != 0
}

// SymbolDesc describes one symbol as found in the binary.
type SymbolDesc struct {
	Name         string
	Address      uint64
	Size         uint64
	Type         string
	Scope        string
	Visibility   string
	SectionIndex uint64
}

// Reader exposes the parts of a binary needed to build a model.
type Reader interface {
	// Valid reports whether the binary was parsed successfully.
	Valid() bool
	Format() ir.FileFormat
	ISA() ir.ISA
	Entry() uint64
	Sections() []SectionDesc
	Symbols() []SymbolDesc
	Relocations() []ir.Relocation
	Libraries() []string
	LibraryPaths() []string
	BinaryType() string
	Close() error
}

// invalid is returned for files no reader understands.
type invalid struct {
	err error
}

// Invalid returns a reader that reports err as the reason it is not valid.
func Invalid(err error) Reader {
	return invalid{err: err}
}

// Reason returns why r is not valid, or nil.
func Reason(r Reader) error {
	if inv, ok := r.(invalid); ok {
		return inv.err
	}
	return nil
}

func (invalid) Valid() bool                  { return false }
func (invalid) Format() ir.FileFormat        { return ir.FormatUndefined }
func (invalid) ISA() ir.ISA                  { return ir.ISAUndefined }
func (invalid) Entry() uint64                { return 0 }
func (invalid) Sections() []SectionDesc      { return nil }
func (invalid) Symbols() []SymbolDesc        { return nil }
func (invalid) Relocations() []ir.Relocation { return nil }
func (invalid) Libraries() []string          { return nil }
func (invalid) LibraryPaths() []string       { return nil }
func (invalid) BinaryType() string           { return "" }
func (invalid) Close() error                 { return nil }
