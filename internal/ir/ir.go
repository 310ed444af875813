// Package ir holds the structural model of one binary: sections, their
// byte ranges, symbols, the entry block and the auxiliary tables.
//
// Entities live in an arena owned by the Model and are addressed by
// stable opaque IDs. Auxiliary data is stored in ordinary ID-keyed maps.
package ir

import (
	"path/filepath"
	"sort"
)

// ID identifies an entity within one Model. The zero ID is never assigned.
type ID uint32

// FileFormat is the container format of a binary.
type FileFormat int

const (
	FormatUndefined FileFormat = iota
	FormatELF
	FormatPE
	FormatMachO
	FormatRaw
)

func (f FileFormat) String() string {
	switch f {
	case FormatELF:
		return "ELF"
	case FormatPE:
		return "PE"
	case FormatMachO:
		return "MACHO"
	case FormatRaw:
		return "RAW"
	default:
		return "UNDEFINED"
	}
}

// ISA is the instruction set of a binary.
type ISA int

const (
	ISAUndefined ISA = iota
	ISAIA32
	ISAX64
	ISAARM
	ISAARM64
	ISAPPC32
	ISAPPC64
	ISAMIPS32
	ISAMIPS64
)

func (i ISA) String() string {
	switch i {
	case ISAIA32:
		return "IA32"
	case ISAX64:
		return "X64"
	case ISAARM:
		return "ARM"
	case ISAARM64:
		return "ARM64"
	case ISAPPC32:
		return "PPC32"
	case ISAPPC64:
		return "PPC64"
	case ISAMIPS32:
		return "MIPS32"
	case ISAMIPS64:
		return "MIPS64"
	default:
		return "UNDEFINED"
	}
}

// Model is the structural container for one parsed binary.
type Model struct {
	Path   string
	Name   string
	Format FileFormat
	ISA    ISA
	Aux    AuxTables

	sections []*Section
	symbols  []*Symbol
	ranges   []*ByteRange
	blocks   []*CodeBlock
	entry    *CodeBlock
	nextID   ID
}

// New returns an empty model for the binary at path. The model name is
// the base name of the path.
func New(path string) *Model {
	return &Model{
		Path: path,
		Name: filepath.Base(path),
		Aux:  newAuxTables(),
	}
}

func (m *Model) allocID() ID {
	m.nextID++
	return m.nextID
}

// AddSection appends a new, empty section.
func (m *Model) AddSection(name string) *Section {
	s := &Section{id: m.allocID(), Name: name, model: m}
	m.sections = append(m.sections, s)
	return s
}

// Sections returns the sections in creation order.
func (m *Model) Sections() []*Section {
	return m.sections
}

// Section returns the section with the given id.
func (m *Model) Section(id ID) (*Section, bool) {
	for _, s := range m.sections {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// SectionByName returns the first section with the given name.
func (m *Model) SectionByName(name string) (*Section, bool) {
	for _, s := range m.sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// AddSymbol adds a symbol that has no address.
func (m *Model) AddSymbol(name string) *Symbol {
	sym := &Symbol{id: m.allocID(), Name: name}
	m.symbols = append(m.symbols, sym)
	return sym
}

// AddSymbolAt adds a symbol referring to addr.
func (m *Model) AddSymbolAt(addr uint64, name string) *Symbol {
	sym := &Symbol{id: m.allocID(), Name: name, addr: addr, hasAddr: true}
	m.symbols = append(m.symbols, sym)
	return sym
}

// Symbols returns the symbols in creation order.
func (m *Model) Symbols() []*Symbol {
	return m.symbols
}

// FindSymbols returns every symbol called name.
func (m *Model) FindSymbols(name string) []*Symbol {
	var out []*Symbol
	for _, sym := range m.symbols {
		if sym.Name == name {
			out = append(out, sym)
		}
	}
	return out
}

// ByteRanges returns every byte range in the model, ordered by address.
func (m *Model) ByteRanges() []*ByteRange {
	out := make([]*ByteRange, len(m.ranges))
	copy(out, m.ranges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// ByteRangesOn returns the byte ranges whose [base, base+length) contains
// addr, ordered by address.
func (m *Model) ByteRangesOn(addr uint64) []*ByteRange {
	var out []*ByteRange
	for _, br := range m.ByteRanges() {
		if br.Contains(addr) {
			out = append(out, br)
		}
	}
	return out
}

// SetEntryPoint records b as the model's entry block.
func (m *Model) SetEntryPoint(b *CodeBlock) {
	m.entry = b
}

// EntryPoint returns the entry block, or nil if none has been set.
func (m *Model) EntryPoint() *CodeBlock {
	return m.entry
}

// Section is a named, allocated region of the binary.
type Section struct {
	Name    string
	Address uint64
	Size    uint64
	Flags   []SectionFlag

	id    ID
	model *Model
	bytes *ByteRange
}

// ID returns the section's identity.
func (s *Section) ID() ID { return s.id }

// AddFlag records a section flag once.
func (s *Section) AddFlag(f SectionFlag) {
	if s.IsFlagSet(f) {
		return
	}
	s.Flags = append(s.Flags, f)
}

// IsFlagSet reports whether f has been recorded.
func (s *Section) IsFlagSet(f SectionFlag) bool {
	for _, have := range s.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// AddByteRange attaches a byte range holding contents at addr. The range
// length is size; contents longer than size are truncated and shorter
// contents are zero-extended.
func (s *Section) AddByteRange(addr uint64, contents []byte, size uint64) *ByteRange {
	buf := make([]byte, size)
	copy(buf, contents)
	br := &ByteRange{id: s.model.allocID(), Address: addr, section: s.id, bytes: buf}
	s.Address = addr
	s.Size = size
	s.bytes = br
	s.model.ranges = append(s.model.ranges, br)
	return br
}

// ByteRange returns the section's byte range, or nil before one is added.
func (s *Section) ByteRange() *ByteRange {
	return s.bytes
}

// ByteRange is a contiguous run of bytes at a base address.
type ByteRange struct {
	Address uint64

	id      ID
	section ID
	bytes   []byte
	blocks  []*CodeBlock
}

// ID returns the byte range's identity.
func (br *ByteRange) ID() ID { return br.id }

// Section returns the id of the owning section.
func (br *ByteRange) Section() ID { return br.section }

// Size returns the number of bytes in the range.
func (br *ByteRange) Size() uint64 { return uint64(len(br.bytes)) }

// Bytes returns the range contents. The slice must not be modified.
func (br *ByteRange) Bytes() []byte { return br.bytes }

// Contains reports whether addr lies in [Address, Address+Size).
func (br *ByteRange) Contains(addr uint64) bool {
	return addr >= br.Address && addr-br.Address < br.Size()
}

// Read returns up to n bytes starting at addr, or false if addr is
// outside the range.
func (br *ByteRange) Read(addr uint64, n int) ([]byte, bool) {
	if !br.Contains(addr) || n < 0 {
		return nil, false
	}
	off := addr - br.Address
	end := off + uint64(n)
	if end > br.Size() {
		end = br.Size()
	}
	return br.bytes[off:end], true
}

// Blocks returns the code blocks placed in the range.
func (br *ByteRange) Blocks() []*CodeBlock { return br.blocks }

// AddCodeBlock places a code block at offset within the range. The
// range contains the block by offset; it does not own its bytes.
func (br *ByteRange) AddCodeBlock(m *Model, offset, size uint64) *CodeBlock {
	b := &CodeBlock{id: m.allocID(), ByteRange: br.id, Offset: offset, Size: size, address: br.Address + offset}
	br.blocks = append(br.blocks, b)
	m.blocks = append(m.blocks, b)
	return b
}

// CodeBlock marks code starting at Offset within a byte range.
type CodeBlock struct {
	ByteRange ID
	Offset    uint64
	Size      uint64

	id      ID
	address uint64
}

// ID returns the block's identity.
func (b *CodeBlock) ID() ID { return b.id }

// Address returns the absolute address of the block.
func (b *CodeBlock) Address() uint64 { return b.address }

// Symbol is a named reference, with or without an address.
type Symbol struct {
	Name string

	id      ID
	addr    uint64
	hasAddr bool
}

// ID returns the symbol's identity.
func (s *Symbol) ID() ID { return s.id }

// Address returns the symbol address and whether it has one.
func (s *Symbol) Address() (uint64, bool) {
	return s.addr, s.hasAddr
}
