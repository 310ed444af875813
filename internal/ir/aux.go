package ir

// SectionFlag is a format-independent section property.
type SectionFlag int

const (
	SectionReadable SectionFlag = iota + 1
	SectionWritable
	SectionExecutable
	SectionLoaded
	SectionInitialized
	SectionThreadLocal
)

func (f SectionFlag) String() string {
	switch f {
	case SectionReadable:
		return "Readable"
	case SectionWritable:
		return "Writable"
	case SectionExecutable:
		return "Executable"
	case SectionLoaded:
		return "Loaded"
	case SectionInitialized:
		return "Initialized"
	case SectionThreadLocal:
		return "ThreadLocal"
	default:
		return "Undefined"
	}
}

// SectionProperties are the raw object-specific type and flags of a section.
type SectionProperties struct {
	Type  uint64 `json:"type"`
	Flags uint64 `json:"flags"`
}

// SymbolInfo holds the raw symbol attributes outside the structural model.
type SymbolInfo struct {
	Size         uint64 `json:"size"`
	Type         string `json:"type"`
	Scope        string `json:"scope"`
	Visibility   string `json:"visibility"`
	SectionIndex uint64 `json:"sectionIndex"`
}

// Relocation is one relocation entry as reported by the binary reader.
type Relocation struct {
	Address uint64 `json:"address"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Addend  int64  `json:"addend"`
}

// AuxTables is the set of side tables attached to a Model.
type AuxTables struct {
	// SectionProperties maps a section to its raw (type, flags).
	SectionProperties map[ID]SectionProperties
	// SectionIndex maps an original section index to the section built from it.
	SectionIndex map[uint64]ID
	// SymbolInfo maps a symbol to its raw attributes.
	SymbolInfo map[ID]SymbolInfo

	BinaryType   []string
	Relocations  []Relocation
	Libraries    []string
	LibraryPaths []string
	Version      string
}

func newAuxTables() AuxTables {
	return AuxTables{
		SectionProperties: make(map[ID]SectionProperties),
		SectionIndex:      make(map[uint64]ID),
		SymbolInfo:        make(map[ID]SymbolInfo),
	}
}
