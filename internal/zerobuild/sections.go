package zerobuild

import (
	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// BuildSections adds one section and byte range per allocated section
// descriptor. Non-allocated sections are skipped entirely.
func (b *Builder) BuildSections(m *ir.Model, r loader.Reader) {
	for _, desc := range r.Sections() {
		if !desc.Allocated() {
			continue
		}
		section := m.AddSection(desc.Name)
		for _, flag := range sectionFlags(desc) {
			section.AddFlag(flag)
		}

		if desc.Content != nil {
			content := desc.Content
			if uint64(len(content)) < desc.Size {
				b.sink(Diagnostic{
					Section: desc.Name,
					Start:   desc.Address + uint64(len(content)),
					End:     desc.Address + desc.Size,
				})
			}
			section.AddByteRange(desc.Address, content, desc.Size)
		} else {
			section.AddByteRange(desc.Address, nil, desc.Size)
		}

		m.Aux.SectionProperties[section.ID()] = ir.SectionProperties{Type: desc.Type, Flags: desc.Flags}
		m.Aux.SectionIndex[desc.Index] = section.ID()
	}
}

func sectionFlags(desc loader.SectionDesc) []ir.SectionFlag {
	var flags []ir.SectionFlag
	if desc.Flags&loader.FlagAlloc != 0 {
		flags = append(flags, ir.SectionReadable, ir.SectionLoaded)
	}
	if desc.Flags&loader.FlagWrite != 0 {
		flags = append(flags, ir.SectionWritable)
	}
	if desc.Flags&loader.FlagExecInstr != 0 {
		flags = append(flags, ir.SectionExecutable)
	}
	if desc.Content != nil && desc.Type != loader.TypeNoBits {
		flags = append(flags, ir.SectionInitialized)
	}
	if desc.Flags&loader.FlagTLS != 0 {
		flags = append(flags, ir.SectionThreadLocal)
	}
	return flags
}
