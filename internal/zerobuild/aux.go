package zerobuild

import (
	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// AddAuxiliaryTables copies the binary-level metadata into the model.
func (b *Builder) AddAuxiliaryTables(m *ir.Model, r loader.Reader) {
	m.Aux.BinaryType = []string{r.BinaryType()}
	m.Aux.Relocations = append([]ir.Relocation(nil), r.Relocations()...)
	m.Aux.Libraries = append([]string(nil), r.Libraries()...)
	m.Aux.LibraryPaths = append([]string(nil), r.LibraryPaths()...)
	m.Aux.Version = b.version
}
