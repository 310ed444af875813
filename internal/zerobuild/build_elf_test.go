package zerobuild

import (
	"debug/elf"
	"errors"
	"path/filepath"
	"testing"

	"zeroir/internal/elfx/elftest"
	"zeroir/internal/ir"
)

func TestBuildELFFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello")
	err := elftest.Write(path, elftest.Image{
		Entry: 0x401001,
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: []byte{0x90, 0x55, 0xc3}},
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402000, Size: 8},
		},
		Symbols: []elftest.Symbol{
			{Name: "_start", Value: 0x401001, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: ".text"},
			{Name: "abs", Value: 0x10, Bind: elf.STB_LOCAL, Type: elf.STT_NOTYPE, Index: elf.SHN_ABS},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var diags []Diagnostic
	m, err := newTestBuilder(&diags).Build(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "hello" || m.Format != ir.FormatELF || m.ISA != ir.ISAX64 {
		t.Errorf("model = %s %v %v", m.Name, m.Format, m.ISA)
	}
	if len(m.Sections()) != 2 {
		t.Errorf("sections = %d, want 2", len(m.Sections()))
	}
	bss, ok := m.SectionByName(".bss")
	if !ok || bss.ByteRange().Size() != 8 || bss.IsFlagSet(ir.SectionInitialized) {
		t.Errorf(".bss = %+v", bss)
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none", diags)
	}
	entry := m.EntryPoint()
	if entry == nil || entry.Offset != 1 || entry.Address() != 0x401001 {
		t.Errorf("entry = %+v", entry)
	}
	if syms := m.FindSymbols("abs"); len(syms) != 1 {
		t.Errorf("abs symbols = %d", len(syms))
	} else if _, ok := syms[0].Address(); ok {
		t.Error("absolute symbol has an address")
	}
	if got := m.Aux.BinaryType; len(got) != 1 || got[0] != "EXEC" {
		t.Errorf("binary type = %v", got)
	}
}

func TestBuildNotABinary(t *testing.T) {
	var diags []Diagnostic
	_, err := newTestBuilder(&diags).Build(filepath.Join("testdata", "missing"))
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}
