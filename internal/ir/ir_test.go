package ir

import (
	"bytes"
	"testing"
)

func TestModelName(t *testing.T) {
	m := New("/usr/bin/true")
	if m.Name != "true" {
		t.Errorf("Name = %q, want %q", m.Name, "true")
	}
	if m.Path != "/usr/bin/true" {
		t.Errorf("Path = %q", m.Path)
	}
	if m.Aux.SectionIndex == nil || m.Aux.SectionProperties == nil || m.Aux.SymbolInfo == nil {
		t.Error("aux tables not initialized")
	}
}

func TestAddByteRange(t *testing.T) {
	tests := []struct {
		name     string
		contents []byte
		size     uint64
		want     []byte
	}{
		{name: "exact", contents: []byte{1, 2, 3}, size: 3, want: []byte{1, 2, 3}},
		{name: "short", contents: []byte{1, 2}, size: 4, want: []byte{1, 2, 0, 0}},
		{name: "long", contents: []byte{1, 2, 3, 4}, size: 2, want: []byte{1, 2}},
		{name: "empty", contents: nil, size: 3, want: []byte{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("a.out")
			s := m.AddSection(".data")
			br := s.AddByteRange(0x4000, tt.contents, tt.size)
			if !bytes.Equal(br.Bytes(), tt.want) {
				t.Errorf("Bytes() = %v, want %v", br.Bytes(), tt.want)
			}
			if br.Size() != tt.size {
				t.Errorf("Size() = %d, want %d", br.Size(), tt.size)
			}
			if br.Section() != s.ID() {
				t.Error("byte range not owned by section")
			}
			if s.ByteRange() != br {
				t.Error("section does not reference its byte range")
			}
		})
	}
}

func TestByteRangeDoesNotAliasInput(t *testing.T) {
	m := New("a.out")
	in := []byte{1, 2, 3}
	br := m.AddSection(".text").AddByteRange(0, in, 3)
	in[0] = 9
	if br.Bytes()[0] != 1 {
		t.Error("byte range aliases caller's slice")
	}
}

func TestByteRangesOn(t *testing.T) {
	m := New("a.out")
	m.AddSection(".data").AddByteRange(0x3000, nil, 0x100)
	m.AddSection(".text").AddByteRange(0x1000, nil, 0x1000)

	tests := []struct {
		addr uint64
		want []string
	}{
		{0x1000, []string{".text"}},
		{0x1fff, []string{".text"}},
		{0x2000, nil},
		{0x30ff, []string{".data"}},
		{0x3100, nil},
		{0x0, nil},
	}
	for _, tt := range tests {
		got := m.ByteRangesOn(tt.addr)
		if len(got) != len(tt.want) {
			t.Errorf("ByteRangesOn(%#x) returned %d ranges, want %d", tt.addr, len(got), len(tt.want))
			continue
		}
		for i, br := range got {
			s, _ := m.Section(br.Section())
			if s.Name != tt.want[i] {
				t.Errorf("ByteRangesOn(%#x)[%d] = %s, want %s", tt.addr, i, s.Name, tt.want[i])
			}
		}
	}

	ranges := m.ByteRanges()
	if len(ranges) != 2 || ranges[0].Address != 0x1000 {
		t.Errorf("ByteRanges() not ordered by address")
	}
}

func TestByteRangeRead(t *testing.T) {
	m := New("a.out")
	br := m.AddSection(".text").AddByteRange(0x10, []byte{1, 2, 3, 4}, 4)

	got, ok := br.Read(0x12, 8)
	if !ok || !bytes.Equal(got, []byte{3, 4}) {
		t.Errorf("Read(0x12, 8) = %v, %v", got, ok)
	}
	if _, ok := br.Read(0x14, 1); ok {
		t.Error("Read past end succeeded")
	}
}

func TestIDsAreUnique(t *testing.T) {
	m := New("a.out")
	s := m.AddSection(".text")
	br := s.AddByteRange(0, nil, 1)
	sym := m.AddSymbol("x")
	blk := br.AddCodeBlock(m, 0, 0)

	seen := map[ID]bool{}
	for _, id := range []ID{s.ID(), br.ID(), sym.ID(), blk.ID()} {
		if id == 0 {
			t.Error("zero ID assigned")
		}
		if seen[id] {
			t.Errorf("duplicate ID %d", id)
		}
		seen[id] = true
	}
}

func TestSymbols(t *testing.T) {
	m := New("a.out")
	m.AddSymbol("undef")
	m.AddSymbolAt(0x1234, "main")

	if _, ok := m.FindSymbols("undef")[0].Address(); ok {
		t.Error("addressless symbol has an address")
	}
	addr, ok := m.FindSymbols("main")[0].Address()
	if !ok || addr != 0x1234 {
		t.Errorf("main address = %#x, %v", addr, ok)
	}
	if len(m.FindSymbols("missing")) != 0 {
		t.Error("found missing symbol")
	}
}

func TestSectionFlags(t *testing.T) {
	m := New("a.out")
	s := m.AddSection(".text")
	s.AddFlag(SectionExecutable)
	s.AddFlag(SectionExecutable)
	if len(s.Flags) != 1 {
		t.Errorf("flags = %v, want one entry", s.Flags)
	}
	if !s.IsFlagSet(SectionExecutable) || s.IsFlagSet(SectionWritable) {
		t.Errorf("flags = %v", s.Flags)
	}
}

func TestEntryPoint(t *testing.T) {
	m := New("a.out")
	br := m.AddSection(".text").AddByteRange(0x1000, nil, 0x1000)
	b := br.AddCodeBlock(m, 0x200, 0)
	m.SetEntryPoint(b)

	if m.EntryPoint() != b {
		t.Fatal("entry point not recorded")
	}
	if b.Address() != 0x1200 {
		t.Errorf("Address() = %#x, want 0x1200", b.Address())
	}
	if len(br.Blocks()) != 1 {
		t.Errorf("byte range holds %d blocks, want 1", len(br.Blocks()))
	}
}
