package disasm

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/arch/x86/x86asm"

	"zeroir/internal/ir"
	"zeroir/internal/x64"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		mode  int
		code  []byte
		want  string
		shape string
	}{
		{"ret", 64, []byte{0xc3}, "ret", "Ret"},
		{"nop", 64, []byte{0x90}, "nop", "ZeroOp"},
		{"mov imm32", 64, []byte{0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00}, "mov\trax\t0x1", "TwoOp64_32"},
		{"mov imm64", 64, []byte{0x48, 0xb8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, "mov\trax\t0x1122334455667788", "TwoOp64"},
		{"add regs", 64, []byte{0x48, 0x01, 0xd8}, "add\trax\trbx", "TwoOp64"},
		{"push", 64, []byte{0x55}, "push\trbp", "OneOp64"},
		{"push segment", 64, []byte{0x0f, 0xa0}, "push\tfs", "OneOp16"},
		{"lea", 64, []byte{0x48, 0x8d, 0x45, 0xf8}, "lea\trax\tqword ptr [rbp-0x8]", "Lea64"},
		{"shl imm8", 64, []byte{0x48, 0xc1, 0xe0, 0x04}, "shl\trax\t0x4", "TwoOp64_8"},
		{"out imm8", 64, []byte{0xe6, 0x10}, "out\t0x10\tal", "TwoOp8"},
		{"imul imm8", 64, []byte{0x48, 0x6b, 0xc0, 0x10}, "imul\trax\trax\t0x10", "ThreeOp64_64_8"},
		{"ret imm16", 64, []byte{0xc2, 0x08, 0x00}, "ret\t0x8", "OneOp16"},
		{"enter", 64, []byte{0xc8, 0x10, 0x00, 0x01}, "enter\t0x10\t0x1", "TwoOp16_8"},
		{"call rel", 64, []byte{0xe8, 0x00, 0x00, 0x00, 0x00}, "call\t0x1005", "OneOp64"},
		{"endbr64", 64, []byte{0xf3, 0x0f, 0x1e, 0xfa}, "endbr64", "ZeroOp"},
		{"endbr32", 32, []byte{0xf3, 0x0f, 0x1e, 0xfb}, "endbr32", "ZeroOp"},
		{"fild m32", 64, []byte{0xdb, 0x00}, "fild\tdword ptr [rax]", "OneOp32"},
		{"fld m64", 64, []byte{0xdd, 0x00}, "fld\tqword ptr [rax]", "OneOp64"},
		{"fld m80", 64, []byte{0xdb, 0x28}, "fld\ttbyte ptr [rax]", "OneOp80"},
		{"fstp m80", 64, []byte{0xdb, 0x38}, "fstp\ttbyte ptr [rax]", "OneOp80"},
		{"fbld", 64, []byte{0xdf, 0x20}, "fbld\ttbyte ptr [rax]", "OneOp80"},
		{"fadd st", 64, []byte{0xd8, 0xc1}, "fadd\tst(0)\tst(1)", "TwoOpFloat"},
		{"fxsave", 64, []byte{0x0f, 0xae, 0x00}, "fxsave\t[rax]", "Fxsave"},
		{"fxsave64", 64, []byte{0x48, 0x0f, 0xae, 0x00}, "fxsave64\t[rax]", "Fxsave64"},
		{"invlpg", 64, []byte{0x0f, 0x01, 0x38}, "invlpg\tbyte ptr [rax]", "Invlpg"},
		{"lgdt", 64, []byte{0x0f, 0x01, 0x10}, "lgdt\ttbyte ptr [rax]", "OneOp80"},
		{"lcall m16:32", 64, []byte{0xff, 0x18}, "lcall\tfword ptr [rax]", "FarIndirect32"},
		{"lcall ptr16:32", 32, []byte{0x9a, 0x00, 0x20, 0x00, 0x00, 0x10, 0x00}, "lcall\t0x10:0x2000", "FarImmediate"},
		{"rep stosq", 64, []byte{0xf3, 0x48, 0xab}, "stosq\tqword ptr es:[rdi]\trax", "TwoOp64"},
		{"rep movsb", 64, []byte{0xf3, 0xa4}, "movsb\tbyte ptr es:[rdi]\tbyte ptr ds:[rsi]", "TwoOp8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode(tt.code, 0x1000, tt.mode)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if in.Len != len(tt.code) {
				t.Errorf("Len = %d, want %d", in.Len, len(tt.code))
			}
			if got := in.Canonical().ResultTabs(); got != tt.want {
				t.Errorf("ResultTabs() = %q, want %q", got, tt.want)
			}
			if got := x64.ShapeName(in.Node); got != tt.shape {
				t.Errorf("ShapeName() = %q, want %q", got, tt.shape)
			}
		})
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	// A truncated call decodes as a bare one-byte prefix.
	if _, err := Decode([]byte{0xe8, 0x00}, 0x1000, 64); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("truncated call: err = %v, want ErrUnknownOpcode", err)
	}
	if _, err := fromX86(x86asm.Inst{Len: 1}, 0x1000); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("zero op: err = %v, want ErrUnknownOpcode", err)
	}
}

func TestSweepEndbr(t *testing.T) {
	s := Sweep([]byte{0xf3, 0x0f, 0x1e, 0xfa, 0x55, 0xc3}, 0x1000, 64)
	want := []string{"endbr64", "push rbp", "ret"}
	if len(s) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(s), len(want), s)
	}
	for i, in := range s.Canonical() {
		if in.Result() != want[i] {
			t.Errorf("inst %d = %q, want %q", i, in.Result(), want[i])
		}
	}
	if s[1].VA != 0x1004 {
		t.Errorf("push at %#x, want 0x1004", s[1].VA)
	}
}

func TestMemWidth(t *testing.T) {
	tests := []struct {
		name string
		inst x86asm.Inst
		op   string
		args []x86asm.Arg
		want x64.Width
	}{
		{"reported", x86asm.Inst{MemBytes: 4, Mode: 64}, "MOV", nil, x64.W32},
		{"stosw", x86asm.Inst{Mode: 64}, "STOSW", nil, x64.W16},
		{"cmpsd", x86asm.Inst{Mode: 32}, "CMPSD", nil, x64.W32},
		{"insb", x86asm.Inst{Mode: 64}, "INSB", nil, x64.W8},
		{"fbstp", x86asm.Inst{Mode: 64}, "FBSTP", nil, x64.W80},
		{"sidt 64", x86asm.Inst{Mode: 64}, "SIDT", nil, x64.W80},
		{"lidt 32", x86asm.Inst{Mode: 32}, "LIDT", nil, x64.W48},
		{"paired register", x86asm.Inst{Mode: 64}, "XCHG", []x86asm.Arg{x86asm.Mem{Base: x86asm.RAX}, x86asm.ECX}, x64.W32},
		{"unknown", x86asm.Inst{Mode: 64}, "CLFLUSH", []x86asm.Arg{x86asm.Mem{Base: x86asm.RAX}}, x64.WidthNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := memWidth(tt.inst, tt.op, tt.args); got != tt.want {
				t.Errorf("memWidth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepBadBytes(t *testing.T) {
	// The trailing call is truncated.
	s := Sweep([]byte{0x90, 0xc3, 0xe8, 0x00}, 0x400000, 64)
	if len(s) != 4 {
		t.Fatalf("len = %d, want 4: %+v", len(s), s)
	}
	for _, in := range s[2:] {
		if in.Len != 1 {
			t.Errorf("bad byte at %#x has Len %d", in.VA, in.Len)
		}
		if _, ok := in.Node.(x64.Unknown); !ok {
			t.Errorf("bad byte node = %T, want Unknown", in.Node)
		}
	}
	got := s.Canonical()
	if got[2].Supported() || got[3].Supported() {
		t.Errorf("bad bytes canonicalized as %q, %q", got[2].Name, got[3].Name)
	}
	if got[1].Name != "ret" || got[1].Address != 0x400001 {
		t.Errorf("ret = %+v", got[1])
	}
}

func TestSweepModel(t *testing.T) {
	m := ir.New("/tmp/a.out")
	m.ISA = ir.ISAX64

	text := m.AddSection(".text")
	text.AddFlag(ir.SectionExecutable)
	text.AddByteRange(0x2000, []byte{0x55, 0xc3}, 2)

	ini := m.AddSection(".init")
	ini.AddFlag(ir.SectionExecutable)
	ini.AddByteRange(0x1000, []byte{0x90}, 1)

	data := m.AddSection(".data")
	data.AddByteRange(0x3000, []byte{0xc3}, 1)

	s, err := SweepModel(context.Background(), m, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	var vas []uint64
	for _, in := range s {
		vas = append(vas, in.VA)
	}
	want := []uint64{0x1000, 0x2000, 0x2001}
	if len(vas) != len(want) {
		t.Fatalf("addresses = %#x, want %#x", vas, want)
	}
	for i := range want {
		if vas[i] != want[i] {
			t.Errorf("addresses = %#x, want %#x", vas, want)
			break
		}
	}
}

func TestSweepModelISA(t *testing.T) {
	m := ir.New("arm.elf")
	m.ISA = ir.ISAARM64
	if _, err := SweepModel(context.Background(), m, 0, 0); err == nil {
		t.Fatal("expected error for ARM64 model")
	}
}

func TestSweepModelForcedMode(t *testing.T) {
	m := ir.New("arm.elf")
	m.ISA = ir.ISAARM64
	text := m.AddSection(".text")
	text.AddFlag(ir.SectionExecutable)
	text.AddByteRange(0x1000, []byte{0x55, 0xc3}, 2)

	s, err := SweepModel(context.Background(), m, 32, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Canonical(); len(got) != 2 || got[0].Result() != "push ebp" {
		t.Errorf("forced 32-bit sweep = %+v", got)
	}
	if m.ISA != ir.ISAARM64 {
		t.Errorf("ISA = %v, model was modified", m.ISA)
	}
}

func TestRegName(t *testing.T) {
	tests := []struct {
		reg  x86asm.Reg
		want string
	}{
		{x86asm.R8L, "r8d"},
		{x86asm.SIB, "sil"},
		{x86asm.R9B, "r9b"},
		{x86asm.RAX, "rax"},
	}
	for _, tt := range tests {
		if got := regName(tt.reg); got != tt.want {
			t.Errorf("regName(%v) = %q, want %q", tt.reg, got, tt.want)
		}
	}
}
