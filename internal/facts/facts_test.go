package facts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zeroir/internal/x64"
)

func TestWrite(t *testing.T) {
	rax := x64.RegDirect{Width: x64.W64, Reg: "rax"}
	insts := []x64.Instruction{
		x64.Canonicalize(x64.TwoOp{Instr: "mov", Ops: [2]x64.Operand{rax, x64.Immediate{Width: x64.W32, Value: 7}}}, 0x1000, 7),
		x64.Canonicalize(x64.Unknown{Instr: "vaddps"}, 0x1007, 4),
		x64.Canonicalize(x64.OneOp{Instr: "push", Ops: [1]x64.Operand{rax}}, 0x100b, 1),
		x64.Canonicalize(x64.Control{Class: x64.Ret}, 0x100c, 1),
		x64.Canonicalize(x64.OneOp{Instr: "push", Ops: [1]x64.Operand{x64.SRegDirect{Width: x64.W16, Reg: "fs"}}}, 0x100d, 2),
	}
	dir := filepath.Join(t.TempDir(), "out")
	table := x64.NewOperatorTable()
	if err := Write(dir, insts, table); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		file string
		want string
	}{
		{InstructionFile, "0x1000\t7\tmov\t1\t2\t0\n0x100b\t1\tpush\t1\t0\t0\n0x100c\t1\tret\t0\t0\t0\n0x100d\t2\tpush\t3\t0\t0\n"},
		{RegDirectFile, "1\trax\t64\n"},
		{SRegDirectFile, "3\tfs\t16\n"},
		{ImmediateFile, "2\t7\t32\n"},
		{UnsupportedFile, "0x1007\t4\n"},
		{FarPtrFile, ""},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, tt.file))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("%s =\n%q\nwant\n%q", tt.file, data, tt.want)
			}
		})
	}
}

func TestWriteIndirect(t *testing.T) {
	addr := x64.Addr{Size: x64.W64, Base: "rbp", Index: "rcx", Scale: 4, Disp: -16}
	insts := []x64.Instruction{
		x64.Canonicalize(x64.OneOp{Instr: "fild", Ops: [1]x64.Operand{x64.FloatInt{Width: x64.W32, Addr: addr}}}, 0, 3),
		x64.Canonicalize(x64.FarImmediate{Instr: "ljmp", Width: x64.W48, Segment: 8, Offset: 0x10}, 3, 7),
	}
	dir := t.TempDir()
	if err := Write(dir, insts, x64.NewOperatorTable()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, IndirectFile))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(data)), "1\t\trbp\trcx\t4\t-16\t32\tint"; got != want {
		t.Errorf("indirect = %q, want %q", got, want)
	}
	data, err = os.ReadFile(filepath.Join(dir, FarPtrFile))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(data)), "2\t8\t16\t48"; got != want {
		t.Errorf("farptr = %q, want %q", got, want)
	}
}
