// Package disasm decodes x86 machine code into the x64 instruction
// grammar and sweeps the executable sections of a model.
package disasm

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"

	"zeroir/internal/x64"
)

// Inst is one decoded instruction.
type Inst struct {
	VA   uint64   // virtual address of instruction
	Len  int      // encoded length in bytes
	Text string   // Intel syntax listing from the decoder
	Node x64.Node // grammar shape
}

// Canonical returns the canonical mnemonic and operand form.
func (i Inst) Canonical() x64.Instruction {
	return x64.Canonicalize(i.Node, i.VA, i.Len)
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Canonical canonicalizes every instruction in order.
func (s Stream) Canonical() []x64.Instruction {
	out := make([]x64.Instruction, len(s))
	for i, in := range s {
		out[i] = in.Canonical()
	}
	return out
}

// ErrUnknownOpcode is returned when the decoder consumed bytes without
// producing an operation, as it does for truncated or unrecognised
// instructions behind a prefix.
var ErrUnknownOpcode = errors.New("disasm: unknown opcode")

// Decode decodes the instruction at the start of code, located at addr,
// in the given mode (16, 32 or 64).
func Decode(code []byte, addr uint64, mode int) (Inst, error) {
	if name, ok := endbr(code); ok {
		return Inst{VA: addr, Len: 4, Text: name, Node: x64.ZeroOp{Instr: name}}, nil
	}
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return Inst{}, err
	}
	return fromX86(inst, addr)
}

func fromX86(inst x86asm.Inst, addr uint64) (Inst, error) {
	if inst.Op == 0 {
		return Inst{}, errors.Wrapf(ErrUnknownOpcode, "%#x", addr)
	}
	return Inst{
		VA:   addr,
		Len:  inst.Len,
		Text: x86asm.IntelSyntax(inst, addr, nil),
		Node: toNode(inst, addr),
	}, nil
}

// endbr recognises the CET branch targets, which the decoder does not
// know: F3 0F 1E FA (endbr64) and F3 0F 1E FB (endbr32).
func endbr(code []byte) (string, bool) {
	if len(code) < 4 || code[0] != 0xf3 || code[1] != 0x0f || code[2] != 0x1e {
		return "", false
	}
	switch code[3] {
	case 0xfa:
		return "endbr64", true
	case 0xfb:
		return "endbr32", true
	}
	return "", false
}

// Sweep decodes code linearly from addr. Bytes that fail to decode
// become one-byte Unknown instructions and the sweep moves on.
func Sweep(code []byte, addr uint64, mode int) Stream {
	var out Stream
	for off := 0; off < len(code); {
		in, err := Decode(code[off:], addr+uint64(off), mode)
		if err != nil || in.Len <= 0 {
			reason := "decode"
			if err != nil {
				reason = err.Error()
			}
			in = Inst{
				VA:   addr + uint64(off),
				Len:  1,
				Text: "(bad)",
				Node: x64.Unknown{Reason: reason},
			}
		}
		out = append(out, in)
		off += in.Len
	}
	return out
}

func mnemonic(op x86asm.Op) string {
	name := strings.ToLower(op.String())
	if i := strings.IndexByte(name, '_'); i > 0 {
		name = name[:i]
	}
	return name
}

var controls = map[string]x64.ControlClass{
	"RET":   x64.Ret,
	"LRET":  x64.FarRet,
	"IRETQ": x64.IRet64,
	"IRETD": x64.IRet32,
	"IRET":  x64.IRet16,
}

var states = map[string]x64.StateClass{
	"FNSTENV":   x64.Fnstenv,
	"FLDENV":    x64.Fldenv,
	"FNSAVE":    x64.Fnsave,
	"FRSTOR":    x64.Frstor,
	"FXSAVE":    x64.Fxsave,
	"FXSAVE64":  x64.Fxsave64,
	"FXRSTOR":   x64.Fxrstor,
	"FXRSTOR64": x64.Fxrstor64,
	"XSAVE":     x64.Xsave,
	"XSAVE64":   x64.Xsave64,
	"XRSTOR":    x64.Xrstor,
	"XRSTOR64":  x64.Xrstor64,
}

func args(inst x86asm.Inst) []x86asm.Arg {
	var out []x86asm.Arg
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		out = append(out, a)
	}
	return out
}

func toNode(inst x86asm.Inst, addr uint64) x64.Node {
	op := inst.Op.String()
	name := mnemonic(inst.Op)
	as := args(inst)

	if len(as) == 0 {
		if c, ok := controls[op]; ok {
			return x64.Control{Class: c}
		}
		return x64.ZeroOp{Instr: name}
	}
	if c, ok := states[op]; ok {
		if m, ok := as[0].(x86asm.Mem); ok && len(as) == 1 {
			return x64.StateOp{Class: c, Addr: address(inst, m)}
		}
		return x64.Unknown{Instr: name, Reason: "state operand"}
	}
	switch op {
	case "INVLPG":
		if m, ok := as[0].(x86asm.Mem); ok {
			return x64.Invlpg{Addr: address(inst, m)}
		}
	case "LEA":
		return lea(inst, name, as)
	case "LCALL", "LJMP":
		return far(inst, name, as)
	}
	if len(as) > 3 {
		return x64.Unknown{Instr: name, Reason: "too many operands"}
	}

	mw := memWidth(inst, op, as)
	ops := make([]x64.Operand, 0, len(as))
	for i, a := range as {
		o, ok := operand(inst, addr, op, i, a, mw, ops)
		if !ok {
			return x64.Unknown{Instr: name, Reason: "operand " + a.String()}
		}
		ops = append(ops, o)
	}
	switch len(ops) {
	case 1:
		return x64.OneOp{Instr: name, Ops: [1]x64.Operand{ops[0]}}
	case 2:
		return x64.TwoOp{Instr: name, Ops: [2]x64.Operand{ops[0], ops[1]}}
	default:
		return x64.ThreeOp{Instr: name, Ops: [3]x64.Operand{ops[0], ops[1], ops[2]}}
	}
}

func lea(inst x86asm.Inst, name string, as []x86asm.Arg) x64.Node {
	if len(as) != 2 {
		return x64.Unknown{Instr: name, Reason: "lea operands"}
	}
	r, ok := as[0].(x86asm.Reg)
	m, mok := as[1].(x86asm.Mem)
	if !ok || !mok {
		return x64.Unknown{Instr: name, Reason: "lea operands"}
	}
	w, rname, ok := register(r, inst.Mode)
	if !ok {
		return x64.Unknown{Instr: name, Reason: "lea register"}
	}
	return x64.Lea{
		Width: w,
		Dst:   x64.RegDirect{Width: w, Reg: rname},
		Src:   address(inst, m),
	}
}

// far handles the far call and jump forms: ptr16:NN immediates decode
// as a segment and an offset immediate.
func far(inst x86asm.Inst, name string, as []x86asm.Arg) x64.Node {
	switch len(as) {
	case 1:
		if m, ok := as[0].(x86asm.Mem); ok {
			return x64.FarIndirect{
				Instr: name,
				Width: x64.Width(inst.DataSize),
				Addr:  address(inst, m),
			}
		}
	case 2:
		seg, ok := as[0].(x86asm.Imm)
		off, ook := as[1].(x86asm.Imm)
		if ok && ook {
			return x64.FarImmediate{
				Instr:   name,
				Width:   x64.Width(16 + inst.DataSize),
				Segment: uint16(seg),
				Offset:  uint32(off),
			}
		}
	}
	return x64.Unknown{Instr: name, Reason: "far operands"}
}
