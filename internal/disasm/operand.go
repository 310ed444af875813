package disasm

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"zeroir/internal/x64"
)

// register classifies r and returns its width and Intel name.
func register(r x86asm.Reg, mode int) (x64.Width, string, bool) {
	switch {
	case r >= x86asm.AL && r <= x86asm.R15B:
		return x64.W8, regName(r), true
	case r >= x86asm.AX && r <= x86asm.R15W:
		return x64.W16, regName(r), true
	case r >= x86asm.EAX && r <= x86asm.R15L:
		return x64.W32, regName(r), true
	case r >= x86asm.RAX && r <= x86asm.R15:
		return x64.W64, regName(r), true
	case r >= x86asm.M0 && r <= x86asm.M7:
		return x64.W64, fmt.Sprintf("mm%d", r-x86asm.M0), true
	case r >= x86asm.X0 && r <= x86asm.X15:
		return x64.W128, fmt.Sprintf("xmm%d", r-x86asm.X0), true
	case r >= x86asm.CR0 && r <= x86asm.CR15,
		r >= x86asm.DR0 && r <= x86asm.DR15:
		return x64.Width(mode), regName(r), true
	}
	return x64.WidthNone, "", false
}

var byteRegs = map[string]string{
	"spb": "spl",
	"bpb": "bpl",
	"sib": "sil",
	"dib": "dil",
}

func regName(r x86asm.Reg) string {
	name := strings.ToLower(r.String())
	if n, ok := byteRegs[name]; ok {
		return n
	}
	// r8l..r15l are the 32-bit r8d..r15d.
	if len(name) > 2 && name[0] == 'r' && strings.HasSuffix(name, "l") && name[1] >= '0' && name[1] <= '9' {
		return name[:len(name)-1] + "d"
	}
	return name
}

func isSegment(r x86asm.Reg) bool {
	return r >= x86asm.ES && r <= x86asm.GS
}

func address(inst x86asm.Inst, m x86asm.Mem) x64.Addr {
	a := x64.Addr{
		Size:  x64.Width(inst.AddrSize),
		Scale: m.Scale,
		Disp:  m.Disp,
	}
	if m.Segment != 0 {
		a.Segment = regName(m.Segment)
	}
	if m.Base != 0 {
		a.Base = regName(m.Base)
	}
	if m.Index != 0 {
		a.Index = regName(m.Index)
	}
	return a
}

// x87 operations reading integer memory operands.
var floatInt = map[string]bool{
	"FILD": true, "FIST": true, "FISTP": true, "FISTTP": true,
	"FIADD": true, "FIMUL": true, "FICOM": true, "FICOMP": true,
	"FISUB": true, "FISUBR": true, "FIDIV": true, "FIDIVR": true,
}

// x87 operations reading real memory operands.
var floatReal = map[string]bool{
	"FLD": true, "FST": true, "FSTP": true,
	"FADD": true, "FMUL": true, "FCOM": true, "FCOMP": true,
	"FSUB": true, "FSUBR": true, "FDIV": true, "FDIVR": true,
}

// Operations whose immediate is always a single byte.
var imm8Ops = map[string]bool{
	"SHL": true, "SHR": true, "SAR": true, "ROL": true, "ROR": true,
	"RCL": true, "RCR": true, "BT": true, "BTS": true, "BTR": true,
	"BTC": true, "INT": true, "IN": true, "OUT": true, "SHLD": true,
	"SHRD": true,
}

// Implicit string operations, sized by their last letter.
var stringOps = map[string]bool{
	"MOVS": true, "CMPS": true, "STOS": true, "LODS": true,
	"SCAS": true, "INS": true, "OUTS": true,
}

var suffixWidth = map[byte]x64.Width{
	'B': x64.W8,
	'W': x64.W16,
	'D': x64.W32,
	'Q': x64.W64,
}

// memWidth returns the width of the memory operand of inst. The decoder
// reports no size for implicit string operands or for m80 and
// descriptor-table operands, so those are derived from the operation.
func memWidth(inst x86asm.Inst, op string, as []x86asm.Arg) x64.Width {
	if inst.MemBytes > 0 {
		return x64.Width(inst.MemBytes * 8)
	}
	if n := len(op); n > 1 && stringOps[op[:n-1]] {
		if w, ok := suffixWidth[op[n-1]]; ok {
			return w
		}
	}
	switch op {
	case "XLATB":
		return x64.W8
	case "FLD", "FSTP", "FBLD", "FBSTP":
		return x64.W80
	case "LGDT", "LIDT", "SGDT", "SIDT":
		if inst.Mode == 64 {
			return x64.W80
		}
		return x64.W48
	}
	for _, a := range as {
		if r, ok := a.(x86asm.Reg); ok {
			if w, _, ok := register(r, inst.Mode); ok {
				return w
			}
		}
	}
	return x64.WidthNone
}

func operand(inst x86asm.Inst, addr uint64, op string, i int, a x86asm.Arg, mw x64.Width, prev []x64.Operand) (x64.Operand, bool) {
	switch a := a.(type) {
	case x86asm.Reg:
		if a >= x86asm.F0 && a <= x86asm.F7 {
			return x64.FloatRegDirect{Index: int(a - x86asm.F0)}, true
		}
		if isSegment(a) {
			return x64.SRegDirect{Width: x64.W16, Reg: regName(a)}, true
		}
		w, name, ok := register(a, inst.Mode)
		if !ok {
			return nil, false
		}
		return x64.RegDirect{Width: w, Reg: name}, true
	case x86asm.Mem:
		ad := address(inst, a)
		switch {
		case floatInt[op]:
			return x64.FloatInt{Width: mw, Addr: ad}, true
		case floatReal[op]:
			return x64.FloatReal{Width: mw, Addr: ad}, true
		}
		return x64.Indirect{Width: mw, Addr: ad}, true
	case x86asm.Imm:
		return x64.Immediate{Width: immWidth(inst, op, i, int64(a), prev), Value: int64(a)}, true
	case x86asm.Rel:
		target := int64(addr) + int64(inst.Len) + int64(a)
		return x64.Immediate{Width: x64.Width(inst.Mode), Value: target}, true
	}
	return nil, false
}

// immWidth infers the encoded immediate size, which the decoder does not
// report.
func immWidth(inst x86asm.Inst, op string, i int, v int64, prev []x64.Operand) x64.Width {
	switch {
	case op == "RET" || op == "LRET":
		return x64.W16
	case op == "ENTER":
		if i == 0 {
			return x64.W16
		}
		return x64.W8
	case imm8Ops[op], i == 2 && op != "IMUL":
		return x64.W8
	}
	w := x64.Width(inst.DataSize)
	if len(prev) > 0 {
		if w = operandWidth(prev[0]); w == x64.WidthNone {
			w = x64.Width(inst.DataSize)
		}
	}
	if w == x64.W64 && op == "MOV" && (v > math.MaxInt32 || v < math.MinInt32) {
		return x64.W64
	}
	if i == 2 && v >= math.MinInt8 && v <= math.MaxInt8 {
		return x64.W8
	}
	if w > x64.W32 {
		return x64.W32
	}
	if w == x64.WidthNone {
		return x64.W32
	}
	return w
}

func operandWidth(o x64.Operand) x64.Width {
	switch o := o.(type) {
	case x64.RegDirect:
		return o.Width
	case x64.SRegDirect:
		return o.Width
	case x64.Indirect:
		return o.Width
	}
	return x64.WidthNone
}
