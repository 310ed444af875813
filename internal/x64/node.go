// Package x64 canonicalizes decoded x86 instructions into a mnemonic and
// an ordered list of operand descriptors.
//
// Decoded instructions are expressed in a closed grammar of node shapes:
// pure-control forms, regular forms with one to three width-tagged
// operands, and a handful of irregular forms with bespoke operand
// layouts. Anything outside the grammar renders as Unsupported.
package x64

import "strconv"

// Width is an operand width in bits.
type Width uint8

const (
	// WidthNone tags memory blocks that have no scalar width, such as
	// the FPU and vector state areas.
	WidthNone Width = 0
	W8        Width = 8
	W16       Width = 16
	W32       Width = 32
	W48       Width = 48
	W64       Width = 64
	W80       Width = 80
	W128      Width = 128
)

func (w Width) String() string {
	return strconv.Itoa(int(w))
}

// ptrName is the Intel size keyword for a memory operand.
func (w Width) ptrName() string {
	switch w {
	case W8:
		return "byte"
	case W16:
		return "word"
	case W32:
		return "dword"
	case W48:
		return "fword"
	case W64:
		return "qword"
	case W80:
		return "tbyte"
	case W128:
		return "xmmword"
	}
	return ""
}

// Node is a decoded instruction.
type Node interface {
	isNode()
}

// Operand is a decoded operand of a regular instruction.
type Operand interface {
	isOperand()
}

// ZeroOp is an instruction without operands, named by the decoder.
type ZeroOp struct {
	Instr string
}

// ControlClass identifies the pure-control return forms.
type ControlClass uint8

const (
	Ret ControlClass = iota + 1
	FarRet
	IRet64
	IRet32
	IRet16
)

// String returns the class identity, which is also its mnemonic.
func (c ControlClass) String() string {
	switch c {
	case Ret:
		return "ret"
	case FarRet:
		return "lret"
	case IRet64:
		return "iretq"
	case IRet32:
		return "iretd"
	case IRet16:
		return "iret"
	}
	return ""
}

// Control is a return with no operand.
type Control struct {
	Class ControlClass
}

type operandArray interface {
	[1]Operand | [2]Operand | [3]Operand
}

// Regular is an instruction whose operands are decomposed one by one.
type Regular[A operandArray] struct {
	Instr string
	Ops   A
}

type (
	OneOp   = Regular[[1]Operand]
	TwoOp   = Regular[[2]Operand]
	ThreeOp = Regular[[3]Operand]
)

// Lea loads the effective address Src into Dst. Width is the operand
// size: 16, 32 or 64.
type Lea struct {
	Width Width
	Dst   RegDirect
	Src   Addr
}

// FarImmediate is a direct far call or jump through ptr16:16 (Width 32)
// or ptr16:32 (Width 48).
type FarImmediate struct {
	Instr   string
	Width   Width
	Segment uint16
	Offset  uint32
}

// FarIndirect is a far call or jump through a memory pointer. Width is
// the offset size (16, 32 or 64); the pointer is two bytes wider.
type FarIndirect struct {
	Instr string
	Width Width
	Addr  Addr
}

// StateClass identifies the FPU and vector state save/restore forms.
type StateClass uint8

const (
	Fnstenv StateClass = iota + 1
	Fldenv
	Fnsave
	Frstor
	Fxsave
	Fxsave64
	Fxrstor
	Fxrstor64
	Xsave
	Xsave64
	Xrstor
	Xrstor64
)

var stateNames = map[StateClass]string{
	Fnstenv:   "fnstenv",
	Fldenv:    "fldenv",
	Fnsave:    "fnsave",
	Frstor:    "frstor",
	Fxsave:    "fxsave",
	Fxsave64:  "fxsave64",
	Fxrstor:   "fxrstor",
	Fxrstor64: "fxrstor64",
	Xsave:     "xsave",
	Xsave64:   "xsave64",
	Xrstor:    "xrstor",
	Xrstor64:  "xrstor64",
}

func (c StateClass) String() string {
	return stateNames[c]
}

// StateOp saves or restores processor state to the block at Addr.
type StateOp struct {
	Class StateClass
	Addr  Addr
}

// Invlpg invalidates the TLB entry for the page containing Addr.
type Invlpg struct {
	Addr Addr
}

// Unknown is any instruction the grammar does not cover.
type Unknown struct {
	Instr  string
	Reason string
}

func (ZeroOp) isNode()       {}
func (Control) isNode()      {}
func (Regular[A]) isNode()   {}
func (Lea) isNode()          {}
func (FarImmediate) isNode() {}
func (FarIndirect) isNode()  {}
func (StateOp) isNode()      {}
func (Invlpg) isNode()       {}
func (Unknown) isNode()      {}

// Addr is a memory address expression. Size is the addressing width;
// only 32- and 64-bit addressing is handled.
type Addr struct {
	Size    Width
	Segment string
	Base    string
	Index   string
	Scale   uint8
	Disp    int64
}

// RegDirect is a general purpose, vector or control register.
type RegDirect struct {
	Width Width
	Reg   string
}

// SRegDirect is a segment register used at the given operand size.
type SRegDirect struct {
	Width Width
	Reg   string
}

// FloatRegDirect is the x87 stack register st(Index).
type FloatRegDirect struct {
	Index int
}

// Immediate is a constant operand.
type Immediate struct {
	Width Width
	Value int64
}

// Indirect is a memory operand of the given width.
type Indirect struct {
	Width Width
	Addr  Addr
}

// FloatInt wraps a memory operand read as a 16, 32 or 64-bit integer by
// the x87 unit.
type FloatInt struct {
	Width Width
	Addr  Addr
}

// FloatReal wraps a memory operand read as a 32, 64 or 80-bit real by the
// x87 unit.
type FloatReal struct {
	Width Width
	Addr  Addr
}

func (RegDirect) isOperand()      {}
func (SRegDirect) isOperand()     {}
func (FloatRegDirect) isOperand() {}
func (Immediate) isOperand()      {}
func (Indirect) isOperand()       {}
func (FloatInt) isOperand()       {}
func (FloatReal) isOperand()      {}
