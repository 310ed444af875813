package x64

import (
	"fmt"
	"strings"
)

// Unsupported is the mnemonic of any instruction outside the grammar.
const Unsupported = "unsupported"

// Instruction is the canonical form of one decoded instruction.
type Instruction struct {
	Address  uint64
	Size     int
	Name     string
	Operands []Descriptor
	// Codes holds the operator-table code of each operand once collected.
	Codes []int64
}

// Supported reports whether the instruction matched the grammar.
func (i Instruction) Supported() bool {
	return i.Name != Unsupported
}

// Visitor canonicalizes a single instruction. A Visitor owns only its
// address, size and accumulated operands; separate visitors share no
// state and may run concurrently.
type Visitor struct {
	address  uint64
	size     int
	name     string
	operands []Descriptor
	codes    []int64
}

func NewVisitor(address uint64, size int) *Visitor {
	return &Visitor{address: address, size: size, name: Unsupported}
}

// Canonicalize visits n and returns the resulting instruction.
func Canonicalize(n Node, address uint64, size int) Instruction {
	v := NewVisitor(address, size)
	v.Visit(n)
	return v.Instruction()
}

// Visit matches n against the grammar and records its mnemonic and
// operands. Unrecognized shapes leave the mnemonic Unsupported with no
// operands.
func (v *Visitor) Visit(n Node) {
	name, ops, ok := visit(n)
	if !ok {
		v.name, v.operands, v.codes = Unsupported, nil, nil
		return
	}
	v.name, v.operands, v.codes = name, ops, nil
}

func visit(n Node) (string, []Descriptor, bool) {
	switch n := n.(type) {
	case ZeroOp:
		return n.Instr, nil, n.Instr != ""
	case Control:
		name := n.Class.String()
		return name, nil, name != ""
	case OneOp:
		return visitRegular(n.Instr, n.Ops)
	case TwoOp:
		return visitRegular(n.Instr, n.Ops)
	case ThreeOp:
		return visitRegular(n.Instr, n.Ops)
	case Lea:
		return visitLea(n)
	case FarImmediate:
		if n.Width != W32 && n.Width != W48 {
			return "", nil, false
		}
		return n.Instr, []Descriptor{{
			Kind:  KindFarPointer,
			Width: n.Width,
			Far:   FarPtr{Segment: n.Segment, Offset: uint64(n.Offset)},
		}}, true
	case FarIndirect:
		return visitFarIndirect(n)
	case StateOp:
		name := n.Class.String()
		d, ok := indirect(WidthNone, n.Addr)
		if name == "" || !ok {
			return "", nil, false
		}
		return name, []Descriptor{d}, true
	case Invlpg:
		d, ok := indirect(W8, n.Addr)
		if !ok {
			return "", nil, false
		}
		return "invlpg", []Descriptor{d}, true
	}
	return "", nil, false
}

// visitRegular resolves each operand in declared order. The shape must
// be one the grammar lists for its arity.
func visitRegular[A operandArray](instr string, ops A) (string, []Descriptor, bool) {
	if instr == "" {
		return "", nil, false
	}
	out := make([]Descriptor, 0, len(ops))
	for i := 0; i < len(ops); i++ {
		d, ok := operand(ops[i])
		if !ok {
			return "", nil, false
		}
		out = append(out, d)
	}
	if !accepts(out) {
		return "", nil, false
	}
	return instr, out, true
}

func visitLea(n Lea) (string, []Descriptor, bool) {
	switch n.Width {
	case W16, W32, W64:
	default:
		return "", nil, false
	}
	if n.Dst.Width != n.Width {
		return "", nil, false
	}
	dst, ok := operand(n.Dst)
	if !ok {
		return "", nil, false
	}
	src, ok := indirect(n.Width, n.Src)
	if !ok {
		return "", nil, false
	}
	return "lea", []Descriptor{dst, src}, true
}

// visitFarIndirect tags the memory pointer with its full m16:NN width.
func visitFarIndirect(n FarIndirect) (string, []Descriptor, bool) {
	var w Width
	switch n.Width {
	case W16:
		w = W32
	case W32:
		w = W48
	case W64:
		w = W80
	default:
		return "", nil, false
	}
	d, ok := indirect(w, n.Addr)
	if !ok || n.Instr == "" {
		return "", nil, false
	}
	return n.Instr, []Descriptor{d}, true
}

func operand(op Operand) (Descriptor, bool) {
	switch op := op.(type) {
	case RegDirect:
		switch op.Width {
		case W8, W16, W32, W64, W128:
			return Descriptor{Kind: KindRegDirect, Width: op.Width, Reg: op.Reg}, op.Reg != ""
		}
	case SRegDirect:
		switch op.Width {
		case W16, W32, W64:
			return Descriptor{Kind: KindSRegDirect, Width: op.Width, Reg: op.Reg}, op.Reg != ""
		}
	case FloatRegDirect:
		if op.Index >= 0 && op.Index < 8 {
			return Descriptor{Kind: KindFloatReg, Width: W80, Reg: fmt.Sprintf("st(%d)", op.Index)}, true
		}
	case Immediate:
		switch op.Width {
		case W8, W16, W32, W64:
			return Descriptor{Kind: KindImmediate, Width: op.Width, Imm: op.Value}, true
		}
	case Indirect:
		if op.Width == WidthNone {
			break
		}
		return indirect(op.Width, op.Addr)
	case FloatInt:
		switch op.Width {
		case W16, W32, W64:
			return floatPointer(op.Width, InterpInt, op.Addr)
		}
	case FloatReal:
		switch op.Width {
		case W32, W64, W80:
			return floatPointer(op.Width, InterpReal, op.Addr)
		}
	}
	return Descriptor{}, false
}

// floatPointer resolves the wrapped address; the wrapper only adds the
// interpretation tag.
func floatPointer(w Width, interp Interp, a Addr) (Descriptor, bool) {
	d, ok := indirect(w, a)
	if !ok {
		return Descriptor{}, false
	}
	d.Kind = KindFloatPointer
	d.Interp = interp
	return d, true
}

func indirect(w Width, a Addr) (Descriptor, bool) {
	if w.ptrName() == "" && w != WidthNone {
		return Descriptor{}, false
	}
	// 16-bit addressing is not handled.
	switch a.Size {
	case W32, W64:
	default:
		return Descriptor{}, false
	}
	return Descriptor{Kind: KindIndirect, Width: w, Mem: a}, true
}

// Name returns the mnemonic, or Unsupported.
func (v *Visitor) Name() string { return v.name }

// Operands returns the operand descriptors in declared order.
func (v *Visitor) Operands() []Descriptor { return v.operands }

// Codes returns the operator codes assigned by CollectOperands.
func (v *Visitor) Codes() []int64 { return v.codes }

// CollectOperands registers every operand in t and records the codes.
func (v *Visitor) CollectOperands(t *OperatorTable) {
	v.codes = make([]int64, len(v.operands))
	for i, d := range v.operands {
		v.codes[i] = t.Add(d)
	}
}

// Instruction returns the canonical instruction.
func (v *Visitor) Instruction() Instruction {
	return Instruction{
		Address:  v.address,
		Size:     v.size,
		Name:     v.name,
		Operands: v.operands,
		Codes:    v.codes,
	}
}

// Result renders the mnemonic and operands joined by spaces.
func (v *Visitor) Result() string {
	return v.Instruction().Result()
}

// ResultTabs renders the mnemonic and operands joined by tabs.
func (v *Visitor) ResultTabs() string {
	return v.Instruction().ResultTabs()
}

func (i Instruction) Result() string {
	return i.join(" ")
}

func (i Instruction) ResultTabs() string {
	return i.join("\t")
}

func (i Instruction) join(sep string) string {
	parts := make([]string, 0, len(i.Operands)+1)
	parts = append(parts, i.Name)
	for _, d := range i.Operands {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, sep)
}

// CollectOperands registers the instruction's operands in t and returns
// the instruction with its codes filled in.
func (i Instruction) CollectOperands(t *OperatorTable) Instruction {
	i.Codes = make([]int64, len(i.Operands))
	for n, d := range i.Operands {
		i.Codes[n] = t.Add(d)
	}
	return i
}
