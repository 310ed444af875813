package x64

import (
	"fmt"
	"strings"
)

// Kind is the category of an operand descriptor.
type Kind uint8

const (
	KindRegDirect Kind = iota + 1
	KindSRegDirect
	KindIndirect
	KindImmediate
	KindFloatReg
	KindFloatPointer
	KindFarPointer
)

func (k Kind) String() string {
	switch k {
	case KindRegDirect:
		return "RegisterDirect"
	case KindSRegDirect:
		return "SegmentRegisterDirect"
	case KindIndirect:
		return "IndirectMemory"
	case KindImmediate:
		return "Immediate"
	case KindFloatReg:
		return "FloatingRegister"
	case KindFloatPointer:
		return "FloatingPointer"
	case KindFarPointer:
		return "FarPointer"
	}
	return "Unknown"
}

// Interp says how the x87 unit reads a floating-point pointer operand.
type Interp uint8

const (
	InterpNone Interp = iota
	InterpInt
	InterpReal
)

// FarPtr is a segment:offset pair.
type FarPtr struct {
	Segment uint16
	Offset  uint64
}

// Descriptor is the canonical form of one operand. Only the payload field
// matching Kind is set. Descriptors are comparable and used as table keys.
type Descriptor struct {
	Kind   Kind
	Width  Width
	Interp Interp

	Reg string
	Imm int64
	Mem Addr
	Far FarPtr
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindRegDirect, KindSRegDirect, KindFloatReg:
		return d.Reg
	case KindImmediate:
		return hex(d.Imm)
	case KindIndirect, KindFloatPointer:
		mem := d.Mem.String()
		if name := d.Width.ptrName(); name != "" {
			return name + " ptr " + mem
		}
		return mem
	case KindFarPointer:
		return fmt.Sprintf("%#x:%#x", d.Far.Segment, d.Far.Offset)
	}
	return "?"
}

// String renders the address in Intel syntax without a size keyword.
func (a Addr) String() string {
	var sb strings.Builder
	if a.Segment != "" {
		sb.WriteString(a.Segment)
		sb.WriteByte(':')
	}
	sb.WriteByte('[')
	wrote := false
	if a.Base != "" {
		sb.WriteString(a.Base)
		wrote = true
	}
	if a.Index != "" {
		if wrote {
			sb.WriteByte('+')
		}
		sb.WriteString(a.Index)
		if a.Scale > 1 {
			fmt.Fprintf(&sb, "*%d", a.Scale)
		}
		wrote = true
	}
	switch {
	case !wrote:
		sb.WriteString(hex(a.Disp))
	case a.Disp > 0:
		sb.WriteByte('+')
		sb.WriteString(hex(a.Disp))
	case a.Disp < 0:
		sb.WriteString(hex(a.Disp))
	}
	sb.WriteByte(']')
	return sb.String()
}

func hex(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-%#x", uint64(-v))
	}
	return fmt.Sprintf("%#x", v)
}
