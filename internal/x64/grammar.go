package x64

import "strings"

// Width signatures accepted for regular instructions, one class per
// operand. "Float" is an x87 stack register.
var (
	oneOpShapes = shapes(
		"Float", "128", "80", "64", "32", "16", "8",
	)
	twoOpShapes = shapes(
		"128_64", "128_32", "128_16", "128_8",
		"64_128", "64_32", "64_16", "64_8",
		"32_128", "32_64", "32_48", "32_16", "32_8",
		"16_64", "16_32", "16_8",
		"8_32", "8_16",
		"128_128", "64_64", "32_32", "16_16", "8_8",
		"Float_Float",
	)
	threeOpShapes = shapes(
		"32_32_32", "16_16_16", "128_128_128",
		"128_128_8", "128_64_8", "128_32_8", "128_16_8", "128_8_8",
		"64_64_32", "64_64_8",
		"64_32_8", "64_16_8", "64_128_8",
		"32_128_8", "32_64_8", "32_32_8",
		"16_128_8", "16_16_8",
		"8_128_8",
	)
)

func shapes(sigs ...string) map[string]bool {
	m := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		m[s] = true
	}
	return m
}

func class(d Descriptor) string {
	if d.Kind == KindFloatReg {
		return "Float"
	}
	return d.Width.String()
}

func signature(ops []Descriptor) string {
	classes := make([]string, len(ops))
	for i, d := range ops {
		classes[i] = class(d)
	}
	return strings.Join(classes, "_")
}

// accepts reports whether the grammar has a regular shape for ops.
func accepts(ops []Descriptor) bool {
	sig := signature(ops)
	switch len(ops) {
	case 1:
		return oneOpShapes[sig]
	case 2:
		return twoOpShapes[sig]
	case 3:
		return threeOpShapes[sig]
	}
	return false
}

var arityNames = [...]string{"ZeroOp", "OneOp", "TwoOp", "ThreeOp"}

// ShapeName names the grammar shape of n, such as "TwoOp64_32", "Lea64"
// or "Ret". Operands sharing one class collapse to a single suffix.
func ShapeName(n Node) string {
	switch n := n.(type) {
	case ZeroOp:
		return "ZeroOp"
	case Control:
		switch n.Class {
		case Ret:
			return "Ret"
		case FarRet:
			return "FarRet"
		case IRet64:
			return "IRet64"
		case IRet32:
			return "IRet32"
		case IRet16:
			return "IRet16"
		}
	case OneOp:
		return regularShapeName(n.Ops)
	case TwoOp:
		return regularShapeName(n.Ops)
	case ThreeOp:
		return regularShapeName(n.Ops)
	case Lea:
		return "Lea" + n.Width.String()
	case FarImmediate:
		return "FarImmediate"
	case FarIndirect:
		return "FarIndirect" + n.Width.String()
	case StateOp:
		name := n.Class.String()
		if name == "" {
			break
		}
		return strings.ToUpper(name[:1]) + name[1:]
	case Invlpg:
		return "Invlpg"
	}
	return "Unknown"
}

func regularShapeName[A operandArray](ops A) string {
	classes := make([]string, 0, len(ops))
	same := true
	for i := 0; i < len(ops); i++ {
		d, ok := operand(ops[i])
		if !ok {
			return "Unknown"
		}
		c := class(d)
		if len(classes) > 0 && classes[0] != c {
			same = false
		}
		classes = append(classes, c)
	}
	if same {
		classes = classes[:1]
	}
	return arityNames[len(ops)] + strings.Join(classes, "_")
}
