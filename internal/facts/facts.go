// Package facts writes canonical instructions and their operator table
// as tab-separated relation files.
package facts

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"zeroir/internal/x64"
)

// Relation file names.
const (
	InstructionFile = "instruction.facts"
	RegDirectFile   = "op_regdirect.facts"
	SRegDirectFile  = "op_sregdirect.facts"
	ImmediateFile   = "op_immediate.facts"
	IndirectFile    = "op_indirect.facts"
	FarPtrFile      = "op_farptr.facts"
	FloatRegFile    = "op_floatreg.facts"
	UnsupportedFile = "unsupported.facts"
)

// Files lists every relation written by Write.
var Files = []string{
	InstructionFile,
	RegDirectFile,
	SRegDirectFile,
	ImmediateFile,
	IndirectFile,
	FarPtrFile,
	FloatRegFile,
	UnsupportedFile,
}

type rows = [][]string

// Write collects the operands of insts into table, in slice order, and
// writes every relation into dir. insts should be ordered by address so
// codes are deterministic. Instructions already carrying codes keep them.
func Write(dir string, insts []x64.Instruction, table *x64.OperatorTable) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "facts: create output dir")
	}
	rel := make(map[string]rows, len(Files))
	for _, in := range insts {
		if !in.Supported() {
			rel[UnsupportedFile] = append(rel[UnsupportedFile], []string{
				hex(in.Address), strconv.Itoa(in.Size),
			})
			continue
		}
		if len(in.Codes) != len(in.Operands) {
			in = in.CollectOperands(table)
		}
		row := []string{hex(in.Address), strconv.Itoa(in.Size), in.Name}
		for i := 0; i < 3; i++ {
			code := int64(0)
			if i < len(in.Codes) {
				code = in.Codes[i]
			}
			row = append(row, strconv.FormatInt(code, 10))
		}
		rel[InstructionFile] = append(rel[InstructionFile], row)
	}

	table.Each(func(code int64, d x64.Descriptor) {
		name, row := operatorRow(code, d)
		if name != "" {
			rel[name] = append(rel[name], row)
		}
	})

	for _, name := range Files {
		if err := writeFile(filepath.Join(dir, name), rel[name]); err != nil {
			return err
		}
	}
	return nil
}

func operatorRow(code int64, d x64.Descriptor) (string, []string) {
	c := strconv.FormatInt(code, 10)
	w := d.Width.String()
	switch d.Kind {
	case x64.KindRegDirect:
		return RegDirectFile, []string{c, d.Reg, w}
	case x64.KindSRegDirect:
		return SRegDirectFile, []string{c, d.Reg, w}
	case x64.KindImmediate:
		return ImmediateFile, []string{c, strconv.FormatInt(d.Imm, 10), w}
	case x64.KindIndirect, x64.KindFloatPointer:
		return IndirectFile, []string{
			c, d.Mem.Segment, d.Mem.Base, d.Mem.Index,
			strconv.Itoa(int(d.Mem.Scale)), strconv.FormatInt(d.Mem.Disp, 10),
			w, interp(d.Interp),
		}
	case x64.KindFarPointer:
		return FarPtrFile, []string{
			c, strconv.FormatUint(uint64(d.Far.Segment), 10),
			strconv.FormatUint(d.Far.Offset, 10), w,
		}
	case x64.KindFloatReg:
		return FloatRegFile, []string{c, d.Reg}
	}
	return "", nil
}

func interp(i x64.Interp) string {
	switch i {
	case x64.InterpInt:
		return "int"
	case x64.InterpReal:
		return "real"
	}
	return "none"
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func writeFile(path string, records rows) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "facts: create %s", filepath.Base(path))
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return errors.Wrapf(err, "facts: write %s", filepath.Base(path))
	}
	return errors.Wrapf(f.Close(), "facts: close %s", filepath.Base(path))
}
