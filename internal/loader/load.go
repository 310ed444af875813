package loader

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

var ErrUnknownFormat = errors.New("could not identify file magic")

var (
	elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}
	peMagic  = []byte{'M', 'Z'}

	machoMagics = [][]byte{
		{0xfe, 0xed, 0xfa, 0xce},
		{0xfe, 0xed, 0xfa, 0xcf},
		{0xce, 0xfa, 0xed, 0xfe},
		{0xcf, 0xfa, 0xed, 0xfe},
	}
)

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 4)
	r.ReadAt(ret, 0)
	return ret
}

func MatchElf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), elfMagic)
}

func MatchPE(r io.ReaderAt) bool {
	return bytes.HasPrefix(getMagic(r), peMagic)
}

func MatchMachO(r io.ReaderAt) bool {
	magic := getMagic(r)
	for _, check := range machoMagics {
		if bytes.Equal(magic, check) {
			return true
		}
	}
	return false
}

// Open identifies the format of the file at path and returns its reader.
// Files that cannot be opened return an error; files that open but do not
// parse return a reader whose Valid method reports false.
func Open(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	switch {
	case MatchElf(f):
		f.Close()
		r, err := OpenELF(path)
		if err != nil {
			return Invalid(err), nil
		}
		return r, nil
	case MatchMachO(f):
		r, err := NewMachOReader(f)
		if err != nil {
			f.Close()
			return Invalid(err), nil
		}
		return r, nil
	case MatchPE(f):
		r, err := NewPEReader(f)
		if err != nil {
			f.Close()
			return Invalid(err), nil
		}
		return r, nil
	default:
		f.Close()
		return Invalid(errors.WithStack(ErrUnknownFormat)), nil
	}
}
