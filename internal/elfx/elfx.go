// Package elfx provides helpers for opening ELF binaries and reading
// section contents, symbols, relocations and dynamic-linking metadata.
package elfx

import (
	"bytes"
	"debug/elf"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Image struct {
	Path string
	File *elf.File
	All  []byte
	f    *os.File
}

// Sym is an ELF symbol with its raw attributes decoded to names.
type Sym struct {
	Name       string
	Value      uint64
	Size       uint64
	Type       string
	Bind       string
	Visibility string
	Section    elf.SectionIndex
}

// Open maps the file at path read-only and parses its ELF headers.
func Open(path string) (*Image, error) {
	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, errors.Wrap(err, "stat file")
	}
	if fi.Size() == 0 {
		of.Close()
		return nil, errors.Errorf("empty file: %s", path)
	}

	all, err := unix.Mmap(int(of.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		of.Close()
		return nil, errors.Wrap(err, "mmap file")
	}

	im, err := NewImage(path, all)
	if err != nil {
		unix.Munmap(all)
		of.Close()
		return nil, err
	}
	im.f = of
	return im, nil
}

// NewImage parses an ELF image already held in memory. The returned
// image does not own data.
func NewImage(path string, data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open elf")
	}
	return &Image{Path: path, File: f, All: data}, nil
}

// Close unmaps the memory and closes the underlying file.
func (im *Image) Close() error {
	var err1, err2 error
	if im.f != nil {
		if im.All != nil {
			err1 = unix.Munmap(im.All)
		}
		err2 = im.f.Close()
		im.f = nil
	}
	im.All = nil
	im.File = nil
	if err1 != nil {
		return err1
	}
	return err2
}

// SectionContent returns the bytes a section occupies in the file. It
// returns false for sections without file content (SHT_NOBITS). The slice
// is shorter than the section size when the file is truncated.
func (im *Image) SectionContent(s *elf.Section) ([]byte, bool) {
	if s.Type == elf.SHT_NOBITS || s.Type == elf.SHT_NULL {
		return nil, false
	}
	if s.Flags&elf.SHF_COMPRESSED != 0 {
		data, err := s.Data()
		if err != nil {
			return nil, false
		}
		return data, true
	}
	if s.Offset >= uint64(len(im.All)) {
		return []byte{}, true
	}
	end := s.Offset + s.FileSize
	if end > uint64(len(im.All)) {
		end = uint64(len(im.All))
	}
	return im.All[s.Offset:end], true
}

// Symbols returns the static symbols followed by the dynamic symbols.
// Stripped images simply yield fewer symbols.
func (im *Image) Symbols() []Sym {
	var out []Sym
	if syms, err := im.File.Symbols(); err == nil {
		for _, s := range syms {
			out = append(out, newSym(s))
		}
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		for _, s := range syms {
			out = append(out, newSym(s))
		}
	}
	return out
}

func newSym(s elf.Symbol) Sym {
	return Sym{
		Name:       s.Name,
		Value:      s.Value,
		Size:       s.Size,
		Type:       strings.TrimPrefix(elf.ST_TYPE(s.Info).String(), "STT_"),
		Bind:       strings.TrimPrefix(elf.ST_BIND(s.Info).String(), "STB_"),
		Visibility: strings.TrimPrefix(elf.ST_VISIBILITY(s.Other).String(), "STV_"),
		Section:    s.Section,
	}
}

// Libraries returns the DT_NEEDED entries.
func (im *Image) Libraries() []string {
	libs, err := im.File.ImportedLibraries()
	if err != nil {
		return nil
	}
	return libs
}

// LibraryPaths returns the DT_RUNPATH and DT_RPATH search paths.
func (im *Image) LibraryPaths() []string {
	var out []string
	for _, tag := range []elf.DynTag{elf.DT_RUNPATH, elf.DT_RPATH} {
		vals, err := im.File.DynString(tag)
		if err != nil {
			continue
		}
		for _, v := range vals {
			for _, p := range strings.Split(v, ":") {
				if p != "" {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// BinaryType returns the ELF object type without its ET_ prefix.
func (im *Image) BinaryType() string {
	return strings.TrimPrefix(im.File.Type.String(), "ET_")
}
