// Package elfx provides ELF loading helpers for ARM64 binaries under
// analysis: executable-region extraction and function-symbol seeds for
// control-flow recovery.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
)

var (
	ErrNotELF    = errors.New("elfx: not an ELF file")
	ErrNotARM64  = errors.New("elfx: not ARM64 (EM_AARCH64)")
	ErrNot64Bit  = errors.New("elfx: not 64-bit ELF")
	ErrNoText    = errors.New("elfx: no executable region")
	ErrNoSegment = errors.New("elfx: no PT_LOAD segment covers address")
)

// File wraps a debug/elf.File with convenience methods for recovery.
type File struct {
	ELF  *elf.File
	raw  io.ReaderAt
	size int64
}

// Open opens an ELF file and validates it is a 64-bit ARM64 executable or
// shared object.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("elfx: stat: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}

	if ef.Class != elf.ELFCLASS64 {
		ef.Close()
		return nil, ErrNot64Bit
	}
	if ef.Machine != elf.EM_AARCH64 {
		ef.Close()
		return nil, ErrNotARM64
	}

	return &File{ELF: ef, raw: f, size: info.Size()}, nil
}

// Close releases resources.
func (f *File) Close() error {
	return f.ELF.Close()
}

// FileSize returns the size of the underlying file.
func (f *File) FileSize() int64 { return f.size }

// Text returns the bytes and virtual address of the executable region:
// the .text section if present, otherwise the first executable PT_LOAD
// segment.
func (f *File) Text() (data []byte, va uint64, err error) {
	if sec := f.ELF.Section(".text"); sec != nil && sec.Type != elf.SHT_NOBITS {
		data, err = sec.Data()
		if err != nil {
			return nil, 0, fmt.Errorf("elfx: read .text: %w", err)
		}
		return data, sec.Addr, nil
	}

	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD || p.Flags&elf.PF_X == 0 {
			continue
		}
		n, err := safecast.Conv[int](p.Filesz)
		if err != nil {
			return nil, 0, fmt.Errorf("elfx: segment size: %w", err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(io.NewSectionReader(p, 0, int64(n)), buf); err != nil {
			return nil, 0, fmt.Errorf("elfx: read exec segment: %w", err)
		}
		return buf, p.Vaddr, nil
	}
	return nil, 0, ErrNoText
}

// FuncSym is a function symbol usable as a recovery entry point.
type FuncSym struct {
	Name string
	Addr uint64
	Size uint64
}

// FuncSymbols returns all STT_FUNC symbols with a non-zero address, from
// the symbol table if present, else the dynamic symbol table. A stripped
// binary yields none; callers then seed recovery from the text base.
func (f *File) FuncSymbols() []FuncSym {
	syms, err := f.ELF.Symbols()
	if err != nil {
		syms, err = f.ELF.DynamicSymbols()
		if err != nil {
			return nil
		}
	}
	var out []FuncSym
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 {
			continue
		}
		out = append(out, FuncSym{Name: s.Name, Addr: s.Value, Size: s.Size})
	}
	return out
}

// VAToFileOffset converts a virtual address to a file offset using PT_LOAD segments.
func (f *File) VAToFileOffset(va uint64) (uint64, error) {
	for _, p := range f.ELF.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if va >= p.Vaddr && va < p.Vaddr+p.Memsz {
			offset := va - p.Vaddr + p.Off
			if offset >= uint64(f.size) {
				return 0, fmt.Errorf("elfx: VA 0x%x maps to offset 0x%x beyond file size 0x%x", va, offset, f.size)
			}
			return offset, nil
		}
	}
	return 0, fmt.Errorf("%w: VA 0x%x", ErrNoSegment, va)
}

// ReadBytesAtVA reads up to n bytes starting at the given virtual address.
func (f *File) ReadBytesAtVA(va uint64, n int) ([]byte, error) {
	off, err := f.VAToFileOffset(va)
	if err != nil {
		return nil, err
	}
	avail := f.size - int64(off)
	if avail <= 0 {
		return nil, fmt.Errorf("elfx: offset 0x%x at or past end of file", off)
	}
	if int64(n) > avail {
		n = int(avail)
	}
	buf := make([]byte, n)
	_, err = f.raw.ReadAt(buf, int64(off))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("elfx: read at 0x%x: %w", off, err)
	}
	return buf, nil
}
