package image

import (
	"bytes"
	"debug/elf"
	"fmt"
	"sort"
)

type segment struct {
	addr uint64
	data []byte
}

// parseELF flattens the PT_LOAD segments of a 32-bit little-endian ELF file.
// Segments are placed at their physical (load) address.
func parseELF(raw []byte) (*Loadable, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: %s, only ELFCLASS32 is supported", ErrUnsupportedFormat, f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: %s, only little-endian is supported", ErrUnsupportedFormat, f.Data)
	}

	var segs []segment
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		if err := checkRelocations(f, p); err != nil {
			return nil, err
		}

		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("failed to read segment at 0x%08X: %w", p.Paddr, err)
		}
		segs = append(segs, segment{addr: p.Paddr, data: data})
	}

	if len(segs) == 0 {
		return nil, ErrEmptyImage
	}
	return flatten(segs, 0x00)
}

// checkRelocations rejects a segment that holds a section with pending
// relocations.
func checkRelocations(f *elf.File, p *elf.Prog) error {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		if int(s.Info) >= len(f.Sections) {
			continue
		}
		target := f.Sections[s.Info]
		if target.Type == elf.SHT_NOBITS || target.Size == 0 {
			continue
		}
		if target.Offset >= p.Off && target.Offset+target.Size <= p.Off+p.Filesz {
			return fmt.Errorf("%w: section %s needs relocation (%s)", ErrUnsupportedFormat, target.Name, s.Name)
		}
	}
	return nil
}

// flatten lays segments out in one buffer starting at the lowest address,
// filling gaps with fill. Later segments win where they overlap.
func flatten(segs []segment, fill byte) (*Loadable, error) {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].addr < segs[j].addr })

	low := segs[0].addr
	var high uint64
	for _, s := range segs {
		high = max(high, s.addr+uint64(len(s.data)))
	}
	if high > 1<<32 {
		return nil, fmt.Errorf("%w: image ends at 0x%X, beyond the 32-bit address space", ErrUnsupportedFormat, high)
	}

	out := make([]byte, high-low)
	if fill != 0 {
		for i := range out {
			out[i] = fill
		}
	}
	for _, s := range segs {
		copy(out[s.addr-low:], s.data)
	}
	return &Loadable{Addr: uint32(low), Data: out}, nil
}
