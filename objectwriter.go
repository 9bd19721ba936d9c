package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
)

// ObjectWriter serializes a BuildResult into a complete ELF64 ET_REL file.
// It never touches the filesystem: WriteTo takes any io.Writer, so tests
// can target a bytes.Buffer.
type ObjectWriter struct {
	result *BuildResult
}

// NewObjectWriter returns an ObjectWriter for result.
func NewObjectWriter(result *BuildResult) *ObjectWriter {
	return &ObjectWriter{result: result}
}

// WriteTo writes the full object file to w: ELF header, then every
// section's body in fixed index order, then the section header table.
func (ow *ObjectWriter) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	bodyOffsets := ow.layoutBodies()
	shoff := bodyOffsets[0]

	ehdr := Ehdr64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shoff),
		Ehsize:    ehdrSize,
		Shentsize: shdrSize,
		Shnum:     sectionCount,
		Shstrndx:  secShstrtab,
	}
	ehdr.Ident[0] = 0x7f
	ehdr.Ident[1] = 'E'
	ehdr.Ident[2] = 'L'
	ehdr.Ident[3] = 'F'
	ehdr.Ident[4] = byte(elf.ELFCLASS64)
	ehdr.Ident[5] = byte(elf.ELFDATA2LSB)
	ehdr.Ident[6] = byte(elf.EV_CURRENT)
	ehdr.Ident[7] = byte(elf.ELFOSABI_NONE)

	binary.Write(&buf, binary.LittleEndian, ehdr)

	for i := 1; i < sectionCount; i++ {
		sec := ow.result.Sections[i]
		if sec.Type == elfSHTNobits {
			continue
		}
		padTo(&buf, sec.Offset)
		switch i {
		case secSymtab:
			for _, e := range ow.result.SymEntries {
				binary.Write(&buf, binary.LittleEndian, Sym64{
					Name: e.Name, Info: e.Info, Shndx: e.Shndx, Value: e.Value, Size: e.Size,
				})
			}
		case secRelaText:
			for _, r := range ow.result.Relocations {
				binary.Write(&buf, binary.LittleEndian, Rela64{
					Offset: r.Offset,
					Info:   relaInfo(r.SymIdx, relocPC32),
					Addend: r.Addend,
				})
			}
		default:
			buf.Write(sec.Body)
		}
	}

	padTo(&buf, shoff)

	for i := 0; i < sectionCount; i++ {
		sec := ow.result.Sections[i]
		shdr := Shdr64{
			Name:      ow.shstrtabOffset(sec.Name),
			Type:      sec.Type,
			Flags:     sec.Flags,
			Off:       sec.Offset,
			Size:      sec.Size,
			Link:      sec.Link,
			Info:      sec.Info,
			Addralign: sec.Addralign,
			Entsize:   sec.EntSize,
		}
		if sec.Type != elfSHTNobits && sec.Type != elfSHTNull {
			shdr.Size = ow.sectionFileSize(i)
		}
		binary.Write(&buf, binary.LittleEndian, shdr)
	}

	return buf.WriteTo(w)
}

// padTo writes zero bytes until buf.Len() reaches offset, closing the gap
// left by aligning a section's sh_offset up to its sh_addralign.
func padTo(buf *bytes.Buffer, offset uint64) {
	if gap := int64(offset) - int64(buf.Len()); gap > 0 {
		buf.Write(make([]byte, gap))
	}
}

// sectionFileSize returns the number of bytes a section occupies in the
// file body (distinct from sec.Size, which for .bss is a virtual size).
func (ow *ObjectWriter) sectionFileSize(i int) uint64 {
	switch i {
	case secSymtab:
		return uint64(len(ow.result.SymEntries) * symEntSize)
	case secRelaText:
		return uint64(len(ow.result.Relocations) * relaEntSize)
	default:
		return ow.result.Sections[i].Size
	}
}

// layoutBodies computes the file offset of every section body in order,
// aligning each section's offset up to its sh_addralign before assigning
// it and aligning the final cursor up to shdrSize before it is used as
// e_shoff, and returns a slice where element i (i >= 1) is the offset
// immediately following section i's body and element 0, which has no body,
// holds that aligned start of the section header table.
func (ow *ObjectWriter) layoutBodies() []uint64 {
	offsets := make([]uint64, sectionCount)
	cursor := uint64(ehdrSize)
	for i := 1; i < sectionCount; i++ {
		sec := ow.result.Sections[i]
		if sec.Addralign > 1 {
			cursor = uint64(alignUp(int(cursor), int(sec.Addralign)))
		}
		sec.Offset = cursor
		if sec.Type == elfSHTNobits {
			offsets[i] = cursor
			continue
		}
		cursor += ow.sectionFileSize(i)
		offsets[i] = cursor
	}
	cursor = uint64(alignUp(int(cursor), shdrSize))
	offsets[0] = cursor
	return offsets
}

// shstrtabOffset looks up name's offset in .shstrtab. Sections share the
// fixed name list interned in declaration order by SectionBuilder, so the
// offset can be recomputed here without holding onto the StringTable.
func (ow *ObjectWriter) shstrtabOffset(name string) uint32 {
	if name == "" {
		return 0
	}
	offset := uint32(1) // byte 0 is the mandatory leading NUL
	for _, candidate := range sectionNames {
		if candidate == "" {
			continue
		}
		if candidate == name {
			return offset
		}
		offset += uint32(len(candidate)) + 1
	}
	return 0
}
