package main

// FixupKind distinguishes the relocation shapes this assembler produces.
// Only PC-relative 32-bit displacements are needed by the supported
// instruction set (CALL/JMP rel32, LEA rip-relative).
type FixupKind int

const (
	FixupPC32 FixupKind = iota
)

// LabelFixup records one place in .text where a symbol's address must be
// patched in once it is known. PatchOffset is the byte offset within .text
// where the 4-byte displacement begins; InstrEnd is the offset of the byte
// immediately following it, the reference point PC-relative displacements
// are computed from.
type LabelFixup struct {
	Symbol      string
	PatchOffset int
	InstrEnd    int
	Kind        FixupKind
}

// RelocationEntry is a fixup promoted to an ELF relocation because its
// target's final address is only known at link time: the target is either
// undefined/external, or defined in .data/.bss (in which case Symbol names
// that section's own section symbol).
type RelocationEntry struct {
	Offset uint64 // offset within .text where the patch applies
	Symbol string // target symbol name
	Addend int64
	SymIdx uint32 // filled in by SectionBuilder once .symtab order is known
}

// Relocator resolves every fixup recorded by the Encoder against the
// symbol table the driver built while encoding. A fixup whose target is defined in
// .text is patched directly with a PC-relative displacement; a fixup whose
// target is undefined (declared via .globl but never defined, or never
// mentioned outside this CALL/JMP/LEA at all, i.e. a libc-style external
// symbol resolved by the linker) is instead turned into a RelocationEntry
// for the ObjectWriter to emit into .rela.text.
type Relocator struct {
	text *ByteBuffer
	syms *SymbolRegistry
}

// NewRelocator returns a Relocator operating on text and syms.
func NewRelocator(text *ByteBuffer, syms *SymbolRegistry) *Relocator {
	return &Relocator{text: text, syms: syms}
}

// Resolve walks fixups in order, patching .text in place for locally
// defined targets and returning a RelocationEntry for every target that
// must be resolved at link time.
func (r *Relocator) Resolve(fixups []LabelFixup) ([]RelocationEntry, error) {
	var relocs []RelocationEntry
	for _, fx := range fixups {
		sym, ok := r.syms.Lookup(fx.Symbol)
		if !ok {
			// Referenced but never declared or defined anywhere in this
			// program: an external symbol resolved by the linker, e.g. a
			// libc call like `call printf` with no matching label.
			r.syms.Declare(fx.Symbol)
			sym, _ = r.syms.Lookup(fx.Symbol)
		}
		if sym.Defined && sym.SectionIndex == secText {
			disp := int32(sym.Value) - int32(fx.InstrEnd)
			r.text.Patch(fx.PatchOffset, le32(disp))
			continue
		}
		if sym.Defined {
			// Defined in .data/.bss: the target's final address isn't known
			// until the linker places the sections, so patch the
			// placeholder with the symbol's in-section offset as an
			// initial value and point the RELA entry at that section's own
			// symbol (one of the three STT_SECTION entries SectionBuilder
			// reserves), with an addend folding in both the offset and the
			// -4 PC-relative correction.
			offset := int32(sym.Value)
			r.text.Patch(fx.PatchOffset, le32(offset))
			relocs = append(relocs, RelocationEntry{
				Offset: uint64(fx.PatchOffset),
				Symbol: sectionNames[sym.SectionIndex],
				Addend: int64(offset) - 4,
			})
			continue
		}
		// Declared (.globl) but never defined: external symbol, resolved
		// by the linker against another object.
		relocs = append(relocs, RelocationEntry{
			Offset: uint64(fx.PatchOffset),
			Symbol: fx.Symbol,
			Addend: -4,
		})
	}
	return relocs, nil
}
