package main

// Fixed section index order for the ET_REL object this assembler produces.
// Every object has exactly these eight section header table entries, in
// this order; nothing is ever added or removed.
const (
	secNull = iota
	secText
	secData
	secBss
	secRelaText
	secSymtab
	secStrtab
	secShstrtab
	sectionCount
)

// sectionNames gives the on-disk name for each fixed section index, used
// to populate .shstrtab.
var sectionNames = [sectionCount]string{
	secNull:     "",
	secText:     ".text",
	secData:     ".data",
	secBss:      ".bss",
	secRelaText: ".rela.text",
	secSymtab:   ".symtab",
	secStrtab:   ".strtab",
	secShstrtab: ".shstrtab",
}

// Section holds one section's raw contents plus the metadata needed to
// build its Shdr64 once every section's size is known. NoBits sections
// (.bss) contribute to sh_size without occupying any file bytes.
type Section struct {
	Name      string
	Type      uint32
	Flags     uint64
	Body      []byte
	Size      uint64 // for NoBits sections, Size is virtual and Body is empty
	Addralign uint64
	EntSize   uint64
	Link      uint32 // section-header-index cross reference, e.g. .rela.text -> .symtab
	Info      uint32

	Offset uint64 // filled in during layout
}

// SectionBuilder assembles the fixed eight-section layout from the
// Program's encoded .text, .data, .bss and the resolved symbol/relocation
// tables. File offsets are not computed here; ObjectWriter lays them out.
type SectionBuilder struct {
	text     *ByteBuffer
	data     *ByteBuffer
	bssSize  int
	relocs   []RelocationEntry
	syms     *SymbolRegistry
	strtab   *StringTable
	shstrtab *StringTable
}

// NewSectionBuilder returns a SectionBuilder over the encoded section
// bodies, the resolved relocation list, and the symbol registry.
func NewSectionBuilder(text, data *ByteBuffer, bssSize int, relocs []RelocationEntry, syms *SymbolRegistry) *SectionBuilder {
	return &SectionBuilder{
		text:     text,
		data:     data,
		bssSize:  bssSize,
		relocs:   relocs,
		syms:     syms,
		strtab:   NewStringTable(),
		shstrtab: NewStringTable(),
	}
}

// symtabEntry mirrors the fields of a Sym64 before it's serialized, kept
// here so SectionBuilder can assign the final index (needed by relocation
// entries) before ObjectWriter encodes the raw bytes.
type symtabEntry struct {
	Name  uint32
	Info  uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

// BuildResult is everything ObjectWriter needs: the eight Section bodies
// in fixed order, the symtab entries in final order, and each relocation
// entry with its symbol index resolved.
type BuildResult struct {
	Sections    [sectionCount]*Section
	SymEntries  []symtabEntry
	NumLocals   int // sh_info for .symtab
	Relocations []RelocationEntry
}

// reservedSymtabCount is the number of fixed entries every .symtab carries
// before any user symbol: the null entry and one STT_SECTION entry per
// section that can define a symbol.
const reservedSymtabCount = 4

// Build fills in the metadata and bodies of all eight sections and produces
// the final, index-resolved symbol and relocation tables.
func (sb *SectionBuilder) Build() (*BuildResult, error) {
	locals := sb.syms.Locals()
	globals := sb.syms.Globals()

	// symIndex maps a user-visible symbol name, or a section name for the
	// three reserved STT_SECTION entries below, to its final .symtab index;
	// used to resolve relocation SymIdx below.
	symIndex := make(map[string]uint32, len(locals)+len(globals)+3)
	entries := make([]symtabEntry, 0, reservedSymtabCount+len(locals)+len(globals))

	// Entry 0: null symbol, mandated by the ELF spec.
	entries = append(entries, symtabEntry{})
	// Entries 1-3: one STT_SECTION symbol per section capable of defining
	// a label (.text, .data, .bss). A Relocator fixup against a .data/.bss
	// symbol targets these directly, by section name, instead of the user
	// label, since the label's own section-relative address isn't resolved
	// from within this object.
	for _, secIdx := range []int{secText, secData, secBss} {
		symIndex[sectionNames[secIdx]] = uint32(len(entries))
		entries = append(entries, symtabEntry{
			Info:  elfSymInfo(elfSTBLocal, elfSTTSection),
			Shndx: uint16(secIdx),
		})
	}

	appendUserSymbol := func(s *Symbol, binding uint8) {
		nameOff := sb.strtab.Intern(s.Name)
		var shndx uint16
		var stype uint8 = elfSTTNoType
		if s.Defined {
			shndx = uint16(s.SectionIndex)
			stype = elfSTTFunc
			if s.SectionIndex != secText {
				stype = elfSTTObject
			}
		}
		symIndex[s.Name] = uint32(len(entries))
		entries = append(entries, symtabEntry{
			Name:  nameOff,
			Info:  elfSymInfo(binding, stype),
			Shndx: shndx,
			Value: s.Value,
		})
	}

	for _, s := range locals {
		appendUserSymbol(s, elfSTBLocal)
	}
	numLocals := reservedSymtabCount + len(locals)
	for _, s := range globals {
		appendUserSymbol(s, elfSTBGlobal)
	}

	relocs := make([]RelocationEntry, len(sb.relocs))
	for i, r := range sb.relocs {
		idx, ok := symIndex[r.Symbol]
		if !ok {
			return nil, errf(ErrUnsupportedEncoding, 0, "relocation against unknown symbol %q", r.Symbol)
		}
		r.SymIdx = idx
		relocs[i] = r
	}

	for _, name := range sectionNames {
		if name != "" {
			sb.shstrtab.Intern(name)
		}
	}
	// sectionNames is an array, so the loop above interns names in index
	// order; ObjectWriter.shstrtabOffset recomputes the same offsets.

	var result BuildResult
	result.SymEntries = entries
	result.NumLocals = numLocals
	result.Relocations = relocs

	result.Sections[secNull] = &Section{Name: "", Type: elfSHTNull}
	result.Sections[secText] = &Section{
		Name: ".text", Type: elfSHTProgbits, Flags: elfSHFAlloc | elfSHFExecinstr,
		Body: sb.text.Bytes(), Size: uint64(sb.text.Size()), Addralign: 1,
	}
	result.Sections[secData] = &Section{
		Name: ".data", Type: elfSHTProgbits, Flags: elfSHFAlloc | elfSHFWrite,
		Body: sb.data.Bytes(), Size: uint64(sb.data.Size()), Addralign: 1,
	}
	result.Sections[secBss] = &Section{
		Name: ".bss", Type: elfSHTNobits, Flags: elfSHFAlloc | elfSHFWrite,
		Size: uint64(sb.bssSize), Addralign: 1,
	}
	result.Sections[secRelaText] = &Section{
		Name: ".rela.text", Type: elfSHTRela, Flags: elfSHFInfoLink, EntSize: relaEntSize,
		Link: secSymtab, Info: secText, Addralign: 8,
	}
	result.Sections[secSymtab] = &Section{
		Name: ".symtab", Type: elfSHTSymtab, EntSize: symEntSize,
		Link: secStrtab, Info: uint32(numLocals), Addralign: 8,
	}
	result.Sections[secStrtab] = &Section{
		Name: ".strtab", Type: elfSHTStrtab, Body: sb.strtab.Bytes(), Size: uint64(sb.strtab.Size()), Addralign: 1,
	}
	result.Sections[secShstrtab] = &Section{
		Name: ".shstrtab", Type: elfSHTStrtab, Body: sb.shstrtab.Bytes(), Size: uint64(sb.shstrtab.Size()), Addralign: 1,
	}

	return &result, nil
}
