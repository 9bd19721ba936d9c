package main

import "testing"

func TestSectionBuilderFixedIndexOrder(t *testing.T) {
	text := NewByteBuffer()
	data := NewByteBuffer()
	syms := NewSymbolRegistry()
	sb := NewSectionBuilder(text, data, 0, nil, syms)
	result, err := sb.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	wantNames := []string{"", ".text", ".data", ".bss", ".rela.text", ".symtab", ".strtab", ".shstrtab"}
	for i, want := range wantNames {
		if result.Sections[i].Name != want {
			t.Fatalf("Sections[%d].Name = %q, want %q", i, result.Sections[i].Name, want)
		}
	}
}

func TestSectionBuilderReservedSymtabEntries(t *testing.T) {
	text := NewByteBuffer()
	data := NewByteBuffer()
	syms := NewSymbolRegistry()
	sb := NewSectionBuilder(text, data, 0, nil, syms)
	result, err := sb.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(result.SymEntries) != reservedSymtabCount {
		t.Fatalf("SymEntries = %d, want %d reserved entries with no user symbols", len(result.SymEntries), reservedSymtabCount)
	}
	if result.NumLocals != reservedSymtabCount {
		t.Fatalf("NumLocals = %d, want %d", result.NumLocals, reservedSymtabCount)
	}
}

func TestSectionBuilderLocalsPrecedeGlobalsInSymtab(t *testing.T) {
	text := NewByteBuffer()
	data := NewByteBuffer()
	syms := NewSymbolRegistry()
	syms.Declare("main")
	syms.Define("main", secText, 0)
	syms.Define("helper", secText, 8)

	sb := NewSectionBuilder(text, data, 0, nil, syms)
	result, err := sb.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	// reserved(4) + helper(local) at index 4, main(global) at index 5
	if result.NumLocals != reservedSymtabCount+1 {
		t.Fatalf("NumLocals = %d, want %d", result.NumLocals, reservedSymtabCount+1)
	}
	if len(result.SymEntries) != reservedSymtabCount+2 {
		t.Fatalf("SymEntries count = %d, want %d", len(result.SymEntries), reservedSymtabCount+2)
	}
}

func TestSectionBuilderRelaTextHasInfoLinkFlag(t *testing.T) {
	text := NewByteBuffer()
	data := NewByteBuffer()
	syms := NewSymbolRegistry()
	sb := NewSectionBuilder(text, data, 0, nil, syms)
	result, err := sb.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	rela := result.Sections[secRelaText]
	if rela.Flags&elfSHFInfoLink == 0 {
		t.Fatalf("rela.text Flags = %#x, want SHF_INFO_LINK set", rela.Flags)
	}
}

func TestSectionBuilderBssHasNoBody(t *testing.T) {
	text := NewByteBuffer()
	data := NewByteBuffer()
	syms := NewSymbolRegistry()
	sb := NewSectionBuilder(text, data, 64, nil, syms)
	result, err := sb.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	bss := result.Sections[secBss]
	if bss.Size != 64 {
		t.Fatalf("bss.Size = %d, want 64", bss.Size)
	}
	if len(bss.Body) != 0 {
		t.Fatalf("bss.Body = %v, want empty (SHT_NOBITS)", bss.Body)
	}
	if bss.Type != elfSHTNobits {
		t.Fatalf("bss.Type = %d, want SHT_NOBITS", bss.Type)
	}
}
