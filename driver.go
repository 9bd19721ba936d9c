package main

import "sort"

// AssemblerDriver runs the fixed pipeline a Program goes through to become
// an ELF64 relocatable object: encode every operation into .text, resolve
// every fixup against the symbol table, lay out the eight sections, then
// hand the result to an ObjectWriter. Stages run exactly once and in this
// order; nothing re-enters an earlier stage.
type AssemblerDriver struct {
	prog *Program
}

// NewAssemblerDriver returns a driver for prog.
func NewAssemblerDriver(prog *Program) *AssemblerDriver {
	return &AssemblerDriver{prog: prog}
}

// Assemble runs the full pipeline and returns the finished BuildResult.
func (d *AssemblerDriver) Assemble() (*BuildResult, error) {
	syms := NewSymbolRegistry()
	// Declare .globl names in name order so .symtab order does not depend on
	// map iteration order.
	globals := make([]string, 0, len(d.prog.Globals))
	for name := range d.prog.Globals {
		globals = append(globals, name)
	}
	sort.Strings(globals)
	for _, name := range globals {
		syms.Declare(name)
	}

	text := NewByteBuffer()
	data := NewByteBuffer()
	bssSize := 0

	enc := NewEncoder(text)

	// First pass: walk operations in order, defining each label at the
	// running .text offset before encoding the operation it precedes. Every
	// symbol operand, forward or backward, produces a fixup; all of them are
	// resolved by the Relocator once every label is defined.
	for _, op := range d.prog.Operations {
		if op.Label != "" {
			if err := syms.Define(op.Label, secText, uint64(text.Size())); err != nil {
				return nil, err
			}
		}
		if err := enc.Encode(op); err != nil {
			return nil, err
		}
	}

	for _, item := range d.prog.DataItems {
		if item.Label != "" {
			if err := syms.Define(item.Label, secData, uint64(data.Size())); err != nil {
				return nil, err
			}
		}
		data.Append(item.Bytes)
	}

	for _, item := range d.prog.BssItems {
		if item.Label != "" {
			if err := syms.Define(item.Label, secBss, uint64(bssSize)); err != nil {
				return nil, err
			}
		}
		bssSize += item.Size
	}

	rel := NewRelocator(text, syms)
	relocs, err := rel.Resolve(enc.Fixups())
	if err != nil {
		return nil, err
	}

	sb := NewSectionBuilder(text, data, bssSize, relocs, syms)
	return sb.Build()
}
