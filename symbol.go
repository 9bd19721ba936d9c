package main

// SymbolBinding classifies a symbol for .symtab ordering: all STB_LOCAL
// entries must precede all STB_GLOBAL entries, with sh_info on .symtab
// recording the count of locals.
type SymbolBinding int

const (
	BindLocal SymbolBinding = iota
	BindGlobal
)

// Symbol is one entry a program defines or declares. Defined is false for
// a name that was only mentioned (.globl without a matching label, or a
// call/jmp/lea target never placed as a label); such a symbol becomes an
// undefined external resolved by the linker.
type Symbol struct {
	Name         string
	Binding      SymbolBinding
	Defined      bool
	Value        uint64 // offset within its section, meaningful only if Defined
	SectionIndex int    // secText / secData / secBss, meaningful only if Defined
}

// SymbolRegistry tracks every symbol name of the program: labels
// (definitions), .globl declarations (binding upgrades), and undeclared
// fixup targets the Relocator registers as externals. It has no
// notion of section layout; Value is the in-section offset recorded at
// definition time, not a final file offset.
type SymbolRegistry struct {
	syms map[string]*Symbol
	// order preserves first-encounter order so .symtab emission is
	// deterministic across runs of the same input.
	order []string
}

// NewSymbolRegistry returns an empty registry.
func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{syms: make(map[string]*Symbol)}
}

func (r *SymbolRegistry) entry(name string) *Symbol {
	if s, ok := r.syms[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Binding: BindLocal}
	r.syms[name] = s
	r.order = append(r.order, name)
	return s
}

// Declare marks name as globally bound without defining it. Used for
// .globl declarations that precede the matching label, and for forward
// references to external symbols.
func (r *SymbolRegistry) Declare(name string) {
	r.entry(name).Binding = BindGlobal
}

// Define binds name's address within section to value. It is an error to
// define the same name twice.
func (r *SymbolRegistry) Define(name string, section int, value uint64) error {
	s := r.entry(name)
	if s.Defined {
		return errf(ErrDuplicateSymbol, 0, "symbol %q defined more than once", name)
	}
	s.Defined = true
	s.SectionIndex = section
	s.Value = value
	return nil
}

// Lookup returns the symbol registered under name, if any.
func (r *SymbolRegistry) Lookup(name string) (*Symbol, bool) {
	s, ok := r.syms[name]
	return s, ok
}

// All returns every registered symbol in first-encounter order.
func (r *SymbolRegistry) All() []*Symbol {
	out := make([]*Symbol, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.syms[name])
	}
	return out
}

// Locals returns every local (non-.globl) defined symbol, in
// first-encounter order; these occupy the low indices of .symtab.
func (r *SymbolRegistry) Locals() []*Symbol {
	var out []*Symbol
	for _, s := range r.All() {
		if s.Binding == BindLocal {
			out = append(out, s)
		}
	}
	return out
}

// Globals returns every .globl-bound symbol, defined or not, in
// first-encounter order; these occupy the high indices of .symtab.
func (r *SymbolRegistry) Globals() []*Symbol {
	var out []*Symbol
	for _, s := range r.All() {
		if s.Binding == BindGlobal {
			out = append(out, s)
		}
	}
	return out
}
