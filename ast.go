package main

// Program is the fully parsed input: an ordered list of operations destined
// for .text, plus the byte payloads destined for .data and the reservations
// destined for .bss. Label placement is recorded on the operation or data
// item it precedes, not as a separate statement kind.
type Program struct {
	Operations []*Operation
	DataItems  []*DataItem
	BssItems   []*BssItem
	Globals    map[string]bool // names declared via .globl
}

// NewProgram returns an empty Program ready to be populated by the parser.
func NewProgram() *Program {
	return &Program{Globals: make(map[string]bool)}
}

// Operation is one instruction line: a mnemonic plus its operand list. Label
// is the symbol name defined at this operation's address, or "" if no label
// precedes it.
type Operation struct {
	Mnemonic string
	Operands []Operand
	Label    string
	Pos      SourcePos
}

// OperandKind distinguishes the operand variants spec.md's data model
// names: immediates, registers, base+displacement/RIP-relative memory references,
// and bare symbol references (jump and call targets).
type OperandKind int

const (
	OperandImmediate OperandKind = iota
	OperandRegister
	OperandMemory
	OperandSymbol
)

// Operand is a tagged union over the four operand shapes this assembler
// accepts. Only the fields matching Kind are meaningful.
type Operand struct {
	Kind OperandKind

	// OperandImmediate
	ImmValue int64

	// OperandRegister
	Reg Register

	// OperandMemory: [BaseReg + Disp], or RIP-relative when RIPRelative is
	// set (in which case Symbol names the displacement target instead of a
	// numeric Disp).
	BaseReg     Register
	Disp        int32
	RIPRelative bool
	Symbol      string

	// OperandSymbol: a bare label operand, as used by CALL/JMP.
	SymbolName string
}

// DataItem is one initialized value appended to .data, produced by a
// .byte/.word/.long/.quad/.ascii/.asciz directive. Label is the symbol name
// bound to this item's starting offset, or "" if none.
type DataItem struct {
	Bytes []byte
	Label string
	Pos   SourcePos
}

// BssItem is one .bss reservation produced by .zero/.skip: it advances the
// section's virtual size without writing bytes. Label is the symbol name
// bound to this item's starting offset, or "" if none.
type BssItem struct {
	Size  int
	Label string
	Pos   SourcePos
}

// SourcePos is the one-based source line an entity was parsed from, used
// for diagnostics only.
type SourcePos struct {
	Line int
}
