package main

// Encoder turns one Operation into machine code bytes appended to a
// section's ByteBuffer, emitting a LabelFixup whenever an operand names a
// symbol whose address isn't known yet. It never consults the symbol table
// itself; that's the Relocator's job once every operation has been encoded
// and every section's final layout is known.
//
// REX prefix layout (Intel SDM 2.2.1): 0100WRXB. W selects 64-bit operand
// size, R extends ModR/M.reg, X extends SIB.index (unused here, no indexed
// addressing), B extends ModR/M.rm or an opcode+reg byte.
const (
	rexBase = 0x40
	rexW    = 0x08
	rexR    = 0x04
	rexB    = 0x01
)

// modrm builds a ModR/M byte from its three fields.
func modrm(mod, reg, rm uint8) uint8 {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func le32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func le64(v int64) []byte {
	u := uint64(v)
	return []byte{
		byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24),
		byte(u >> 32), byte(u >> 40), byte(u >> 48), byte(u >> 56),
	}
}

// Encoder emits .text bytes for a sequence of operations and collects the
// fixups the Relocator will later resolve.
type Encoder struct {
	text   *ByteBuffer
	fixups []LabelFixup
}

// NewEncoder returns an Encoder writing into text.
func NewEncoder(text *ByteBuffer) *Encoder {
	return &Encoder{text: text}
}

// Fixups returns every fixup recorded so far.
func (e *Encoder) Fixups() []LabelFixup {
	return e.fixups
}

// Encode appends op's machine code to .text, recording a fixup for any
// operand that refers to a symbol by name.
func (e *Encoder) Encode(op *Operation) error {
	switch op.Mnemonic {
	case "ret":
		e.text.AppendByte(0xC3)
		return nil
	case "nop":
		e.text.AppendByte(0x90)
		return nil
	case "mov":
		return e.encodeMov(op)
	case "call":
		return e.encodeRel32(op, 0xE8)
	case "jmp":
		return e.encodeRel32(op, 0xE9)
	case "push":
		return e.encodePushPop(op, 0x50)
	case "pop":
		return e.encodePushPop(op, 0x58)
	case "add":
		return e.encodeArith(op, 0x01)
	case "sub":
		return e.encodeArith(op, 0x29)
	case "lea":
		return e.encodeLea(op)
	default:
		return errf(ErrUnknownMnemonic, op.Pos.Line, "unknown mnemonic %q", op.Mnemonic)
	}
}

// encodeMov handles MOV r64, r64 / MOV r64, imm32 / MOV r64, [r64+disp32] /
// MOV [r64+disp32], r64.
func (e *Encoder) encodeMov(op *Operation) error {
	if len(op.Operands) != 2 {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "mov requires two operands")
	}
	dst, src := op.Operands[0], op.Operands[1]

	switch {
	case dst.Kind == OperandRegister && src.Kind == OperandRegister:
		if dst.Reg.Width != 64 || src.Reg.Width != 64 {
			return errf(ErrOperandTypeMismatch, op.Pos.Line, "mov operand widths must agree and be 64-bit")
		}
		rex := uint8(rexBase | rexW)
		if src.Reg.Extended {
			rex |= rexR
		}
		if dst.Reg.Extended {
			rex |= rexB
		}
		e.text.AppendByte(rex)
		e.text.AppendByte(0x89)
		e.text.AppendByte(modrm(0b11, src.Reg.modrmEncoding(), dst.Reg.modrmEncoding()))
		return nil

	case dst.Kind == OperandRegister && src.Kind == OperandImmediate:
		if dst.Reg.Width != 64 {
			return errf(ErrOperandTypeMismatch, op.Pos.Line, "mov immediate destination must be 64-bit")
		}
		rex := uint8(rexBase | rexW)
		if dst.Reg.Extended {
			rex |= rexB
		}
		e.text.AppendByte(rex)
		e.text.AppendByte(0xC7)
		e.text.AppendByte(modrm(0b11, 0, dst.Reg.modrmEncoding()))
		if src.ImmValue < -(1<<31) || src.ImmValue > (1<<31)-1 {
			return errf(ErrOperandTypeMismatch, op.Pos.Line, "immediate %d does not fit in 32 bits", src.ImmValue)
		}
		e.text.Append(le32(int32(src.ImmValue)))
		return nil

	case dst.Kind == OperandRegister && src.Kind == OperandMemory:
		return e.encodeMovRegMem(op, dst.Reg, src, true)

	case dst.Kind == OperandMemory && src.Kind == OperandRegister:
		return e.encodeMovRegMem(op, src.Reg, dst, false)

	default:
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "unsupported mov operand combination")
	}
}

// encodeMovRegMem handles both directions of MOV r64, [base+disp32]. When
// regIsDest is true the register is the destination (opcode 0x8B);
// otherwise it's the source (opcode 0x89).
func (e *Encoder) encodeMovRegMem(op *Operation, reg Register, mem Operand, regIsDest bool) error {
	if reg.Width != 64 || mem.BaseReg.Width != 64 {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "mov memory operand must be 64-bit")
	}
	if mem.RIPRelative {
		return errf(ErrUnsupportedEncoding, op.Pos.Line, "mov does not support rip-relative operands, use lea")
	}
	opcode := uint8(0x89)
	if regIsDest {
		opcode = 0x8B
	}
	rex := uint8(rexBase | rexW)
	if reg.Extended {
		rex |= rexR
	}
	if mem.BaseReg.Extended {
		rex |= rexB
	}
	e.text.AppendByte(rex)
	e.text.AppendByte(opcode)
	e.text.AppendByte(modrm(0b10, reg.modrmEncoding(), mem.BaseReg.modrmEncoding()))
	if mem.BaseReg.modrmEncoding() == 4 {
		// SIB byte required when rm selects rsp/r12; base=rm, no index.
		e.text.AppendByte(modrm(0, 4, mem.BaseReg.modrmEncoding()))
	}
	e.text.Append(le32(mem.Disp))
	return nil
}

// encodeRel32 handles CALL rel32 and JMP rel32, both single-byte opcode
// forms followed by a 32-bit displacement that the Relocator patches once
// the target address (local or external) is known.
func (e *Encoder) encodeRel32(op *Operation, opcode uint8) error {
	if len(op.Operands) != 1 || op.Operands[0].Kind != OperandSymbol {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "%s requires a single symbol operand", op.Mnemonic)
	}
	e.text.AppendByte(opcode)
	patchOffset := e.text.Size()
	e.text.Append([]byte{0, 0, 0, 0})
	e.fixups = append(e.fixups, LabelFixup{
		Symbol:      op.Operands[0].SymbolName,
		PatchOffset: patchOffset,
		InstrEnd:    patchOffset + 4,
		Kind:        FixupPC32,
	})
	return nil
}

// encodePushPop handles PUSH r64 / POP r64: single-byte opcode+reg, REX.B
// only when the register is r8-r15.
func (e *Encoder) encodePushPop(op *Operation, baseOpcode uint8) error {
	if len(op.Operands) != 1 || op.Operands[0].Kind != OperandRegister {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "%s requires a single register operand", op.Mnemonic)
	}
	reg := op.Operands[0].Reg
	if reg.Width != 64 {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "%s operand must be 64-bit", op.Mnemonic)
	}
	if reg.Extended {
		e.text.AppendByte(rexBase | rexB)
	}
	e.text.AppendByte(baseOpcode + reg.modrmEncoding())
	return nil
}

// encodeArith handles ADD r64, r64 and SUB r64, r64, which share MOV's
// register-to-register ModR/M shape under a different opcode.
func (e *Encoder) encodeArith(op *Operation, opcode uint8) error {
	if len(op.Operands) != 2 || op.Operands[0].Kind != OperandRegister || op.Operands[1].Kind != OperandRegister {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "%s requires two register operands", op.Mnemonic)
	}
	dst, src := op.Operands[0].Reg, op.Operands[1].Reg
	if dst.Width != 64 || src.Width != 64 {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "%s operand widths must agree and be 64-bit", op.Mnemonic)
	}
	rex := uint8(rexBase | rexW)
	if src.Extended {
		rex |= rexR
	}
	if dst.Extended {
		rex |= rexB
	}
	e.text.AppendByte(rex)
	e.text.AppendByte(opcode)
	e.text.AppendByte(modrm(0b11, src.modrmEncoding(), dst.modrmEncoding()))
	return nil
}

// encodeLea handles LEA r64, [rip+symbol]: the only memory form that
// addresses .data/.bss without an absolute address, since ET_REL output
// has no fixed load address.
func (e *Encoder) encodeLea(op *Operation) error {
	if len(op.Operands) != 2 || op.Operands[0].Kind != OperandRegister || op.Operands[1].Kind != OperandMemory {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "lea requires a register and a rip-relative memory operand")
	}
	dst, mem := op.Operands[0].Reg, op.Operands[1]
	if !mem.RIPRelative {
		return errf(ErrUnsupportedEncoding, op.Pos.Line, "lea only supports rip-relative operands")
	}
	if dst.Width != 64 {
		return errf(ErrOperandTypeMismatch, op.Pos.Line, "lea destination must be 64-bit")
	}
	rex := uint8(rexBase | rexW)
	if dst.Extended {
		rex |= rexR
	}
	e.text.AppendByte(rex)
	e.text.AppendByte(0x8D)
	e.text.AppendByte(modrm(0b00, dst.modrmEncoding(), 0b101))
	patchOffset := e.text.Size()
	e.text.Append([]byte{0, 0, 0, 0})
	e.fixups = append(e.fixups, LabelFixup{
		Symbol:      mem.Symbol,
		PatchOffset: patchOffset,
		InstrEnd:    patchOffset + 4,
		Kind:        FixupPC32,
	})
	return nil
}
