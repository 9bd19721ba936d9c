package main

// Parser is a recursive-descent parser over the token stream produced by
// Lexer. It builds a Program directly; there is no separate AST pass.
type Parser struct {
	lex          *Lexer
	tok          Token
	section      int // current section: secText, secData, or secBss
	prog         *Program
	pendingLabel string
}

// NewParser returns a Parser ready to parse source.
func NewParser(source string) *Parser {
	p := &Parser{lex: NewLexer(source), section: secText, prog: NewProgram()}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.tok = p.lex.NextToken()
}

// Parse consumes the entire input and returns the resulting Program.
func (p *Parser) Parse() (*Program, error) {
	for {
		p.skipNewlines()
		if p.tok.Type == TokEOF {
			break
		}
		if err := p.parseLine(); err != nil {
			return nil, err
		}
	}
	return p.prog, nil
}

func (p *Parser) skipNewlines() {
	for p.tok.Type == TokNewline {
		p.advance()
	}
}

func (p *Parser) parseLine() error {
	switch p.tok.Type {
	case TokDirective:
		return p.parseDirective()
	case TokIdent:
		// Either "label:" or a mnemonic starting an instruction.
		name := p.tok.Value
		line := p.tok.Line
		p.advance()
		if p.tok.Type == TokColon {
			p.advance()
			p.pendingLabel = name
			return nil
		}
		return p.parseInstruction(name, line)
	default:
		return errf(ErrLexOrParse, p.tok.Line, "unexpected token %q", p.tok.Value)
	}
}

func (p *Parser) parseDirective() error {
	name := p.tok.Value
	line := p.tok.Line
	p.advance()

	switch name {
	case ".intel_syntax":
		// Accept and discard the trailing "noprefix" identifier if present.
		if p.tok.Type == TokIdent {
			p.advance()
		}
		return nil
	case ".globl", ".global":
		if p.tok.Type != TokIdent {
			return errf(ErrLexOrParse, line, ".globl requires a symbol name")
		}
		p.prog.Globals[p.tok.Value] = true
		p.advance()
		return nil
	case ".text":
		p.section = secText
		return nil
	case ".data":
		p.section = secData
		return nil
	case ".bss":
		p.section = secBss
		return nil
	case ".byte":
		return p.parseDataDirective(line, 1)
	case ".word":
		return p.parseDataDirective(line, 2)
	case ".long":
		return p.parseDataDirective(line, 4)
	case ".quad":
		return p.parseDataDirective(line, 8)
	case ".ascii":
		return p.parseAsciiDirective(line, false)
	case ".asciz", ".string":
		return p.parseAsciiDirective(line, true)
	case ".zero", ".skip":
		return p.parseBssDirective(line)
	default:
		return errf(ErrLexOrParse, line, "unknown directive %q", name)
	}
}

func (p *Parser) takeLabel() string {
	label := p.pendingLabel
	p.pendingLabel = ""
	return label
}

func (p *Parser) parseDataDirective(line int, width int) error {
	if p.section != secData {
		return errf(ErrLexOrParse, line, "data directive outside .data section")
	}
	var out []byte
	for {
		if p.tok.Type != TokNumber {
			return errf(ErrLexOrParse, line, "expected integer literal in data directive")
		}
		v, err := parseIntLiteral(p.tok.Value)
		if err != nil {
			return errf(ErrLexOrParse, line, "invalid integer literal %q", p.tok.Value)
		}
		p.advance()
		switch width {
		case 1:
			out = append(out, byte(v))
		case 2:
			out = append(out, le32(int32(v))[:2]...)
		case 4:
			out = append(out, le32(int32(v))...)
		case 8:
			out = append(out, le64(v)...)
		}
		if p.tok.Type != TokComma {
			break
		}
		p.advance()
	}
	p.prog.DataItems = append(p.prog.DataItems, &DataItem{Bytes: out, Label: p.takeLabel(), Pos: SourcePos{Line: line}})
	return nil
}

func (p *Parser) parseAsciiDirective(line int, nulTerminate bool) error {
	if p.section != secData {
		return errf(ErrLexOrParse, line, "data directive outside .data section")
	}
	if p.tok.Type != TokString {
		return errf(ErrLexOrParse, line, "expected string literal")
	}
	out := []byte(p.tok.Value)
	if nulTerminate {
		out = append(out, 0)
	}
	p.advance()
	p.prog.DataItems = append(p.prog.DataItems, &DataItem{Bytes: out, Label: p.takeLabel(), Pos: SourcePos{Line: line}})
	return nil
}

func (p *Parser) parseBssDirective(line int) error {
	if p.section != secBss {
		return errf(ErrLexOrParse, line, "bss directive outside .bss section")
	}
	if p.tok.Type != TokNumber {
		return errf(ErrLexOrParse, line, "expected integer literal")
	}
	v, err := parseIntLiteral(p.tok.Value)
	if err != nil {
		return errf(ErrLexOrParse, line, "invalid integer literal %q", p.tok.Value)
	}
	p.advance()
	p.prog.BssItems = append(p.prog.BssItems, &BssItem{Size: int(v), Label: p.takeLabel(), Pos: SourcePos{Line: line}})
	return nil
}

func (p *Parser) parseInstruction(mnemonic string, line int) error {
	if p.section != secText {
		return errf(ErrLexOrParse, line, "instruction outside .text section")
	}
	op := &Operation{Mnemonic: mnemonic, Label: p.takeLabel(), Pos: SourcePos{Line: line}}
	for p.tok.Type != TokNewline && p.tok.Type != TokEOF {
		operand, err := p.parseOperand(line)
		if err != nil {
			return err
		}
		op.Operands = append(op.Operands, operand)
		if p.tok.Type != TokComma {
			break
		}
		p.advance()
	}
	p.prog.Operations = append(p.prog.Operations, op)
	return nil
}

func (p *Parser) parseOperand(line int) (Operand, error) {
	switch p.tok.Type {
	case TokRegister:
		reg, _ := LookupRegister(p.tok.Value)
		p.advance()
		return Operand{Kind: OperandRegister, Reg: reg}, nil
	case TokNumber:
		v, err := parseIntLiteral(p.tok.Value)
		if err != nil {
			return Operand{}, errf(ErrLexOrParse, line, "invalid integer literal %q", p.tok.Value)
		}
		p.advance()
		return Operand{Kind: OperandImmediate, ImmValue: v}, nil
	case TokLBracket:
		return p.parseMemoryOperand(line)
	case TokIdent:
		name := p.tok.Value
		p.advance()
		return Operand{Kind: OperandSymbol, SymbolName: name}, nil
	default:
		return Operand{}, errf(ErrLexOrParse, line, "unexpected token %q in operand", p.tok.Value)
	}
}

// parseMemoryOperand parses "[rip + symbol]", "[reg]", "[reg + disp]" or
// "[reg - disp]".
func (p *Parser) parseMemoryOperand(line int) (Operand, error) {
	p.advance() // consume '['

	if p.tok.Type == TokIdent && p.tok.Value == "rip" {
		p.advance()
		if p.tok.Type != TokPlus {
			return Operand{}, errf(ErrLexOrParse, line, "expected '+' after rip in memory operand")
		}
		p.advance()
		if p.tok.Type != TokIdent {
			return Operand{}, errf(ErrLexOrParse, line, "expected symbol name after rip+")
		}
		sym := p.tok.Value
		p.advance()
		if p.tok.Type != TokRBracket {
			return Operand{}, errf(ErrLexOrParse, line, "expected ']' to close memory operand")
		}
		p.advance()
		return Operand{Kind: OperandMemory, RIPRelative: true, Symbol: sym}, nil
	}

	if p.tok.Type != TokRegister {
		return Operand{}, errf(ErrLexOrParse, line, "expected base register in memory operand")
	}
	base, _ := LookupRegister(p.tok.Value)
	p.advance()

	var disp int32
	if p.tok.Type == TokPlus || p.tok.Type == TokMinus {
		neg := p.tok.Type == TokMinus
		p.advance()
		if p.tok.Type != TokNumber {
			return Operand{}, errf(ErrLexOrParse, line, "expected displacement literal")
		}
		v, err := parseIntLiteral(p.tok.Value)
		if err != nil {
			return Operand{}, errf(ErrLexOrParse, line, "invalid displacement literal %q", p.tok.Value)
		}
		p.advance()
		if neg {
			v = -v
		}
		disp = int32(v)
	}

	if p.tok.Type != TokRBracket {
		return Operand{}, errf(ErrLexOrParse, line, "expected ']' to close memory operand")
	}
	p.advance()
	return Operand{Kind: OperandMemory, BaseReg: base, Disp: disp}, nil
}
