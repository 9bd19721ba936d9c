package main

import "testing"

func TestParserGlobalsAndLabel(t *testing.T) {
	prog, err := NewParser(".intel_syntax noprefix\n.globl main\nmain:\n ret\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !prog.Globals["main"] {
		t.Fatal("expected main to be declared global")
	}
	if len(prog.Operations) != 1 || prog.Operations[0].Mnemonic != "ret" {
		t.Fatalf("operations = %+v", prog.Operations)
	}
	if prog.Operations[0].Label != "main" {
		t.Fatalf("label = %q, want main", prog.Operations[0].Label)
	}
}

func TestParserInstructionOperands(t *testing.T) {
	prog, err := NewParser("mov rax, 42\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	op := prog.Operations[0]
	if len(op.Operands) != 2 {
		t.Fatalf("operands = %+v", op.Operands)
	}
	if op.Operands[0].Kind != OperandRegister || op.Operands[0].Reg.Name != "rax" {
		t.Fatalf("operand 0 = %+v", op.Operands[0])
	}
	if op.Operands[1].Kind != OperandImmediate || op.Operands[1].ImmValue != 42 {
		t.Fatalf("operand 1 = %+v", op.Operands[1])
	}
}

func TestParserDataDirectives(t *testing.T) {
	prog, err := NewParser(".data\nmsg: .byte 1, 2, 3\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(prog.DataItems) != 1 {
		t.Fatalf("data items = %+v", prog.DataItems)
	}
	item := prog.DataItems[0]
	if item.Label != "msg" {
		t.Fatalf("label = %q, want msg", item.Label)
	}
	want := []byte{1, 2, 3}
	for i := range want {
		if item.Bytes[i] != want[i] {
			t.Fatalf("bytes = %v, want %v", item.Bytes, want)
		}
	}
}

func TestParserBssDirective(t *testing.T) {
	prog, err := NewParser(".bss\nbuf: .zero 64\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(prog.BssItems) != 1 || prog.BssItems[0].Size != 64 || prog.BssItems[0].Label != "buf" {
		t.Fatalf("bss items = %+v", prog.BssItems)
	}
}

func TestParserRipRelativeMemoryOperand(t *testing.T) {
	prog, err := NewParser("lea rdi, [rip+message]\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	op := prog.Operations[0]
	mem := op.Operands[1]
	if mem.Kind != OperandMemory || !mem.RIPRelative || mem.Symbol != "message" {
		t.Fatalf("memory operand = %+v", mem)
	}
}

func TestParserCallTargetIsSymbolOperand(t *testing.T) {
	prog, err := NewParser("call printf\n").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	op := prog.Operations[0]
	if op.Operands[0].Kind != OperandSymbol || op.Operands[0].SymbolName != "printf" {
		t.Fatalf("operand = %+v", op.Operands[0])
	}
}

func TestParserInstructionOutsideTextIsError(t *testing.T) {
	_, err := NewParser(".data\nret\n").Parse()
	if err == nil {
		t.Fatal("expected error for instruction in .data section")
	}
}
