package main

import "testing"

func TestSymbolRegistryDefineAndLookup(t *testing.T) {
	r := NewSymbolRegistry()
	if err := r.Define("_start", secText, 0); err != nil {
		t.Fatalf("Define error: %v", err)
	}
	s, ok := r.Lookup("_start")
	if !ok {
		t.Fatal("expected _start to be found")
	}
	if !s.Defined || s.SectionIndex != secText || s.Value != 0 {
		t.Fatalf("symbol = %+v", s)
	}
}

func TestSymbolRegistryDuplicateDefinition(t *testing.T) {
	r := NewSymbolRegistry()
	if err := r.Define("loop", secText, 0); err != nil {
		t.Fatalf("first Define error: %v", err)
	}
	err := r.Define("loop", secText, 10)
	if err == nil {
		t.Fatal("expected error on duplicate definition")
	}
	asmErr, ok := err.(*AsmError)
	if !ok || asmErr.Kind != ErrDuplicateSymbol {
		t.Fatalf("error = %v, want ErrDuplicateSymbol", err)
	}
}

func TestSymbolRegistryLocalsPrecedeGlobals(t *testing.T) {
	r := NewSymbolRegistry()
	r.Declare("main")
	r.Define("helper", secText, 0)
	r.Define("main", secText, 16)

	locals := r.Locals()
	globals := r.Globals()
	if len(locals) != 1 || locals[0].Name != "helper" {
		t.Fatalf("locals = %+v", locals)
	}
	if len(globals) != 1 || globals[0].Name != "main" {
		t.Fatalf("globals = %+v", globals)
	}
}

func TestSymbolRegistryDeclareWithoutDefine(t *testing.T) {
	r := NewSymbolRegistry()
	r.Declare("printf")
	s, ok := r.Lookup("printf")
	if !ok {
		t.Fatal("expected printf to be registered")
	}
	if s.Defined {
		t.Fatal("expected printf to be undefined (external)")
	}
}
