package main

// StringTable is an append-only NUL-terminated string interner used for both
// .strtab (symbol names) and .shstrtab (section names). Byte offset 0 is
// always the empty string, as ELF requires for string-table index 0.
type StringTable struct {
	buf *ByteBuffer
}

// NewStringTable returns a StringTable already seeded with the mandatory
// leading NUL byte.
func NewStringTable() *StringTable {
	st := &StringTable{buf: NewByteBuffer()}
	st.buf.AppendByte(0)
	return st
}

// Intern appends s followed by a NUL byte and returns the offset at which s
// begins. No deduplication is performed: interning the same name twice
// yields two distinct offsets.
func (st *StringTable) Intern(s string) uint32 {
	offset := uint32(st.buf.Size())
	st.buf.Append([]byte(s))
	st.buf.AppendByte(0)
	return offset
}

// Bytes returns the table's current contents.
func (st *StringTable) Bytes() []byte {
	return st.buf.Bytes()
}

// Size returns the table's current length in bytes.
func (st *StringTable) Size() int {
	return st.buf.Size()
}
