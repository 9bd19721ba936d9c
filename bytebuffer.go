package main

// ByteBuffer is a growable byte sink used for every section body. Appends
// grow the backing array; patch overwrites bytes already appended without
// ever changing the buffer's size.
//
// Grounded on the original assembler's ByteBufferType (buffer.c): when an
// append does not fit, capacity grows to the larger of double the current
// capacity and the needed size aligned up to a 1024-byte block, so that many
// small instruction-sized appends don't reallocate on every call.
type ByteBuffer struct {
	body []byte
	size int
}

const byteBufferReallocUnit = 1024

// alignUp rounds n up to the next multiple of alignment, which must be a
// power of two.
func alignUp(n, alignment int) int {
	return (n + alignment - 1) & ^(alignment - 1)
}

// NewByteBuffer returns an empty ByteBuffer.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{}
}

// Append writes bytes to the end of the buffer and returns the new size.
func (b *ByteBuffer) Append(data []byte) int {
	needed := b.size + len(data)
	if needed > cap(b.body) {
		grown := cap(b.body) * 2
		aligned := alignUp(needed, byteBufferReallocUnit)
		newCap := grown
		if aligned > newCap {
			newCap = aligned
		}
		grownBody := make([]byte, b.size, newCap)
		copy(grownBody, b.body[:b.size])
		b.body = grownBody
	}
	b.body = b.body[:needed]
	copy(b.body[b.size:needed], data)
	b.size = needed
	return b.size
}

// AppendByte appends a single byte and returns the new size.
func (b *ByteBuffer) AppendByte(v byte) int {
	return b.Append([]byte{v})
}

// Patch overwrites the bytes at [offset, offset+len(data)) in place. It is a
// programming error to patch past the current size; the buffer never grows
// as a result of a patch.
func (b *ByteBuffer) Patch(offset int, data []byte) {
	if offset < 0 || offset+len(data) > b.size {
		panic("bytebuffer: patch out of bounds")
	}
	copy(b.body[offset:offset+len(data)], data)
}

// Size returns the number of bytes appended so far.
func (b *ByteBuffer) Size() int {
	return b.size
}

// Bytes returns the buffer's current contents. The slice is owned by the
// buffer and must not be retained across further Append calls.
func (b *ByteBuffer) Bytes() []byte {
	return b.body[:b.size]
}
