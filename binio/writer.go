package binio

import (
	"encoding/binary"
)

// Writer accumulates little-endian encoded values.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns accumulated data. Writer must not be used after the call
// if the result is going to be retained.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Raw(data []byte) {
	w.buf = append(w.buf, data...)
}

// SizedBytes writes u32 length followed by data.
func (w *Writer) SizedBytes(data []byte) {
	w.U32(uint32(len(data)))
	w.Raw(data)
}

// SizedU32s writes u32 count followed by values.
func (w *Writer) SizedU32s(values []uint32) {
	w.U32(uint32(len(values)))
	for _, v := range values {
		w.U32(v)
	}
}

// CString writes string followed by NUL terminator.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// PatchU32 overwrites previously written u32 at offset.
func (w *Writer) PatchU32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[at:at+4], v)
}
