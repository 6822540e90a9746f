// Package binio provides little-endian cursors over in-memory resource
// buffers.
package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a read would go past the end of data.
var ErrShortBuffer = errors.New("short buffer")

// Reader is a forward cursor over an immutable byte slice.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns total size of underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

// Pos returns current cursor position.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, r.pos, r.Remaining(), ErrShortBuffer)
	}
	return nil
}

// Skip moves cursor forward n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

func (r *Reader) PeekU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.pos], nil
}

func (r *Reader) PeekU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.data[r.pos:]), nil
}

func (r *Reader) U8() (uint8, error) {
	v, err := r.PeekU8()
	if err != nil {
		return 0, err
	}
	r.pos++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	v, err := r.PeekU32()
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// Bytes returns a copy of next n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := bytes.Clone(r.data[r.pos : r.pos+n])
	r.pos += n
	return out, nil
}

// SizedBytes reads u32 length followed by that many bytes.
func (r *Reader) SizedBytes() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// SizedU32s reads u32 count followed by that many u32 values.
func (r *Reader) SizedU32s() ([]uint32, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n) * 4); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(r.data[r.pos:])
		r.pos += 4
	}
	return out, nil
}

// CString reads NUL terminated string, terminator is consumed but not
// returned.
func (r *Reader) CString() (string, error) {
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d: %w", r.pos, ErrShortBuffer)
	}
	s := string(r.data[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}
