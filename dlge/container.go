package dlge

import (
	"fmt"

	"hmlt/binio"
)

const (
	kindShift = 12
	indexMask = 0x0FFF

	// absentRef marks language slot without audio.
	absentRef = 0xFFFFFFFF
)

// pack builds 16-bit container reference: type in top 4 bits, index in the rest.
func pack(k Kind, index int) (uint16, error) {
	if index < 0 || index > indexMask {
		return 0, fmt.Errorf("%v index %d: %w", k, index, ErrCapacity)
	}
	return uint16(k)<<kindShift | uint16(index), nil
}

func unpack(ref uint16) (Kind, int) {
	return Kind(ref >> kindShift), int(ref & indexMask)
}

// entry is a container child reference with its annotation hashes: weight for
// Random, case labels for Switch, nothing for Sequence.
type entry struct {
	ref    uint16
	hashes []uint32
}

// record is the common binary form of Random, Switch and Sequence.
type record struct {
	kind        Kind
	groupHash   uint32
	defaultHash uint32
	entries     []entry
}

func readRecord(r *binio.Reader) (*record, error) {
	var (
		rec record
		err error
		tag uint8
	)
	if tag, err = r.U8(); err != nil {
		return nil, err
	}
	rec.kind = Kind(tag)
	if rec.groupHash, err = r.U32(); err != nil {
		return nil, err
	}
	if rec.defaultHash, err = r.U32(); err != nil {
		return nil, err
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	for range count {
		var e entry
		if e.ref, err = r.U16(); err != nil {
			return nil, err
		}
		if e.hashes, err = r.SizedU32s(); err != nil {
			return nil, err
		}
		rec.entries = append(rec.entries, e)
	}
	return &rec, nil
}

func (rec *record) write(w *binio.Writer) {
	w.U8(uint8(rec.kind))
	w.U32(rec.groupHash)
	w.U32(rec.defaultHash)
	w.U32(uint32(len(rec.entries)))
	for _, e := range rec.entries {
		w.U16(e.ref)
		w.SizedU32s(e.hashes)
	}
}
