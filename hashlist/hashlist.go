// Package hashlist loads the symbol table mapping 32-bit hashes to
// human-readable sound tags, switch symbols and subtitle line names.
package hashlist

import (
	"errors"
	"fmt"
	"hash/crc32"
	"maps"
	"slices"
	"strconv"

	"hmlt/binio"
)

// Magic is "ALMH" read as little-endian u32.
const Magic uint32 = 0x484D4C41

var (
	ErrInvalidFile     = errors.New("not a hash list file")
	ErrInvalidChecksum = errors.New("hash list checksum mismatch")
	ErrNotAtEnd        = errors.New("hash list has trailing data")
)

// Section is a bidirectional hash <-> symbol map. It is never modified after
// construction and is safe for concurrent use.
type Section struct {
	symbols map[uint32]string
	hashes  map[string]uint32
}

func newSection(n int) *Section {
	return &Section{
		symbols: make(map[uint32]string, n),
		hashes:  make(map[string]uint32, n),
	}
}

// NewSection builds section from hash -> symbol pairs.
func NewSection(entries map[uint32]string) *Section {
	s := newSection(len(entries))
	for h, sym := range entries {
		s.insert(h, sym)
	}
	return s
}

// insert keeps bimap semantics: an existing pair for either side is replaced.
func (s *Section) insert(hash uint32, symbol string) {
	if old, ok := s.symbols[hash]; ok {
		delete(s.hashes, old)
	}
	if old, ok := s.hashes[symbol]; ok {
		delete(s.symbols, old)
	}
	s.symbols[hash] = symbol
	s.hashes[symbol] = hash
}

func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.symbols)
}

// Symbol looks up symbol by hash.
func (s *Section) Symbol(hash uint32) (string, bool) {
	if s == nil {
		return "", false
	}
	sym, ok := s.symbols[hash]
	return sym, ok
}

// Hash looks up hash by symbol.
func (s *Section) Hash(symbol string) (uint32, bool) {
	if s == nil {
		return 0, false
	}
	h, ok := s.hashes[symbol]
	return h, ok
}

// SymbolOrHex returns known symbol or 8 digit upper-case hex of the hash.
func (s *Section) SymbolOrHex(hash uint32) string {
	if sym, ok := s.Symbol(hash); ok {
		return sym
	}
	return fmt.Sprintf("%08X", hash)
}

// Resolve maps symbol back to hash: table lookup first, then hex literal,
// then content hash of the text.
func (s *Section) Resolve(symbol string) uint32 {
	if h, ok := s.Hash(symbol); ok {
		return h
	}
	if h, err := strconv.ParseUint(symbol, 16, 32); err == nil {
		return uint32(h)
	}
	return Content(symbol)
}

// ResolveContent maps symbol back to hash with table lookup falling back to
// content hash directly.
func (s *Section) ResolveContent(symbol string) uint32 {
	if h, ok := s.Hash(symbol); ok {
		return h
	}
	return Content(symbol)
}

// Content returns content hash (CRC-32, IEEE) of symbol text.
func Content(symbol string) uint32 {
	return crc32.ChecksumIEEE([]byte(symbol))
}

// HashList is the complete symbol table.
type HashList struct {
	Version  uint32
	Tags     *Section
	Switches *Section
	Lines    *Section
}

// New returns empty hash list, unresolved hashes are rendered as hex.
func New() *HashList {
	return &HashList{Tags: newSection(0), Switches: newSection(0), Lines: newSection(0)}
}

// Load parses binary hash list.
func Load(data []byte) (*HashList, error) {
	r := binio.NewReader(data)

	magic, err := r.U32()
	if err != nil || magic != Magic {
		return nil, ErrInvalidFile
	}

	hl := &HashList{}
	if hl.Version, err = r.U32(); err != nil {
		return nil, fmt.Errorf("unable to read version: %w", err)
	}
	checksum, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("unable to read checksum: %w", err)
	}
	if crc32.ChecksumIEEE(data[r.Pos():]) != checksum {
		return nil, ErrInvalidChecksum
	}

	for _, sec := range []**Section{&hl.Tags, &hl.Switches, &hl.Lines} {
		if *sec, err = readSection(r); err != nil {
			return nil, err
		}
	}

	if r.Remaining() != 0 {
		return nil, ErrNotAtEnd
	}
	return hl, nil
}

func readSection(r *binio.Reader) (*Section, error) {
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("unable to read section size: %w", err)
	}
	s := newSection(0)
	for i := range count {
		h, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		sym, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		s.insert(h, sym)
	}
	return s, nil
}

// Marshal serializes hash list in the format accepted by Load. Entries are
// written in hash order so output is stable.
func (hl *HashList) Marshal() []byte {
	w := binio.NewWriter()
	w.U32(Magic)
	w.U32(hl.Version)
	w.U32(0)

	for _, sec := range []*Section{hl.Tags, hl.Switches, hl.Lines} {
		w.U32(uint32(sec.Len()))
		if sec == nil {
			continue
		}
		for _, h := range slices.Sorted(maps.Keys(sec.symbols)) {
			w.U32(h)
			w.CString(sec.symbols[h])
		}
	}

	w.PatchU32(8, crc32.ChecksumIEEE(w.Bytes()[12:]))
	return w.Bytes()
}
