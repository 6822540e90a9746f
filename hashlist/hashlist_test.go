package hashlist

import (
	"errors"
	"testing"
)

func testList() *HashList {
	return &HashList{
		Version:  7,
		Tags:     NewSection(map[uint32]string{0x11: "In-world", 0x22: "Cutscene"}),
		Switches: NewSection(map[uint32]string{0x33: "Mood", 0x44: "Angry"}),
		Lines:    NewSection(map[uint32]string{0x55: "LINE_ONE"}),
	}
}

func TestLoadRoundTrip(t *testing.T) {
	hl, err := Load(testList().Marshal())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if hl.Version != 7 {
		t.Errorf("Version = %d, want 7", hl.Version)
	}
	if hl.Tags.Len() != 2 || hl.Switches.Len() != 2 || hl.Lines.Len() != 1 {
		t.Errorf("section sizes = %d/%d/%d", hl.Tags.Len(), hl.Switches.Len(), hl.Lines.Len())
	}
	if sym, ok := hl.Tags.Symbol(0x22); !ok || sym != "Cutscene" {
		t.Errorf("Tags.Symbol(0x22) = %q, %v", sym, ok)
	}
	if h, ok := hl.Switches.Hash("Angry"); !ok || h != 0x44 {
		t.Errorf("Switches.Hash(Angry) = %x, %v", h, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	good := testList().Marshal()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidFile},
		{"bad magic", append([]byte{0, 0, 0, 0}, good[4:]...), ErrInvalidFile},
		{"bad checksum", func() []byte {
			b := append([]byte(nil), good...)
			b[len(b)-2] ^= 0xFF
			return b
		}(), ErrInvalidChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	s := NewSection(map[uint32]string{0xABCD: "Known"})

	if got := s.Resolve("Known"); got != 0xABCD {
		t.Errorf("Resolve(Known) = %x", got)
	}
	if got := s.Resolve("DEADBEEF"); got != 0xDEADBEEF {
		t.Errorf("Resolve(hex) = %x", got)
	}
	if got := s.Resolve("not a hash"); got != Content("not a hash") {
		t.Errorf("Resolve(text) = %x", got)
	}
	if got := s.ResolveContent("DEADBEEF"); got != Content("DEADBEEF") {
		t.Errorf("ResolveContent(hex) = %x, want content hash", got)
	}
	if got := s.SymbolOrHex(0x1); got != "00000001" {
		t.Errorf("SymbolOrHex() = %q", got)
	}
}

func TestContentIsCRC32(t *testing.T) {
	// IEEE check value
	if got := Content("123456789"); got != 0xCBF43926 {
		t.Errorf("Content() = %08X, want CBF43926", got)
	}
}

func TestNilSection(t *testing.T) {
	var s *Section
	if _, ok := s.Symbol(1); ok {
		t.Error("nil section returned symbol")
	}
	if s.SymbolOrHex(0xFF) != "000000FF" {
		t.Error("nil section did not fallback to hex")
	}
}
