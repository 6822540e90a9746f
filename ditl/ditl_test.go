package ditl

import (
	"bytes"
	"errors"
	"testing"

	"hmlt/hashlist"
	"hmlt/rpkg"
)

func TestRoundTrip(t *testing.T) {
	symbols := &hashlist.HashList{
		Tags:     hashlist.NewSection(map[uint32]string{0x1234: "In-World"}),
		Switches: hashlist.NewSection(nil),
		Lines:    hashlist.NewSection(nil),
	}
	c := New(symbols)

	doc := &Document{
		Schema: Schema,
		Hash:   "00123456789ABCDE",
		SoundTags: map[string]string{
			"In-World": "00AAAAAAAAAAAAAA",
			"0000BEEF": "00BBBBBBBBBBBBBB",
			"Unknown":  "00AAAAAAAAAAAAAA",
		},
	}
	res, err := c.Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(res.File) != 4+3*8 {
		t.Errorf("size = %d", len(res.File))
	}
	if n := len(res.Meta.HashReferenceData); n != 2 {
		t.Errorf("dependencies = %d, want 2", n)
	}
	for _, d := range res.Meta.HashReferenceData {
		if d.Flag != rpkg.FlagResource {
			t.Errorf("flag = %q", d.Flag)
		}
	}
	if res.Meta.HashValue != "00123456789ABCDE" || res.Meta.HashResourceType != FourCC {
		t.Errorf("meta = %+v", res.Meta)
	}

	got, err := c.Decode(res.File, res.Meta)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.SoundTags["In-World"] != "00AAAAAAAAAAAAAA" || got.SoundTags["0000BEEF"] != "00BBBBBBBBBBBBBB" {
		t.Errorf("soundtags = %v", got.SoundTags)
	}
	unknown := hashlist.Content("Unknown")
	if got.SoundTags[hashHex(unknown)] != "00AAAAAAAAAAAAAA" {
		t.Errorf("soundtags = %v", got.SoundTags)
	}

	again, err := c.Encode(got)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(again.File) != len(res.File) {
		t.Errorf("rebuilt size = %d, want %d", len(again.File), len(res.File))
	}
}

func hashHex(h uint32) string {
	return hashlist.NewSection(nil).SymbolOrHex(h)
}

func TestDecodeErrors(t *testing.T) {
	c := New(nil)
	meta := &rpkg.ResourceMeta{HashValue: "00123456789ABCDE"}

	if _, err := c.Decode([]byte{1, 0, 0, 0}, meta); err == nil {
		t.Error("Decode() of truncated data succeeded")
	}
	data := []byte{1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}
	if _, err := c.Decode(data, meta); !errors.Is(err, rpkg.ErrMissingDependency) {
		t.Errorf("Decode() error = %v", err)
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		// tags
		"$schema": "x",
		"hash": "h",
		"soundtags": {"a": "00AAAAAAAAAAAAAA",},
	}`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	out, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"a": "00AAAAAAAAAAAAAA"`)) {
		t.Errorf("Marshal() = %s", out)
	}
}
