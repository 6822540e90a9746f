package dlge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"hmlt/jsondoc"
)

// Schema is the document schema marker.
const Schema = "https://tonytools.win/schemas/dlge.schema.json"

// Kind is container type discriminant, as stored in the top 4 bits of
// packed container references.
type Kind uint8

const (
	KindWavFile  Kind = 0x01
	KindRandom   Kind = 0x02
	KindSwitch   Kind = 0x03
	KindSequence Kind = 0x04
)

var kindNames = map[Kind]string{
	KindWavFile:  "WavFile",
	KindRandom:   "Random",
	KindSwitch:   "Switch",
	KindSequence: "Sequence",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(0x%02X)", uint8(k))
}

// Container is one of *WavFile, *Random, *Switch or *Sequence.
type Container interface {
	Kind() Kind
}

// Document is the editable form of a dialogue resource.
type Document struct {
	Schema string `json:"$schema"`
	Hash   string `json:"hash"`
	DITL   string `json:"DITL"`
	CLNG   string `json:"CLNG"`
	// LangMap overrides language slot order for this document only.
	LangMap string `json:"langmap,omitempty"`
	Root    Node   `json:"rootContainer"`
}

// ParseDocument decodes JSON document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := jsondoc.Parse(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.Root.Container == nil {
		return nil, fmt.Errorf("%w: root container is missing", ErrInvalidDocument)
	}
	return &doc, nil
}

// Marshal encodes document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return jsondoc.Marshal(d)
}

// WavFile is a single line of dialogue.
type WavFile struct {
	WavName string `json:"wavName"`
	// Cases is set only on direct children of a Switch.
	Cases []string `json:"cases,omitzero"`
	// Weight is set only on direct children of a Random.
	Weight     *Weight   `json:"weight,omitempty"`
	Soundtag   string    `json:"soundtag"`
	DefaultWav *string   `json:"defaultWav"`
	DefaultFfx *string   `json:"defaultFfx"`
	Languages  Languages `json:"languages"`
}

func (*WavFile) Kind() Kind { return KindWavFile }

// Random picks one of its weighted lines.
type Random struct {
	// Cases is set only when Random is a direct child of a Switch.
	Cases      []string `json:"cases,omitzero"`
	Containers []Node   `json:"containers"`
}

func (*Random) Kind() Kind { return KindRandom }

// Switch selects children by switch key value.
type Switch struct {
	SwitchKey  string `json:"switchKey"`
	Default    string `json:"default"`
	Containers []Node `json:"containers"`
}

func (*Switch) Kind() Kind { return KindSwitch }

// Sequence plays children in order.
type Sequence struct {
	Containers []Node `json:"containers"`
}

func (*Sequence) Kind() Kind { return KindSequence }

// Node wraps a Container for serialization with "type" discriminant.
type Node struct {
	Container
}

func (n Node) MarshalJSON() ([]byte, error) {
	switch c := n.Container.(type) {
	case nil:
		return []byte("null"), nil
	case *WavFile:
		return jsondoc.MarshalCompact(struct {
			Type string `json:"type"`
			*WavFile
		}{c.Kind().String(), c})
	case *Random:
		return jsondoc.MarshalCompact(struct {
			Type string `json:"type"`
			*Random
		}{c.Kind().String(), c})
	case *Switch:
		return jsondoc.MarshalCompact(struct {
			Type string `json:"type"`
			*Switch
		}{c.Kind().String(), c})
	case *Sequence:
		return jsondoc.MarshalCompact(struct {
			Type string `json:"type"`
			*Sequence
		}{c.Kind().String(), c})
	}
	return nil, fmt.Errorf("unexpected container type %T", n.Container)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Container = nil
		return nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	var c Container
	switch probe.Type {
	case "WavFile":
		c = &WavFile{}
	case "Random":
		c = &Random{}
	case "Switch":
		c = &Switch{}
	case "Sequence":
		c = &Sequence{}
	default:
		return fmt.Errorf("%w: unknown container type %q", ErrInvalidDocument, probe.Type)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	n.Container = c
	return nil
}

// Localization is per language entry of a WavFile: either Subtitle or
// *Override. Languages without entry are absent from the map.
type Localization interface {
	localization()
}

// Subtitle is subtitle text for a language which uses default audio.
type Subtitle string

func (Subtitle) localization() {}

// Override replaces default audio and animation for a language.
type Override struct {
	Wav      string  `json:"wav"`
	Ffx      string  `json:"ffx"`
	Subtitle *string `json:"subtitle,omitempty"`
}

func (*Override) localization() {}

// Languages maps language code to its localization.
type Languages map[string]Localization

func (l Languages) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return jsondoc.MarshalCompact(map[string]Localization(l))
}

func (l *Languages) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: languages: %w", ErrInvalidDocument, err)
	}

	out := make(Languages, len(raw))
	for lang, msg := range raw {
		msg = bytes.TrimSpace(msg)
		switch {
		case len(msg) == 0 || bytes.Equal(msg, []byte("null")):
			continue
		case msg[0] == '"':
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("%w: language %q: %w", ErrInvalidDocument, lang, err)
			}
			out[lang] = Subtitle(s)
		case msg[0] == '{':
			var o struct {
				Wav      *string `json:"wav"`
				Ffx      *string `json:"ffx"`
				Subtitle *string `json:"subtitle"`
			}
			if err := json.Unmarshal(msg, &o); err != nil {
				return fmt.Errorf("%w: language %q: %w", ErrInvalidDocument, lang, err)
			}
			if o.Wav == nil || o.Ffx == nil {
				return fmt.Errorf("%w: language %q: override needs both wav and ffx", ErrInvalidDocument, lang)
			}
			out[lang] = &Override{Wav: *o.Wav, Ffx: *o.Ffx, Subtitle: o.Subtitle}
		default:
			return fmt.Errorf("%w: language %q: expected string or object", ErrInvalidDocument, lang)
		}
	}
	*l = out
	return nil
}

// weightScale is the stored value of weight 1.0.
const weightScale = 0xFFFFFF

// Weight of a Random child. Either a 0-1 fraction or, in hex precision
// mode, raw stored value as hex string.
type Weight struct {
	hex      string
	isHex    bool
	fraction float64
}

// FractionWeight returns weight for 0-1 fraction.
func FractionWeight(f float64) *Weight {
	return &Weight{fraction: f}
}

// HexWeight returns weight for raw hex value.
func HexWeight(s string) *Weight {
	return &Weight{hex: s, isHex: true}
}

func weightFromRaw(v uint32, hexPrecision bool) *Weight {
	if hexPrecision {
		return HexWeight(fmt.Sprintf("%06X", v))
	}
	return FractionWeight(float64(v) / weightScale)
}

// Hex returns raw hex string if weight is in hex form.
func (w *Weight) Hex() (string, bool) {
	return w.hex, w.isHex
}

// Fraction returns weight as 0-1 fraction.
func (w *Weight) Fraction() (float64, error) {
	if !w.isHex {
		return w.fraction, nil
	}
	v, err := w.Value()
	if err != nil {
		return 0, err
	}
	return float64(v) / weightScale, nil
}

// Value returns weight as stored in binary.
func (w *Weight) Value() (uint32, error) {
	if w.isHex {
		v, err := strconv.ParseUint(w.hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidWeight, w.hex, err)
		}
		return uint32(v), nil
	}
	if math.IsNaN(w.fraction) || math.IsInf(w.fraction, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, w.fraction)
	}
	v := math.Round(w.fraction * weightScale)
	switch {
	case v <= 0:
		return 0, nil
	case v >= math.MaxUint32:
		return math.MaxUint32, nil
	}
	return uint32(v), nil
}

func (w Weight) MarshalJSON() ([]byte, error) {
	if w.isHex {
		return json.Marshal(w.hex)
	}
	return json.Marshal(w.fraction)
}

func (w *Weight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = Weight{hex: s, isHex: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: weight must be number or hex string: %w", ErrInvalidWeight, err)
	}
	*w = Weight{fraction: f}
	return nil
}
