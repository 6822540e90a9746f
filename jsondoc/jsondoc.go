// Package jsondoc reads and writes the human editable documents produced
// from language resources.
package jsondoc

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/jsonc"
)

// Parse decodes document. Comments and trailing commas, which are likely
// to appear in hand edited files, are tolerated.
func Parse(data []byte, v any) error {
	return json.Unmarshal(jsonc.ToJSON(data), v)
}

// Marshal encodes document indented with tabs. Text is left unescaped so
// subtitles stay readable.
func Marshal(v any) ([]byte, error) {
	return encode(v, "\t")
}

// MarshalCompact is Marshal without indentation. Types implementing
// json.Marshaler use it to keep nested output unescaped.
func MarshalCompact(v any) ([]byte, error) {
	return encode(v, "")
}

func encode(v any, indent string) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if len(indent) > 0 {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
