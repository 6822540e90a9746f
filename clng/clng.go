// Package clng converts language flag resources which tell the engine
// which languages a dialogue package provides.
package clng

import (
	"fmt"
	"slices"

	"hmlt/binio"
	"hmlt/jsondoc"
	"hmlt/locale"
	"hmlt/rpkg"
)

const (
	// FourCC is resource type tag of language flags.
	FourCC = "CLNG"
	Schema = "https://tonytools.win/schemas/clng.schema.json"
)

// Document is the editable form of language flags.
type Document struct {
	Schema    string          `json:"$schema"`
	Hash      string          `json:"hash"`
	Languages map[string]bool `json:"languages"`
}

// ParseDocument decodes JSON document, comments and trailing commas are
// tolerated.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := jsondoc.Parse(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse %s document: %w", FourCC, err)
	}
	return &doc, nil
}

// Marshal encodes document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return jsondoc.Marshal(d)
}

// Codec converts language flags using policy language order.
type Codec struct {
	policy *locale.Policy
}

// New creates codec. Policy languages are expected to come from
// locale.FlagLanguages unless overridden.
func New(policy *locale.Policy) (*Codec, error) {
	if policy == nil || !policy.Version.IsValid() {
		return nil, locale.ErrUnsupportedVersion
	}
	return &Codec{policy: policy}, nil
}

// Decode converts binary resource to document, one flag byte per language.
func (c *Codec) Decode(data []byte, meta *rpkg.ResourceMeta) (*Document, error) {
	r := binio.NewReader(data)
	flags, err := r.Bytes(r.Len())
	if err != nil {
		return nil, err
	}
	if len(flags) > len(c.policy.Languages) {
		return nil, fmt.Errorf("%d flags for %d languages: %w", len(flags), len(c.policy.Languages), locale.ErrInvalidLanguageMap)
	}

	doc := &Document{
		Schema:    Schema,
		Hash:      meta.Identity(),
		Languages: make(map[string]bool, len(flags)),
	}
	for i, f := range flags {
		doc.Languages[c.policy.Languages[i]] = f == 1
	}
	return doc, nil
}

// Encode converts document to binary resource and its metadata. Flags are
// written in language map order up to the last language present in the
// document, languages missing in between are written as false.
func (c *Codec) Encode(doc *Document) (*rpkg.Rebuilt, error) {
	last := -1
	for lang := range doc.Languages {
		i := slices.Index(c.policy.Languages, lang)
		if i < 0 {
			return nil, fmt.Errorf("language %q is not in language map %q: %w", lang, c.policy.String(), locale.ErrInvalidLanguageMap)
		}
		last = max(last, i)
	}

	w := binio.NewWriter()
	for _, lang := range c.policy.Languages[:last+1] {
		if doc.Languages[lang] {
			w.U8(1)
		} else {
			w.U8(0)
		}
	}

	return &rpkg.Rebuilt{
		File: w.Bytes(),
		Meta: rpkg.NewResourceMeta(doc.Hash, w.Len(), FourCC, rpkg.NewDependencies()),
	}, nil
}
