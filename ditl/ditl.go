// Package ditl converts sound tag lists which map dialogue sound tags to
// the resources implementing them.
package ditl

import (
	"fmt"
	"slices"

	"hmlt/binio"
	"hmlt/hashlist"
	"hmlt/jsondoc"
	"hmlt/rpkg"
)

const (
	// FourCC is resource type tag of sound tag lists.
	FourCC = "DITL"
	Schema = "https://tonytools.win/schemas/ditl.schema.json"
)

// Document is the editable form of a sound tag list.
type Document struct {
	Schema    string            `json:"$schema"`
	Hash      string            `json:"hash"`
	SoundTags map[string]string `json:"soundtags"`
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

// Codec converts sound tag lists.
type Codec struct {
	symbols *hashlist.HashList
}

// New creates codec. Nil symbols is treated as an empty hash list.
func New(symbols *hashlist.HashList) *Codec {
	if symbols == nil {
		symbols = hashlist.New()
	}
	return &Codec{symbols: symbols}
}

// Decode converts binary resource to document.
func (c *Codec) Decode(data []byte, meta *rpkg.ResourceMeta) (*Document, error) {
	r := binio.NewReader(data)

	count, err := r.U32()
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Schema:    Schema,
		Hash:      meta.Identity(),
		SoundTags: make(map[string]string, count),
	}
	for i := range count {
		index, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		hash, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		dep, err := meta.Dependency(index)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		doc.SoundTags[c.symbols.Tags.SymbolOrHex(hash)] = dep
	}
	return doc, nil
}

// Encode converts document to binary resource and its metadata. Tags are
// written in sorted order.
func (c *Codec) Encode(doc *Document) (*rpkg.Rebuilt, error) {
	w := binio.NewWriter()
	deps := rpkg.NewDependencies()

	tags := make([]string, 0, len(doc.SoundTags))
	for tag := range doc.SoundTags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	w.U32(uint32(len(tags)))
	for _, tag := range tags {
		w.U32(deps.Add(doc.SoundTags[tag], rpkg.FlagResource))
		w.U32(c.symbols.Tags.Resolve(tag))
	}

	return &rpkg.Rebuilt{
		File: w.Bytes(),
		Meta: rpkg.NewResourceMeta(doc.Hash, w.Len(), FourCC, deps),
	}, nil
}
