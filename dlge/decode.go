package dlge

import (
	"fmt"
	"regexp"

	"hmlt/binio"
	"hmlt/cipher"
	"hmlt/rpkg"
)

var (
	reWavName = regexp.MustCompile(`([^/]*)\.wav`)
	reFfxName = regexp.MustCompile(`([^/]*)\.animset`)
)

// globalRef is the target of a global index.
type globalRef struct {
	kind  Kind
	local int
}

// decoder keeps containers decoded so far, which are not yet claimed by a
// parent, keyed by their local index.
type decoder struct {
	*Codec
	r    *binio.Reader
	meta *rpkg.ResourceMeta

	wavs      map[int]*WavFile
	randoms   map[int]*Random
	switches  map[int]*Switch
	sequences map[int]*Sequence

	// next local indexes
	nextWav, nextRandom, nextSwitch, nextSequence int

	// last assigned global index
	global  int
	globals map[int]globalRef
}

// Decode converts binary resource to document. Meta must be the resource
// metadata carrying dependency table the binary refers to.
func (c *Codec) Decode(data []byte, meta *rpkg.ResourceMeta) (*Document, error) {
	d := &decoder{
		Codec:     c,
		r:         binio.NewReader(data),
		meta:      meta,
		wavs:      make(map[int]*WavFile),
		randoms:   make(map[int]*Random),
		switches:  make(map[int]*Switch),
		sequences: make(map[int]*Sequence),
		global:    -1,
		globals:   make(map[int]globalRef),
	}

	doc := &Document{Schema: Schema, Hash: meta.Identity()}
	if c.policy.Custom {
		doc.LangMap = c.policy.String()
	}

	var err error
	if doc.DITL, err = d.dependency(); err != nil {
		return nil, fmt.Errorf("DITL reference: %w", err)
	}
	if doc.CLNG, err = d.dependency(); err != nil {
		return nil, fmt.Errorf("CLNG reference: %w", err)
	}

	for d.r.Remaining() > 2 {
		at := d.r.Pos()
		tag, err := d.r.PeekU8()
		if err != nil {
			return nil, err
		}
		switch Kind(tag) {
		case KindWavFile:
			err = d.wavFile()
		case KindRandom:
			err = d.random()
		case KindSwitch:
			err = d.switchContainer()
		case KindSequence:
			err = d.sequence()
		default:
			err = &ContainerError{Tag: tag, Reason: "unknown container type"}
		}
		if err != nil {
			return nil, fmt.Errorf("container at offset %d: %w", at, err)
		}
	}
	if d.r.Remaining() != 2 {
		return nil, ErrNotAtEnd
	}

	ref, err := d.r.U16()
	if err != nil {
		return nil, err
	}
	if doc.Root.Container, err = d.root(ref); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *decoder) dependency() (string, error) {
	index, err := d.r.U32()
	if err != nil {
		return "", err
	}
	return d.meta.Dependency(index)
}

func (d *decoder) wavFile() error {
	if err := d.r.Skip(1); err != nil {
		return err
	}
	tagHash, err := d.r.U32()
	if err != nil {
		return err
	}
	nameHash, err := d.r.U32()
	if err != nil {
		return err
	}
	if !d.initial() {
		if err := d.r.Skip(4); err != nil {
			return err
		}
	}

	wav := &WavFile{
		WavName:   hexHash(nameHash),
		Soundtag:  d.symbols.Tags.SymbolOrHex(tagHash),
		Languages: Languages{},
	}

	for _, lang := range d.policy.Languages {
		if err := d.language(wav, lang, nameHash); err != nil {
			return fmt.Errorf("language %q: %w", lang, err)
		}
	}

	d.wavs[d.nextWav] = wav
	d.nextWav++
	return nil
}

// language reads single language slot of a WavFile.
func (d *decoder) language(wav *WavFile, lang string, nameHash uint32) error {
	if d.initial() {
		if err := d.r.Skip(4); err != nil {
			return err
		}
	}
	wavIndex, err := d.r.U32()
	if err != nil {
		return err
	}
	ffxIndex, err := d.r.U32()
	if err != nil {
		return err
	}

	var staged *Override
	if wavIndex != absentRef && ffxIndex != absentRef {
		wavRef, err := d.meta.Dependency(wavIndex)
		if err != nil {
			return err
		}
		ffxRef, err := d.meta.Dependency(ffxIndex)
		if err != nil {
			return err
		}
		if lang == d.policy.Default {
			wav.DefaultWav, wav.DefaultFfx = &wavRef, &ffxRef
			wav.WavName = wavName(wavRef, ffxRef, nameHash)
		} else {
			staged = &Override{Wav: wavRef, Ffx: ffxRef}
		}
	}

	size, err := d.r.PeekU32()
	if err != nil {
		return err
	}
	if size == 0 {
		if err := d.r.Skip(4); err != nil {
			return err
		}
	} else {
		payload, err := d.r.SizedBytes()
		if err != nil {
			return err
		}
		text, err := cipher.Decrypt(payload)
		if err != nil {
			return fmt.Errorf("subtitle: %w", err)
		}
		if staged != nil {
			staged.Subtitle = &text
		} else {
			wav.Languages[lang] = Subtitle(text)
		}
	}

	if staged != nil {
		wav.Languages[lang] = staged
	}
	return nil
}

// wavName derives line name from default audio or animation path, falling
// back to hex of the name hash for unresolved resources.
func wavName(wav, ffx string, hash uint32) string {
	if rpkg.IsValidHash(wav) || rpkg.IsValidHash(ffx) {
		return hexHash(hash)
	}
	if m := reWavName.FindStringSubmatch(wav); m != nil {
		return m[1]
	}
	if m := reFfxName.FindStringSubmatch(ffx); m != nil {
		return m[1]
	}
	return hexHash(hash)
}

// assignGlobal records next global index for a container which was just
// stored under local index.
func (d *decoder) assignGlobal(k Kind, local int) {
	d.global++
	d.globals[d.global] = globalRef{kind: k, local: local}
}

// resolveGlobal translates global index into local index of expected kind.
func (d *decoder) resolveGlobal(parent, k Kind, index int) (int, error) {
	g, ok := d.globals[index]
	if !ok || g.kind != k {
		return 0, &ReferenceError{Parent: parent, Child: k, Index: index, Reason: "global index was never assigned"}
	}
	return g.local, nil
}

func (d *decoder) takeWav(parent Kind, index int) (*WavFile, error) {
	wav, ok := d.wavs[index]
	if !ok {
		return nil, &ReferenceError{Parent: parent, Child: KindWavFile, Index: index, Reason: "container not found"}
	}
	delete(d.wavs, index)
	return wav, nil
}

func (d *decoder) takeRandom(parent Kind, index int) (*Random, error) {
	random, ok := d.randoms[index]
	if !ok {
		return nil, &ReferenceError{Parent: parent, Child: KindRandom, Index: index, Reason: "container not found"}
	}
	delete(d.randoms, index)
	return random, nil
}

func (d *decoder) takeSwitch(parent Kind, index int) (*Switch, error) {
	sw, ok := d.switches[index]
	if !ok {
		return nil, &ReferenceError{Parent: parent, Child: KindSwitch, Index: index, Reason: "container not found"}
	}
	delete(d.switches, index)
	return sw, nil
}

func (d *decoder) random() error {
	rec, err := readRecord(d.r)
	if err != nil {
		return err
	}

	random := &Random{Containers: make([]Node, 0, len(rec.entries))}
	for _, e := range rec.entries {
		kind, index := unpack(e.ref)
		if kind != KindWavFile {
			return &ReferenceError{Parent: KindRandom, Child: kind, Index: index, Reason: "only WavFile may be a child"}
		}
		if len(e.hashes) == 0 {
			return &ReferenceError{Parent: KindRandom, Child: kind, Index: index, Reason: "weight is missing"}
		}
		wav, err := d.takeWav(KindRandom, index)
		if err != nil {
			return err
		}
		wav.Weight = weightFromRaw(e.hashes[0], d.hexPrecision)
		random.Containers = append(random.Containers, Node{wav})
	}

	d.randoms[d.nextRandom] = random
	d.assignGlobal(KindRandom, d.nextRandom)
	d.nextRandom++
	return nil
}

func (d *decoder) switchContainer() error {
	rec, err := readRecord(d.r)
	if err != nil {
		return err
	}

	sw := &Switch{
		SwitchKey:  d.symbols.Switches.SymbolOrHex(rec.groupHash),
		Default:    d.symbols.Switches.SymbolOrHex(rec.defaultHash),
		Containers: make([]Node, 0, len(rec.entries)),
	}
	for _, e := range rec.entries {
		kind, index := unpack(e.ref)

		cases := make([]string, 0, len(e.hashes))
		for _, h := range e.hashes {
			cases = append(cases, d.symbols.Switches.SymbolOrHex(h))
		}

		switch kind {
		case KindWavFile:
			wav, err := d.takeWav(KindSwitch, index)
			if err != nil {
				return err
			}
			wav.Cases = cases
			sw.Containers = append(sw.Containers, Node{wav})
		case KindRandom:
			random, err := d.takeRandom(KindSwitch, index)
			if err != nil {
				return err
			}
			random.Cases = cases
			sw.Containers = append(sw.Containers, Node{random})
		default:
			return &ReferenceError{Parent: KindSwitch, Child: kind, Index: index, Reason: "only WavFile or Random may be a child"}
		}
	}

	d.switches[d.nextSwitch] = sw
	d.assignGlobal(KindSwitch, d.nextSwitch)
	d.nextSwitch++
	return nil
}

func (d *decoder) sequence() error {
	rec, err := readRecord(d.r)
	if err != nil {
		return err
	}

	seq := &Sequence{Containers: make([]Node, 0, len(rec.entries))}
	for _, e := range rec.entries {
		kind, index := unpack(e.ref)

		var child Container
		switch kind {
		case KindWavFile:
			child, err = d.takeWav(KindSequence, index)
		case KindRandom:
			var local int
			if local, err = d.resolveGlobal(KindSequence, kind, index); err == nil {
				child, err = d.takeRandom(KindSequence, local)
			}
		case KindSwitch:
			var local int
			if local, err = d.resolveGlobal(KindSequence, kind, index); err == nil {
				child, err = d.takeSwitch(KindSequence, local)
			}
		default:
			err = &ReferenceError{Parent: KindSequence, Child: kind, Index: index, Reason: "Sequence may not contain it"}
		}
		if err != nil {
			return err
		}
		seq.Containers = append(seq.Containers, Node{child})
	}

	d.sequences[d.nextSequence] = seq
	d.assignGlobal(KindSequence, d.nextSequence)
	d.nextSequence++
	return nil
}

// root resolves trailing root reference.
func (d *decoder) root(ref uint16) (Container, error) {
	kind, index := unpack(ref)

	if kind == KindWavFile {
		if wav, ok := d.wavs[index]; ok {
			return wav, nil
		}
		return nil, &ReferenceError{Child: kind, Index: index, Reason: "container not found"}
	}

	var (
		local int
		err   error
	)
	switch kind {
	case KindRandom, KindSwitch, KindSequence:
		if local, err = d.resolveGlobal(0, kind, index); err != nil {
			return nil, err
		}
	default:
		return nil, &ContainerError{Tag: uint8(kind), Reason: "unknown root container type"}
	}

	var (
		c  Container
		ok bool
	)
	switch kind {
	case KindRandom:
		c, ok = d.randoms[local]
	case KindSwitch:
		c, ok = d.switches[local]
	case KindSequence:
		c, ok = d.sequences[local]
	}
	if !ok {
		return nil, &ReferenceError{Child: kind, Index: index, Reason: "container was claimed by another container"}
	}
	return c, nil
}
