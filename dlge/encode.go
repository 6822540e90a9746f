package dlge

import (
	"fmt"
	"math"
	"strconv"

	"hmlt/binio"
	"hmlt/cipher"
	"hmlt/hashlist"
	"hmlt/rpkg"
)

// encoder keeps state of a single Encode call. Counters hold last assigned
// index, -1 when nothing was emitted yet.
type encoder struct {
	*Codec
	langs []string
	w     *binio.Writer
	deps  *rpkg.Dependencies

	wav, random, switches, sequences int
	global                           int
}

// Encode converts document to binary resource and its metadata. Dependency
// table is always rebuilt from scratch, DITL and CLNG take the first two
// slots.
func (c *Codec) Encode(doc *Document) (*rpkg.Rebuilt, error) {
	if doc.Root.Container == nil {
		return nil, fmt.Errorf("%w: root container is missing", ErrInvalidDocument)
	}

	// document language map applies to this call only
	langs, err := c.policy.Scoped(doc.LangMap)
	if err != nil {
		return nil, err
	}

	e := &encoder{
		Codec:     c,
		langs:     langs,
		w:         binio.NewWriter(),
		deps:      rpkg.NewDependencies(),
		wav:       -1,
		random:    -1,
		switches:  -1,
		sequences: -1,
		global:    -1,
	}

	// DITL and CLNG keep slots 0 and 1 even when they name the same resource
	e.w.U32(e.deps.Append(doc.DITL, rpkg.FlagResource))
	e.w.U32(e.deps.Append(doc.CLNG, rpkg.FlagResource))

	if err := e.emit(doc.Root.Container); err != nil {
		return nil, err
	}

	index := e.global
	if doc.Root.Kind() == KindWavFile {
		index = e.wav
	}
	ref, err := pack(doc.Root.Kind(), index)
	if err != nil {
		return nil, err
	}
	e.w.U16(ref)

	return &rpkg.Rebuilt{
		File: e.w.Bytes(),
		Meta: rpkg.NewResourceMeta(doc.Hash, e.w.Len(), FourCC, e.deps),
	}, nil
}

// emit writes container after all of its children.
func (e *encoder) emit(c Container) error {
	switch c := c.(type) {
	case *WavFile:
		return e.wavFile(c)
	case *Random:
		return e.randomContainer(c)
	case *Switch:
		return e.switchContainer(c)
	case *Sequence:
		return e.sequence(c)
	}
	return fmt.Errorf("%w: unexpected container %T", ErrInvalidDocument, c)
}

func kindOf(n Node) Kind {
	if n.Container == nil {
		return 0
	}
	return n.Kind()
}

// nameHash returns hash stored for line name: names which look like hashes
// are taken literally.
func nameHash(name string) uint32 {
	if h, err := strconv.ParseUint(name, 16, 32); err == nil {
		return uint32(h)
	}
	return hashlist.Content(name)
}

func (e *encoder) wavFile(wav *WavFile) error {
	e.w.U8(uint8(KindWavFile))
	e.w.U32(e.symbols.Tags.ResolveContent(wav.Soundtag))
	e.w.U32(nameHash(wav.WavName))
	if !e.initial() {
		e.w.U32(0)
	}

	for i, lang := range e.langs {
		if e.initial() {
			e.w.U32(0)
		}
		flag := rpkg.LanguageFlag(i)
		loc := wav.Languages[lang]

		if lang == e.policy.Default && wav.DefaultWav != nil && wav.DefaultFfx != nil {
			e.w.U32(e.deps.Add(*wav.DefaultWav, flag))
			e.w.U32(e.deps.Add(*wav.DefaultFfx, flag))
			if s, ok := loc.(Subtitle); ok {
				e.subtitle(string(s))
			} else {
				e.w.U32(0)
			}
			continue
		}

		switch v := loc.(type) {
		case nil:
			e.w.U64(math.MaxUint64)
			e.w.U32(0)
		case *Override:
			if v == nil {
				e.w.U64(math.MaxUint64)
				e.w.U32(0)
				continue
			}
			e.w.U32(e.deps.Add(v.Wav, flag))
			e.w.U32(e.deps.Add(v.Ffx, flag))
			if v.Subtitle != nil {
				e.subtitle(*v.Subtitle)
			} else {
				e.w.U32(0)
			}
		case Subtitle:
			e.w.U64(math.MaxUint64)
			e.subtitle(string(v))
		default:
			return fmt.Errorf("%w: language %q: unexpected localization %T", ErrInvalidDocument, lang, loc)
		}
	}

	e.wav++
	return nil
}

// subtitle writes length prefixed cipher payload, empty text is written as
// zero length.
func (e *encoder) subtitle(text string) {
	e.w.SizedBytes(cipher.Encrypt(text))
}

func (e *encoder) randomContainer(random *Random) error {
	rec := record{kind: KindRandom}

	for i, child := range random.Containers {
		wav, ok := child.Container.(*WavFile)
		if !ok {
			return &ReferenceError{Parent: KindRandom, Child: kindOf(child), Index: i, Reason: "only WavFile may be a child"}
		}
		if wav.Weight == nil {
			return &ReferenceError{Parent: KindRandom, Child: KindWavFile, Index: i, Reason: "weight is missing"}
		}
		weight, err := wav.Weight.Value()
		if err != nil {
			return err
		}
		if err := e.wavFile(wav); err != nil {
			return err
		}
		ref, err := pack(KindWavFile, e.wav)
		if err != nil {
			return err
		}
		rec.entries = append(rec.entries, entry{ref: ref, hashes: []uint32{weight}})
	}

	rec.write(e.w)
	e.global++
	e.random++
	return nil
}

func (e *encoder) switchContainer(sw *Switch) error {
	if e.switches >= 0 {
		return &ContainerError{Tag: uint8(KindSwitch), Reason: "only one Switch is allowed per resource"}
	}

	rec := record{
		kind:        KindSwitch,
		groupHash:   e.symbols.Switches.Resolve(sw.SwitchKey),
		defaultHash: e.symbols.Switches.Resolve(sw.Default),
	}

	for i, child := range sw.Containers {
		var cases []string
		switch c := child.Container.(type) {
		case *WavFile:
			cases = c.Cases
		case *Random:
			cases = c.Cases
		default:
			return &ReferenceError{Parent: KindSwitch, Child: kindOf(child), Index: i, Reason: "only WavFile or Random may be a child"}
		}
		if cases == nil {
			return &ReferenceError{Parent: KindSwitch, Child: child.Kind(), Index: i, Reason: "cases are missing"}
		}

		if err := e.emit(child.Container); err != nil {
			return err
		}

		index := e.wav
		if child.Kind() == KindRandom {
			index = e.random
		}
		ref, err := pack(child.Kind(), index)
		if err != nil {
			return err
		}

		hashes := make([]uint32, 0, len(cases))
		for _, cs := range cases {
			hashes = append(hashes, e.symbols.Switches.Resolve(cs))
		}
		rec.entries = append(rec.entries, entry{ref: ref, hashes: hashes})
	}

	rec.write(e.w)
	e.global++
	e.switches++
	return nil
}

func (e *encoder) sequence(seq *Sequence) error {
	if e.sequences >= 0 {
		return &ContainerError{Tag: uint8(KindSequence), Reason: "only one Sequence is allowed per resource"}
	}

	rec := record{kind: KindSequence}

	for i, child := range seq.Containers {
		var index *int
		switch child.Container.(type) {
		case *WavFile:
			index = &e.wav
		case *Random, *Switch:
			index = &e.global
		default:
			return &ReferenceError{Parent: KindSequence, Child: kindOf(child), Index: i, Reason: "Sequence may not contain it"}
		}

		if err := e.emit(child.Container); err != nil {
			return err
		}
		ref, err := pack(child.Kind(), *index)
		if err != nil {
			return err
		}
		rec.entries = append(rec.entries, entry{ref: ref, hashes: []uint32{}})
	}

	rec.write(e.w)
	e.global++
	e.sequences++
	return nil
}
