package convert

import (
	"fmt"

	"hmlt/clng"
	"hmlt/common"
	"hmlt/config"
	"hmlt/ditl"
	"hmlt/dlge"
	"hmlt/hashlist"
	"hmlt/locale"
	"hmlt/rpkg"
)

// converter turns binary resource into JSON document and back.
type converter interface {
	decode(data []byte, meta *rpkg.ResourceMeta) ([]byte, error)
	encode(doc []byte) (*rpkg.Rebuilt, error)
}

type dlgeConverter struct{ codec *dlge.Codec }

func (c dlgeConverter) decode(data []byte, meta *rpkg.ResourceMeta) ([]byte, error) {
	doc, err := c.codec.Decode(data, meta)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (c dlgeConverter) encode(data []byte) (*rpkg.Rebuilt, error) {
	doc, err := dlge.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return c.codec.Encode(doc)
}

type ditlConverter struct{ codec *ditl.Codec }

func (c ditlConverter) decode(data []byte, meta *rpkg.ResourceMeta) ([]byte, error) {
	doc, err := c.codec.Decode(data, meta)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (c ditlConverter) encode(data []byte) (*rpkg.Rebuilt, error) {
	doc, err := ditl.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return c.codec.Encode(doc)
}

type clngConverter struct{ codec *clng.Codec }

func (c clngConverter) decode(data []byte, meta *rpkg.ResourceMeta) ([]byte, error) {
	doc, err := c.codec.Decode(data, meta)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (c clngConverter) encode(data []byte) (*rpkg.Rebuilt, error) {
	doc, err := clng.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return c.codec.Encode(doc)
}

func newConverter(rt common.ResourceType, conf *config.ConversionConfig, symbols *hashlist.HashList) (converter, error) {
	switch rt {
	case common.ResourceTypeDlge:
		policy, err := locale.NewPolicy(conf.Game, conf.LangMap, conf.DefaultLocale, locale.DialogueLanguages)
		if err != nil {
			return nil, err
		}
		codec, err := dlge.New(symbols, policy, dlge.WithHexPrecision(conf.HexPrecision))
		if err != nil {
			return nil, err
		}
		return dlgeConverter{codec}, nil
	case common.ResourceTypeDitl:
		return ditlConverter{ditl.New(symbols)}, nil
	case common.ResourceTypeClng:
		policy, err := locale.NewPolicy(conf.Game, conf.LangMap, conf.DefaultLocale, locale.FlagLanguages)
		if err != nil {
			return nil, err
		}
		codec, err := clng.New(policy)
		if err != nil {
			return nil, err
		}
		return clngConverter{codec}, nil
	}
	return nil, fmt.Errorf("unsupported resource type %v", rt)
}

// converters creates converters on first use and keeps them for the rest
// of the run.
type converters struct {
	conf    *config.ConversionConfig
	symbols *hashlist.HashList
	cache   map[common.ResourceType]converter
}

func newConverters(conf *config.ConversionConfig, symbols *hashlist.HashList) *converters {
	return &converters{conf: conf, symbols: symbols, cache: make(map[common.ResourceType]converter)}
}

func (c *converters) get(rt common.ResourceType) (converter, error) {
	if conv, ok := c.cache[rt]; ok {
		return conv, nil
	}
	conv, err := newConverter(rt, c.conf, c.symbols)
	if err != nil {
		return nil, err
	}
	c.cache[rt] = conv
	return conv, nil
}
