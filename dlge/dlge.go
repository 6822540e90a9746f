// Package dlge converts dialogue event resources to editable documents and
// back.
//
// Binary form is a flat list of container records. Lines (WavFile) come
// first, every other container follows its children and refers to them by
// packed type+index references. WavFile references use WavFile local index,
// Switch refers to Random children by their local index, while Sequence and
// the trailing root reference address Random, Switch and Sequence containers
// by a global index shared by those three kinds.
package dlge

import (
	"fmt"

	"hmlt/common"
	"hmlt/hashlist"
	"hmlt/locale"
)

// FourCC is resource type tag of dialogue events.
const FourCC = "DLGE"

// Codec converts dialogue resources for a particular engine version. Codec
// holds no per-call state and may be used concurrently.
type Codec struct {
	symbols      *hashlist.HashList
	policy       *locale.Policy
	hexPrecision bool
}

type Option func(*Codec)

// WithHexPrecision keeps Random weights as raw hex strings instead of
// fractions.
func WithHexPrecision(enable bool) Option {
	return func(c *Codec) {
		c.hexPrecision = enable
	}
}

// New creates codec. Nil symbols is treated as an empty hash list.
func New(symbols *hashlist.HashList, policy *locale.Policy, options ...Option) (*Codec, error) {
	if policy == nil || !policy.Version.IsValid() {
		return nil, locale.ErrUnsupportedVersion
	}
	if symbols == nil {
		symbols = hashlist.New()
	}
	c := &Codec{symbols: symbols, policy: policy}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Policy returns language policy of the codec.
func (c *Codec) Policy() *locale.Policy {
	return c.policy
}

// initial engine version lays out reserved fields differently
func (c *Codec) initial() bool {
	return c.policy.Version == common.VersionH2016
}

func hexHash(h uint32) string {
	return fmt.Sprintf("%08X", h)
}
