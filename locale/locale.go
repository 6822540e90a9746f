// Package locale resolves per engine version language ordering and the
// default locale used by language resources.
package locale

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hmlt/common"
)

// DefaultLocale is used when no default locale was requested.
const DefaultLocale = "en"

var (
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrInvalidLanguageMap = errors.New("invalid language map")
)

var (
	dialogueH2016 = []string{"xx", "en", "fr", "it", "de", "es", "ru", "mx", "br", "pl", "cn", "jp"}
	dialogueH2    = []string{"xx", "en", "fr", "it", "de", "es", "ru", "mx", "br", "pl", "cn", "jp", "tc"}
	dialogueH3    = []string{"xx", "en", "fr", "it", "de", "es", "ru", "cn", "tc", "jp"}
)

// DialogueLanguages returns language slot order of dialogue resources.
func DialogueLanguages(v common.Version) ([]string, error) {
	switch v {
	case common.VersionH2016:
		return slices.Clone(dialogueH2016), nil
	case common.VersionH2:
		return slices.Clone(dialogueH2), nil
	case common.VersionH3:
		return slices.Clone(dialogueH3), nil
	}
	return nil, fmt.Errorf("%v: %w", v, ErrUnsupportedVersion)
}

// FlagLanguages returns language slot order of language flag resources.
// Older engines always reserve the full set of slots there.
func FlagLanguages(v common.Version) ([]string, error) {
	switch v {
	case common.VersionH2016, common.VersionH2:
		return slices.Clone(dialogueH2), nil
	case common.VersionH3:
		return slices.Clone(dialogueH3), nil
	}
	return nil, fmt.Errorf("%v: %w", v, ErrUnsupportedVersion)
}

// ParseMap splits comma separated language codes.
func ParseMap(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) == 0 {
			return nil, fmt.Errorf("empty language code in %q: %w", s, ErrInvalidLanguageMap)
		}
		if slices.Contains(out, p) {
			return nil, fmt.Errorf("duplicate language code %q: %w", p, ErrInvalidLanguageMap)
		}
		out = append(out, p)
	}
	return out, nil
}

// Policy is language configuration of a codec instance.
type Policy struct {
	Version   common.Version
	Languages []string
	Default   string
	// Custom is set when Languages did not come from engine defaults.
	Custom bool
}

// Defaults selects engine default language order for resource kind.
type Defaults func(common.Version) ([]string, error)

// NewPolicy prepares policy. Empty langmap selects engine defaults, empty
// defaultLocale selects DefaultLocale.
func NewPolicy(v common.Version, langmap, defaultLocale string, defaults Defaults) (*Policy, error) {
	p := &Policy{Version: v, Default: defaultLocale}
	if len(p.Default) == 0 {
		p.Default = DefaultLocale
	}

	var err error
	if len(langmap) > 0 {
		if !v.IsValid() {
			return nil, fmt.Errorf("%v: %w", v, ErrUnsupportedVersion)
		}
		if p.Languages, err = ParseMap(langmap); err != nil {
			return nil, err
		}
		p.Custom = true
		return p, nil
	}
	if p.Languages, err = defaults(v); err != nil {
		return nil, err
	}
	return p, nil
}

// String renders language map in the form accepted by ParseMap.
func (p *Policy) String() string {
	return strings.Join(p.Languages, ",")
}

// Scoped returns languages to be used for a single call: override when
// document carries its own language map, policy languages otherwise.
// Policy itself is never modified.
func (p *Policy) Scoped(override string) ([]string, error) {
	if len(override) == 0 {
		return p.Languages, nil
	}
	return ParseMap(override)
}
