// Package rpkg handles resource metadata accompanying extracted game
// resources: dependency tables and resource identities.
package rpkg

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// FlagResource marks whole-resource dependency.
const FlagResource = "1F"

var ErrMissingDependency = errors.New("dependency index out of range")

var reHash = regexp.MustCompile(`^[0-9A-F]{16}$`)

// ResourceDependency is a single entry of resource dependency table.
type ResourceDependency struct {
	Hash string `json:"hash"`
	Flag string `json:"flag"`
}

// ResourceMeta is resource metadata as produced by package extraction tools.
type ResourceMeta struct {
	HashOffset              uint64               `json:"hash_offset"`
	HashReferenceData       []ResourceDependency `json:"hash_reference_data"`
	HashReferenceTableDummy uint32               `json:"hash_reference_table_dummy"`
	HashReferenceTableSize  uint32               `json:"hash_reference_table_size"`
	HashResourceType        string               `json:"hash_resource_type"`
	HashSize                uint32               `json:"hash_size"`
	HashSizeFinal           uint32               `json:"hash_size_final"`
	HashSizeInMemory        uint32               `json:"hash_size_in_memory"`
	HashSizeInVideoMemory   uint32               `json:"hash_size_in_video_memory"`
	HashValue               string               `json:"hash_value"`
	HashPath                string               `json:"hash_path,omitempty"`
}

// NewResourceMeta prepares metadata for rebuilt resource.
func NewResourceMeta(hash string, size int, fourCC string, deps *Dependencies) *ResourceMeta {
	if !IsValidHash(hash) {
		hash = ComputeHash(hash)
	}
	entries := deps.Entries()
	return &ResourceMeta{
		HashOffset:             0x10000000,
		HashReferenceData:      entries,
		HashReferenceTableSize: uint32(0x9*len(entries)) + 4,
		HashResourceType:       fourCC,
		HashSize:               0x80000000 + uint32(size),
		HashSizeFinal:          uint32(size),
		HashSizeInMemory:       0xFFFFFFFF,
		HashSizeInVideoMemory:  0xFFFFFFFF,
		HashValue:              hash,
	}
}

// ParseResourceMeta decodes metadata JSON, comments and trailing commas are
// tolerated.
func ParseResourceMeta(data []byte) (*ResourceMeta, error) {
	var m ResourceMeta
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("unable to parse resource metadata: %w", err)
	}
	return &m, nil
}

// Identity returns resource path if known, hash otherwise.
func (m *ResourceMeta) Identity() string {
	if len(m.HashPath) > 0 {
		return m.HashPath
	}
	return m.HashValue
}

// Dependency returns dependency resource at table index.
func (m *ResourceMeta) Dependency(index uint32) (string, error) {
	if int64(index) >= int64(len(m.HashReferenceData)) {
		return "", fmt.Errorf("index %d of %d: %w", index, len(m.HashReferenceData), ErrMissingDependency)
	}
	return m.HashReferenceData[index].Hash, nil
}

// Marshal renders metadata as JSON.
func (m *ResourceMeta) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "\t")
}

// IsValidHash checks if string is a 64-bit resource hash (16 upper-case hex digits).
func IsValidHash(hash string) bool {
	return reHash.MatchString(hash)
}

// ComputeHash derives resource hash from resource path.
func ComputeHash(path string) string {
	sum := md5.Sum([]byte(path))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return "00" + digest[2:16]
}

// Rebuilt is the result of resource rebuild: binary data and its metadata.
type Rebuilt struct {
	File []byte
	Meta *ResourceMeta
}
