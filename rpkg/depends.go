package rpkg

import "fmt"

// LanguageFlag returns dependency flag for per-language resource override
// at language slot index.
func LanguageFlag(index int) string {
	return fmt.Sprintf("%02X", 0x80+index)
}

// Dependencies accumulates ordered, deduplicated dependency table for a
// single rebuild. Not safe for concurrent use.
type Dependencies struct {
	order []ResourceDependency
	index map[string]uint32
}

func NewDependencies() *Dependencies {
	return &Dependencies{index: make(map[string]uint32)}
}

// Add registers dependency unless it is already known and returns its table
// index. Flag of the first registration wins.
func (d *Dependencies) Add(hash, flag string) uint32 {
	if i, ok := d.index[hash]; ok {
		return i
	}
	i := uint32(len(d.order))
	d.order = append(d.order, ResourceDependency{Hash: hash, Flag: flag})
	d.index[hash] = i
	return i
}

// Append registers dependency at the next table index even when it is
// already known. Later Add calls for the same hash return the first index.
func (d *Dependencies) Append(hash, flag string) uint32 {
	i := uint32(len(d.order))
	d.order = append(d.order, ResourceDependency{Hash: hash, Flag: flag})
	if _, ok := d.index[hash]; !ok {
		d.index[hash] = i
	}
	return i
}

func (d *Dependencies) Len() int {
	return len(d.order)
}

// Entries returns copy of accumulated table.
func (d *Dependencies) Entries() []ResourceDependency {
	out := make([]ResourceDependency, len(d.order))
	copy(out, d.order)
	return out
}
