// Package common keeps enumerations shared by configuration, codecs and
// command line.
package common

import "strings"

// Engine version resources were produced by.
// ENUM(h2016, h2, h3)
type Version int

// Kind of language resource, names double as file extensions.
// ENUM(dlge, ditl, clng)
type ResourceType int

// FourCC returns resource type tag as used in resource metadata and file
// extensions.
func (x ResourceType) FourCC() string {
	return strings.ToUpper(x.String())
}
