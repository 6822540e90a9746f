// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// Lookup returns archive entry by name, nil when there is no such file.
type Lookup func(name string) *zip.File

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, file is the entry which satisfies match condition and lookup gives
// access to other entries of the same archive. If an error is returned,
// processing stops.
type WalkFunc func(archive string, file *zip.File, lookup Lookup) error

// Walk walks all files in the archive under prefix for which match returns
// true, calling walkFn for each item in natural order of entry names.
// Archives with path traversal components ("..") or absolute paths are
// rejected.
func Walk(archive, prefix string, match func(name string) bool, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	index := make(map[string]*zip.File, len(r.File))
	var names []string
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		index[name] = f
		if strings.HasPrefix(name, prefix) && (match == nil || match(path.Base(name))) {
			names = append(names, name)
		}
	}
	sort.Sort(natural.StringSlice(names))

	lookup := func(name string) *zip.File {
		return index[name]
	}
	for _, name := range names {
		if err := walkFn(archive, index[name], lookup); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile returns complete content of archive entry.
func ReadFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
