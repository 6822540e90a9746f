package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hmlt/common"
	"hmlt/config"
	"hmlt/rpkg"
)

var errUnknownType = errors.New("unable to determine resource type")

// detectType infers resource type from file name: "NAME.DLGE" for binary
// resources, "NAME.dlge.json" for documents.
func detectType(name string) (common.ResourceType, bool) {
	lname := strings.ToLower(filepath.Base(name))
	for _, n := range common.ResourceTypeNames() {
		if strings.HasSuffix(lname, "."+n) || strings.HasSuffix(lname, "."+n+".json") {
			rt, _ := common.ParseResourceType(n)
			return rt, true
		}
	}
	return 0, false
}

// resolveType selects resource type: explicit name wins, then file name,
// then resource metadata when available.
func resolveType(explicit, name string, meta *rpkg.ResourceMeta) (common.ResourceType, error) {
	if len(explicit) > 0 {
		return common.ParseResourceType(explicit)
	}
	if rt, ok := detectType(name); ok {
		return rt, nil
	}
	if meta != nil && len(meta.HashResourceType) > 0 {
		if rt, err := common.ParseResourceType(meta.HashResourceType); err == nil {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("%w for %s, use --type", errUnknownType, name)
}

// stem returns file name up to the first dot.
func stem(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return config.CleanFileName(base)
}

func documentName(name string, rt common.ResourceType) string {
	return stem(name) + "." + rt.String() + ".json"
}

func resourceName(name string, rt common.ResourceType) string {
	return stem(name) + "." + rt.FourCC()
}

func metaName(resource string) string {
	return resource + ".meta.JSON"
}

// metaCandidates lists names resource metadata may have.
func metaCandidates(resource string) []string {
	return []string{resource + ".meta.JSON", resource + ".meta.json"}
}

// findMeta locates metadata of resource file, explicit path is used as is.
func findMeta(resource, explicit string) (string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	for _, name := range metaCandidates(resource) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("unable to find metadata for %s, use --meta", resource)
}

// outputPath places output file name: into destination when it is a
// directory, as destination itself when it names a file, next to the source
// when there is no destination.
func outputPath(src, dst, name string) string {
	if len(dst) == 0 {
		return filepath.Join(filepath.Dir(src), name)
	}
	if strings.HasSuffix(dst, string(filepath.Separator)) || strings.HasSuffix(dst, "/") {
		return filepath.Join(dst, name)
	}
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		return filepath.Join(dst, name)
	}
	return dst
}
