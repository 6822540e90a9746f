package convert

import (
	"encoding/hex"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// hexDiff returns line diff of hex dumps, unchanged lines are left out.
func hexDiff(original, rebuilt []byte) (string, int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(hex.Dump(original), hex.Dump(rebuilt))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var (
		sb      strings.Builder
		changed int
	)
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for line := range strings.Lines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			changed++
		}
	}
	return sb.String(), changed
}
