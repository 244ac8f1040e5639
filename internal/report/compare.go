package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tagscope/tagscope/internal/model"
)

// inventoryLines renders a result's script set as one sorted canonical line
// per script, so that two audits of the same page diff cleanly. Only
// serialized fields are used, so stored reports compare the same as fresh
// ones; inline blocks compare at vendor granularity.
func inventoryLines(res *model.ScanResult) string {
	lines := make([]string, 0, len(res.Scripts))
	for _, s := range res.Scripts {
		lines = append(lines, fmt.Sprintf("%s %s [%s]", s.Type, displayURL(s), s.Vendor))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}

// Compare produces a unified-style line diff between the script inventories
// of two scans: what appeared, what disappeared. Identical inventories yield
// an empty string.
func Compare(before, after *model.ScanResult) string {
	a := inventoryLines(before)
	b := inventoryLines(after)
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		marker := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			marker = "+ "
		case diffmatchpatch.DiffDelete:
			marker = "- "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(marker)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
