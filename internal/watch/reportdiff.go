package watch

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
)

// ReportDiff returns a unified diff between the previous and current
// conversion report YAML. An empty string means no previous report or no
// change.
func ReportDiff(prev, curr []byte) string {
	if len(prev) == 0 || bytes.Equal(prev, curr) {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(prev)),
		B:        difflib.SplitLines(string(curr)),
		FromFile: "previous",
		ToFile:   "current",
		Context:  2,
	})
	if err != nil {
		return ""
	}

	return diff
}
