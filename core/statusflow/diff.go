package statusflow

import (
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// flowLines renders a flow as one line per status and per transition.
func flowLines(f Flow) []string {
	lines := make([]string, 0, len(f.Statuses)+len(f.Transitions)+1)
	lines = append(lines, "flow "+f.Meta.Name+" ("+f.Meta.Status+")\n")
	for _, s := range f.Statuses {
		lines = append(lines, "status "+s.Name+" "+s.Color+"\n")
	}
	for _, tr := range f.Transitions {
		lines = append(lines, "transition "+tr.From+" -> "+tr.To+"\n")
	}
	return lines
}

// diffFlows returns a unified diff from saved to local, empty when they match.
func diffFlows(saved, local Flow) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        flowLines(saved),
		B:        flowLines(local),
		FromFile: "saved",
		ToFile:   "local",
		Context:  2,
	})
	if err != nil {
		return "", errors.Wrap(err, "diffing status flows")
	}
	return diff, nil
}
