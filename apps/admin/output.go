package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/academia/portal/core/statusflow"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

func printFlow(w io.Writer, snap statusflow.Snapshot) {
	s := snap.Scope
	boldColor.Fprintf(w, "Status flow %d/%d/%d\n", s.OrgID, s.WorkspaceID, s.StatusConfigurationID)

	boldColor.Fprintf(w, "Statuses (%d)\n", len(snap.Statuses))
	for _, st := range snap.Statuses {
		fmt.Fprint(w, "  ")
		infoColor.Fprint(w, st.Name)
		fmt.Fprintf(w, " %s\n", st.Color)
	}

	boldColor.Fprintf(w, "Transitions (%d)\n", len(snap.Transitions))
	for _, tr := range snap.Transitions {
		from, to := tr.From, tr.To
		if from == "" {
			from = "?"
		}
		if to == "" {
			to = "?"
		}
		fmt.Fprintf(w, "  %s -> %s", from, to)
		if tr.Dangling {
			warningColor.Fprint(w, " (dangling)")
		}
		fmt.Fprintln(w)
	}
}

// printDiff colours the lines of a unified diff.
func printDiff(w io.Writer, diff string) {
	if diff == "" {
		infoColor.Fprintln(w, "no changes")
		return
	}
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case line == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			boldColor.Fprintln(w, line)
		case line[0] == '+':
			successColor.Fprintln(w, line)
		case line[0] == '-':
			errorColor.Fprintln(w, line)
		case line[0] == '@':
			infoColor.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}
