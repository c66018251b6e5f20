package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/spirodonfl/literate-programming/internal/executor"
	"github.com/spirodonfl/literate-programming/internal/paths"
)

// PrintReport writes a summary of a run to w. Paths are shown relative to
// base when they lie under it.
func PrintReport(w io.Writer, rep *executor.Report, base *paths.Resolver, dryRun bool) {
	s := DefaultStyles(w)

	title := "Literate run"
	if dryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, s.Header.Render(title))
	fmt.Fprintln(w, s.Divider.Render(strings.Repeat("─", len(title))))

	section(w, s, base, "written", rep.Written)
	section(w, s, base, "injected", rep.Injected)
	section(w, s, base, "imported into", rep.Imported)
	section(w, s, base, "pulled into", rep.Pulled)

	fmt.Fprintf(w, "%s %s, %s %s\n",
		s.Count.Render(fmt.Sprint(rep.Documents)), s.Dim.Render("documents"),
		s.Count.Render(fmt.Sprint(rep.Filtered)), s.Dim.Render("outputs filtered"))

	PrintDiagnostics(w, rep, s)
}

// PrintDiagnostics lists lexing problems and per-block failures
func PrintDiagnostics(w io.Writer, rep *executor.Report, s *StyleManager) {
	if s == nil {
		s = DefaultStyles(w)
	}
	for _, d := range rep.Diagnostics {
		fmt.Fprintln(w, s.Warn.Render("warning: ")+d.String())
	}
	for _, err := range rep.Failures() {
		fmt.Fprintln(w, s.Error.Render("error: ")+err.Error())
	}
}

func section(w io.Writer, s *StyleManager, base *paths.Resolver, verb string, list []string) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s\n", s.Count.Render(fmt.Sprint(len(list))), s.Dim.Render(verb))
	for _, p := range list {
		fmt.Fprintln(w, "  "+s.Path.Render(base.Rel(p)))
	}
}
