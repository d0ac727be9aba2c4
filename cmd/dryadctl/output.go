package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"dryad/internal/search"
	"dryad/internal/service"
	"dryad/internal/storage"
	"dryad/internal/syncer"
)

var (
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgHiGreen)
	dimColor     = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgHiRed)
)

var operatorColors = map[storage.LogOperator]*color.Color{
	storage.OpStart:   color.New(color.FgHiCyan),
	storage.OpAdd:     color.New(color.FgHiGreen),
	storage.OpCleanup: color.New(color.FgYellow),
	storage.OpFinish:  color.New(color.FgHiMagenta),
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func printSyncResult(w io.Writer, r syncer.Result) {
	if r.Phase == syncer.PhaseIdle {
		dimColor.Fprintf(w, "Up to date at %s\n", shortSHA(r.Commit))
		return
	}
	fmt.Fprintf(w, "%s %s: %d indexed, %d reclaimed\n", r.Phase, shortSHA(r.Commit), r.Indexed, r.Reclaimed)
	if r.Done {
		successColor.Fprintf(w, "Commit %s converged\n", shortSHA(r.Commit))
	} else {
		warnColor.Fprintln(w, "More work pending, run again or pass --until-done")
	}
}

func printSearchResults(w io.Writer, results []search.Result) {
	if len(results) == 0 {
		dimColor.Fprintln(w, "No results")
		return
	}
	for i, r := range results {
		titleColor.Fprintf(w, "%2d. %s", i+1, r.Path)
		dimColor.Fprintf(w, "  [%s] %.3f\n", r.Language, r.Score)
		fmt.Fprintf(w, "    %s\n", r.Goal)
	}
}

func printEvents(w io.Writer, entries []storage.LogEntry) {
	if len(entries) == 0 {
		dimColor.Fprintln(w, "No events")
		return
	}
	for _, e := range entries {
		dimColor.Fprintf(w, "%6d %s ", e.Cursor, e.CreatedAt.Format("2006-01-02 15:04:05"))
		c, ok := operatorColors[e.Operator]
		if !ok {
			c = dimColor
		}
		c.Fprintf(w, "%-7s", e.Operator)
		if e.Path != "" {
			fmt.Fprintf(w, " %s %s\n", shortSHA(e.SHA), e.Path)
		} else {
			fmt.Fprintf(w, " %s\n", e.SHA)
		}
	}
}

func printStatus(w io.Writer, s service.Status) {
	titleColor.Fprintln(w, "Sync")
	commit := s.Commit
	if commit == "" {
		commit = "(none)"
	}
	fmt.Fprintf(w, "  commit: %s\n", commit)
	if s.CommitDone {
		successColor.Fprintln(w, "  converged")
	} else {
		warnColor.Fprintln(w, "  in progress")
	}
	fmt.Fprintf(w, "  phase:  %s\n", s.Phase)

	if s.Stats == nil {
		return
	}
	titleColor.Fprintln(w, "Index")
	fmt.Fprintf(w, "  files: %d\n", s.Stats.Files)
	fmt.Fprintf(w, "  goals: %d\n", s.Stats.Goals)
	fmt.Fprintf(w, "  last cursor: %d\n", s.Stats.LastCursor)

	langs := make([]string, 0, len(s.Stats.Languages))
	for lang := range s.Stats.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		dimColor.Fprintf(w, "  %-12s %d\n", lang, s.Stats.Languages[lang])
	}
}
