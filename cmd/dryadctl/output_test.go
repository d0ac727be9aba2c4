package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"dryad/internal/search"
	"dryad/internal/service"
	"dryad/internal/storage"
	"dryad/internal/syncer"
)

func init() {
	color.NoColor = true
}

func TestShortSHA(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"c0ffee1234567", "c0ffee1"},
	}
	for _, tt := range tests {
		if got := shortSHA(tt.in); got != tt.want {
			t.Errorf("shortSHA(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintSyncResult(t *testing.T) {
	tests := []struct {
		name   string
		result syncer.Result
		want   []string
	}{
		{
			name:   "idle",
			result: syncer.Result{Done: true, Phase: syncer.PhaseIdle, Commit: "c0ffee1234"},
			want:   []string{"Up to date at c0ffee1"},
		},
		{
			name:   "pending",
			result: syncer.Result{Phase: syncer.PhaseIndexing, Commit: "c0ffee1234", Indexed: 10},
			want:   []string{"indexing c0ffee1: 10 indexed, 0 reclaimed", "--until-done"},
		},
		{
			name:   "converged",
			result: syncer.Result{Done: true, Phase: syncer.PhaseReclaiming, Commit: "c0ffee1234", Indexed: 3, Reclaimed: 2},
			want:   []string{"3 indexed, 2 reclaimed", "Commit c0ffee1 converged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSyncResult(&buf, tt.result)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("printSyncResult() output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintSearchResults(t *testing.T) {
	var buf bytes.Buffer
	printSearchResults(&buf, []search.Result{
		{Path: "auth/login.go", Language: "Go", Goal: "Validate credentials", Score: 0.91234},
		{Path: "web/app.tsx", Language: "TypeScript", Goal: "Render the login form", Score: 0.8},
	})

	out := buf.String()
	for _, want := range []string{" 1. auth/login.go", "[Go] 0.912", "Validate credentials", " 2. web/app.tsx"} {
		if !strings.Contains(out, want) {
			t.Errorf("printSearchResults() output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printSearchResults(&buf, nil)
	if strings.TrimSpace(buf.String()) != "No results" {
		t.Errorf("printSearchResults(nil) = %q", buf.String())
	}
}

func TestPrintEvents(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printEvents(&buf, []storage.LogEntry{
		{Cursor: 3, Operator: storage.OpFinish, SHA: "c0ffee1234", CreatedAt: at},
		{Cursor: 2, Operator: storage.OpAdd, SHA: "blob12345678", Path: "a.go", CreatedAt: at},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("printEvents() printed %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "finish") || !strings.Contains(lines[0], "c0ffee1234") {
		t.Errorf("unexpected finish line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "add") || !strings.Contains(lines[1], "blob123 a.go") {
		t.Errorf("unexpected add line: %q", lines[1])
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, service.Status{
		Commit:     "c0ffee",
		CommitDone: true,
		Phase:      syncer.PhaseIdle,
		Stats: &storage.IndexStats{
			Files:      2,
			Goals:      5,
			LastCursor: 9,
			Languages:  map[string]int{"TypeScript": 1, "Go": 1},
		},
	})

	out := buf.String()
	for _, want := range []string{"commit: c0ffee", "converged", "phase:  idle", "files: 2", "goals: 5", "last cursor: 9"} {
		if !strings.Contains(out, want) {
			t.Errorf("printStatus() output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Go") > strings.Index(out, "TypeScript") {
		t.Errorf("printStatus() languages not sorted:\n%s", out)
	}
}
