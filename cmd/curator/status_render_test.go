package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Cache", statusError, "not captured", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Cache:", "[ERROR] not captured")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Cache", statusOK, "captured", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineOmitsEmptyMessage(t *testing.T) {
	got := renderStatusLine("Artifact", statusWarn, "", false)
	if !strings.Contains(got, "[WARN]") {
		t.Fatalf("expected bare status marker, got %q", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("expected no trailing space, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Catalog", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Catalog ==" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("rule length mismatch: %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestFlagKind(t *testing.T) {
	if flagKind(true) != statusOK {
		t.Fatal("expected OK for a set flag")
	}
	if flagKind(false) != statusWarn {
		t.Fatal("expected WARN for an unset flag")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate result %q", got)
	}
	if got := truncate("line one\nline two", 100); got != "line one line two" {
		t.Fatalf("expected newlines flattened, got %q", got)
	}
	long := strings.Repeat("a", 20)
	if got := truncate(long, 10); got != strings.Repeat("a", 10)+"..." {
		t.Fatalf("unexpected truncated value %q", got)
	}
}
