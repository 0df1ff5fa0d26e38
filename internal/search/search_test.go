package search

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestManager_Grep_FindsMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\nfunc Foo() {}\n")
	writeFile(t, filepath.Join(dir, "b.go"), "package b\n")

	m := New(dir)
	rows, res := m.Grep(`func \w+`, "", "")
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Line != 2 {
		t.Errorf("Line = %d, want 2", rows[0].Line)
	}
}

func TestManager_Grep_IncludeFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "needle")
	writeFile(t, filepath.Join(dir, "a.txt"), "needle")

	m := New(dir)
	rows, res := m.Grep("needle", "", "*.go")
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	if len(rows) != 1 || filepath.Ext(rows[0].File) != ".go" {
		t.Errorf("rows = %+v, want exactly one .go match", rows)
	}
}

func TestManager_Grep_InvalidPattern(t *testing.T) {
	m := New(t.TempDir())
	_, res := m.Grep("(unclosed", "", "")
	if res.OK {
		t.Errorf("expected error for invalid regex")
	}
}

func TestManager_Glob_RecursiveDoubleStar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "deep", "file.go"), "x")
	writeFile(t, filepath.Join(dir, "top.go"), "x")
	writeFile(t, filepath.Join(dir, "top.txt"), "x")

	m := New(dir)
	matches, res := m.Glob("**/*.go", "")
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2: %v", len(matches), matches)
	}
}

func TestManager_Glob_TruncatesAtLimit(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < MaxResults+5; i++ {
		writeFile(t, filepath.Join(dir, "f"+strconv.Itoa(i)+".go"), "x")
	}

	m := New(dir)
	matches, res := m.Glob("*.go", "")
	if !res.Truncated {
		t.Errorf("expected truncation marker for result set over the cap")
	}
	if len(matches) != MaxResults {
		t.Errorf("got %d matches, want capped at %d", len(matches), MaxResults)
	}
}
