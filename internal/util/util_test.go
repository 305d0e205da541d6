// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_CreatesParentAndWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.toml")

	if err := AtomicWriteFile(path, []byte("x = 1\n"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "x = 1\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	for _, body := range []string{"first", "second"} {
		if err := AtomicWriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("AtomicWriteFile(%q) failed: %v", body, err)
		}
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// TEXT TESTS
// =============================================================================

func TestClampRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"héllo wörld", 4, "héll"},
		{"日本語テキスト", 3, "日本語"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := ClampRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("ClampRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestRuneLen(t *testing.T) {
	if n := RuneLen("日本"); n != 2 {
		t.Errorf("RuneLen = %d, want 2", n)
	}
	if n := RuneLen(""); n != 0 {
		t.Errorf("RuneLen(\"\") = %d, want 0", n)
	}
}

func TestWidth(t *testing.T) {
	if w := Width("abc"); w != 3 {
		t.Errorf("Width(abc) = %d", w)
	}
	if w := Width("日本"); w != 4 {
		t.Errorf("Width(日本) = %d, want 4", w)
	}
}

func TestEllipsize(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Ellipsize(tt.in, tt.width); got != tt.want {
			t.Errorf("Ellipsize(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
