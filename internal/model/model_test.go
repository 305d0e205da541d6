// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

func TestTurn_StreamingLifecycle(t *testing.T) {
	turn := NewStreamingTurn()
	turn.Append("Hel")
	turn.Append("lo")

	if got := turn.Text(); got != "Hello" {
		t.Fatalf("Text() while streaming = %q", got)
	}

	turn.Finalize()
	turn.Append(" ignored")
	turn.Finalize()

	if turn.Streaming {
		t.Error("turn should not be streaming after Finalize")
	}
	if turn.Content != "Hello" {
		t.Errorf("Content = %q, want %q", turn.Content, "Hello")
	}
}

func TestTurn_Replace(t *testing.T) {
	turn := NewStreamingTurn()
	turn.Append("partial answ")
	turn.Replace("Sorry")

	if turn.Streaming || turn.Text() != "Sorry" {
		t.Errorf("Replace left streaming=%v text=%q", turn.Streaming, turn.Text())
	}
}

func TestTranscript_EntriesSkipsStreamingAndEmpty(t *testing.T) {
	var tr Transcript
	tr.AddUser("hi")
	a := tr.BeginAssistant()
	a.Append("hello")
	a.Finalize()
	tr.AddUser("and you?")
	tr.BeginAssistant()

	entries := tr.Entries()
	want := []Entry{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "and you?"},
	}
	if len(entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
	if tr.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tr.Len())
	}
}

func TestTurn_IDsAreUnique(t *testing.T) {
	a, b := NewTurn(RoleUser, "x"), NewTurn(RoleUser, "x")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
}
