package domain

import (
	"reflect"
	"testing"
)

func TestEvidence(t *testing.T) {
	t.Parallel()

	t.Run("fresh buffer is empty", func(t *testing.T) {
		t.Parallel()
		ev := NewEvidence()
		if !ev.Empty() {
			t.Error("expected fresh buffer to be empty")
		}
		if len(ev.Queries()) != 0 || len(ev.Snippets()) != 0 {
			t.Error("expected no queries or snippets")
		}
	})

	t.Run("records queries and snippets", func(t *testing.T) {
		t.Parallel()
		ev := NewEvidence()
		ev.AddQuery("copy paper a4")
		ev.AddSnippet("SKU-100 Copy paper A4 4.50")
		if ev.Empty() {
			t.Error("expected buffer with a snippet to be non-empty")
		}
		if got := ev.Queries(); !reflect.DeepEqual(got, []string{"copy paper a4"}) {
			t.Errorf("unexpected queries: %v", got)
		}
		if got := ev.Snippets(); !reflect.DeepEqual(got, []string{"SKU-100 Copy paper A4 4.50"}) {
			t.Errorf("unexpected snippets: %v", got)
		}
	})

	t.Run("queries alone do not count as evidence", func(t *testing.T) {
		t.Parallel()
		ev := NewEvidence()
		ev.AddQuery("pens")
		if !ev.Empty() {
			t.Error("expected buffer with no snippets to be empty")
		}
	})

	t.Run("accessors return copies", func(t *testing.T) {
		t.Parallel()
		ev := NewEvidence()
		ev.AddSnippet("original")
		snippets := ev.Snippets()
		snippets[0] = "mutated"
		if ev.Snippets()[0] != "original" {
			t.Error("expected internal state unaffected by caller mutation")
		}
	})

	t.Run("reset clears everything", func(t *testing.T) {
		t.Parallel()
		ev := NewEvidence()
		ev.AddQuery("q")
		ev.AddSnippet("s")
		ev.Reset()
		if !ev.Empty() || len(ev.Queries()) != 0 {
			t.Error("expected reset buffer to be empty")
		}
	})

	t.Run("nil receiver is safe", func(t *testing.T) {
		t.Parallel()
		var ev *Evidence
		ev.AddQuery("q")
		ev.AddSnippet("s")
		ev.Reset()
		if !ev.Empty() {
			t.Error("expected nil buffer to report empty")
		}
	})
}
