package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/policyrag/internal/doctree"
)

func chunkOf(size int, pages ...int) doctree.Chunk {
	return doctree.Chunk{Content: strings.Repeat("y", size), Pages: pages}
}

func TestConsolidate_MergesWithinBudget(t *testing.T) {
	chunks := []doctree.Chunk{chunkOf(2000, 0), chunkOf(2000, 1)}
	out := Consolidate(chunks, 5000, "-----")

	if len(out) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(out))
	}
	if len(out[0].Content) != 4005 {
		t.Errorf("expected 4005 chars, got %d", len(out[0].Content))
	}
	if got := out[0].Pages; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("expected pages [0 1], got %v", got)
	}
}

func TestConsolidate_ExactBoundary(t *testing.T) {
	sep := DefaultSeparator
	first := 5000 - len(sep) - 1000
	out := Consolidate([]doctree.Chunk{chunkOf(first, 0), chunkOf(1000, 1)}, 5000, sep)
	if len(out) != 1 {
		t.Fatalf("expected merge at exactly the budget, got %d chunks", len(out))
	}
	if len(out[0].Content) != 5000 {
		t.Errorf("expected 5000 chars, got %d", len(out[0].Content))
	}

	out = Consolidate([]doctree.Chunk{chunkOf(first+1, 0), chunkOf(1000, 1)}, 5000, sep)
	if len(out) != 2 {
		t.Errorf("expected no merge one char past the budget, got %d chunks", len(out))
	}
}

func TestConsolidate_NoLookahead(t *testing.T) {
	// 3000 + 3000 overflows, so the first chunk is emitted even though
	// 3000 + 100 would have fit had the middle chunk been skipped.
	chunks := []doctree.Chunk{chunkOf(3000, 0), chunkOf(3000, 1), chunkOf(100, 2)}
	out := Consolidate(chunks, 5000, DefaultSeparator)

	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}
	if len(out[0].Content) != 3000 {
		t.Errorf("expected first chunk untouched, got %d chars", len(out[0].Content))
	}
	if want := 3000 + len(DefaultSeparator) + 100; len(out[1].Content) != want {
		t.Errorf("expected %d chars, got %d", want, len(out[1].Content))
	}
}

func TestConsolidate_Properties(t *testing.T) {
	sizes := []int{100, 4000, 900, 50, 50, 6000, 10, 2400, 2400, 1}
	var chunks []doctree.Chunk
	for i, n := range sizes {
		chunks = append(chunks, chunkOf(n, i))
	}
	const limit = 5000
	out := Consolidate(chunks, limit, DefaultSeparator)

	if len(out) > len(chunks) {
		t.Errorf("consolidation increased chunk count: %d -> %d", len(chunks), len(out))
	}

	var pages []int
	for i, c := range out {
		if len(c.Content) > limit && len(c.Pages) != 1 {
			t.Errorf("chunk %d: merged chunk of %d chars exceeds budget", i, len(c.Content))
		}
		pages = append(pages, c.Pages...)
	}
	for i, p := range pages {
		if p != i {
			t.Fatalf("pages reordered or lost: %v", pages)
		}
	}
}

func TestConsolidate_DoesNotAliasInput(t *testing.T) {
	in := []doctree.Chunk{
		{Content: "a", Pages: make([]int, 1, 8)},
		{Content: "b", Pages: []int{1}},
		{Content: strings.Repeat("c", 100), Pages: []int{2}},
	}
	out := Consolidate(in, 20, DefaultSeparator)
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}

	out[0].Pages[0] = 99
	if in[0].Pages[0] != 0 {
		t.Error("mutating output pages changed the input chunk")
	}
	if len(in[0].Pages) != 1 {
		t.Errorf("input pages were extended: %v", in[0].Pages)
	}
}

func TestConsolidate_Empty(t *testing.T) {
	if out := Consolidate(nil, 100, DefaultSeparator); out != nil {
		t.Errorf("expected nil, got %v", out)
	}
}
