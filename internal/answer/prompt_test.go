package answer

import "testing"

func TestBuildContext(t *testing.T) {
	got := BuildContext([]ContextPassage{
		{FileName: "A.pdf", Text: "alpha"},
		{FileName: "B.pdf", Text: "beta"},
	})
	want := "Source (File: A.pdf):\nalpha\n---\nSource (File: B.pdf):\nbeta\n---\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt("ctx\n", "why?")
	if want := "Context:\nctx\n\nQuestion: why?"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAppendCitations(t *testing.T) {
	if got := AppendCitations("answer", nil); got != "answer" {
		t.Errorf("expected answer unchanged, got %q", got)
	}
	got := AppendCitations("answer", []string{"u1", "u2"})
	if want := "answer\n\n**Files Referred:**\n- u1\n- u2"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
