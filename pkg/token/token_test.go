package token

import "testing"

func TestSpanMerge(t *testing.T) {
	a := Span{Start: 5, End: 10, StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 11}
	b := Span{Start: 12, End: 20, StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 9}

	m := a.Merge(b)
	if m.Start != 5 || m.End != 20 {
		t.Errorf("merged range: %+v", m)
	}
	if m.StartLine != 1 || m.EndLine != 2 {
		t.Errorf("merged coordinates: %+v", m)
	}

	// Merge is symmetric.
	if b.Merge(a) != m {
		t.Errorf("merge should not depend on order")
	}
}

func TestSpanContains(t *testing.T) {
	s := Span{Start: 3, End: 7}
	for offset, want := range map[int]bool{2: false, 3: true, 6: true, 7: false} {
		if got := s.Contains(offset); got != want {
			t.Errorf("Contains(%d) = %v, want %v", offset, got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	if Equals.String() != "'='" {
		t.Errorf("got %q", Equals.String())
	}
	if Kind(999).String() != "kind(999)" {
		t.Errorf("got %q", Kind(999).String())
	}
}

func TestIsTrivia(t *testing.T) {
	for _, k := range []Kind{Comment, Whitespace, Newline} {
		if !k.IsTrivia() {
			t.Errorf("%s should be trivia", k)
		}
	}
	for _, k := range []Kind{String, Identifier, Equals, EOF} {
		if k.IsTrivia() {
			t.Errorf("%s should not be trivia", k)
		}
	}
}
