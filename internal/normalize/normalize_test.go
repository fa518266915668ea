package normalize

import "testing"

func TestNormalizeFullWidthDigits(t *testing.T) {
	// U+FF10..U+FF19 are full-width '0'..'9'.
	text := "phone ０１０－１２３４－５６７８"
	got := Normalize(text)
	want := "phone 010-1234-5678"
	if got.Text != want {
		t.Errorf("Normalize(%q).Text = %q, want %q", text, got.Text, want)
	}
	if len(got.OrigIndex) != len([]rune(got.Text)) {
		t.Fatalf("OrigIndex length %d != normalized rune length %d", len(got.OrigIndex), len([]rune(got.Text)))
	}
}

func TestNormalizeStripsZeroWidthSpace(t *testing.T) {
	text := "010​1234​5678"
	got := Normalize(text)
	want := "01012345678"
	if got.Text != want {
		t.Errorf("Normalize(%q).Text = %q, want %q", text, got.Text, want)
	}
}

func TestNormalizeUnchangedWhenPlain(t *testing.T) {
	text := "hello world 010-1234-5678"
	got := Normalize(text)
	if got.Changed(text) {
		t.Errorf("Normalize(%q) reported Changed, want unchanged", text)
	}
	if got.Text != text {
		t.Errorf("Normalize(%q).Text = %q, want identical", text, got.Text)
	}
}

func TestRebaseAcrossDeletedRunes(t *testing.T) {
	// Original: "a" + ZWSP + "bc" -> normalized "abc". Span [1,3) over
	// normalized ("bc") must rebase to [2,4) over the original text, since
	// the deleted ZWSP sits at original index 1.
	text := "a​bc"
	got := Normalize(text)
	if got.Text != "abc" {
		t.Fatalf("fixture: Normalize(%q).Text = %q, want \"abc\"", text, got.Text)
	}
	begin, end, ok := got.Rebase(1, 3)
	if !ok {
		t.Fatal("Rebase returned ok=false")
	}
	origRunes := []rune(text)
	if string(origRunes[begin:end]) != "bc" {
		t.Errorf("Rebase(1,3) -> original[%d:%d] = %q, want \"bc\"", begin, end, string(origRunes[begin:end]))
	}
}

func TestRebaseOutOfBounds(t *testing.T) {
	got := Normalize("abc")
	if _, _, ok := got.Rebase(2, 2); ok {
		t.Error("Rebase with empty range should return ok=false")
	}
	if _, _, ok := got.Rebase(0, 100); ok {
		t.Error("Rebase with out-of-bounds end should return ok=false")
	}
}

func TestNormalizeEmptyString(t *testing.T) {
	got := Normalize("")
	if got.Text != "" {
		t.Errorf("Normalize(\"\").Text = %q, want empty", got.Text)
	}
	if len(got.OrigIndex) != 0 {
		t.Errorf("Normalize(\"\").OrigIndex = %v, want empty", got.OrigIndex)
	}
}
