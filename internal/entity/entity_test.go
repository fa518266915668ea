package entity

import "testing"

func TestIsWhitelisted(t *testing.T) {
	cases := []struct {
		label string
		want  bool
	}{
		{"PHONE", true},
		{"NAME", true},
		{"SSN", false},
		{"", false},
		{"phone", false}, // case-sensitive, exact match only
	}
	for _, c := range cases {
		if got := IsWhitelisted(c.label); got != c.want {
			t.Errorf("IsWhitelisted(%q) = %v, want %v", c.label, got, c.want)
		}
	}
}

func TestEntityOverlaps(t *testing.T) {
	a := Entity{Begin: 0, End: 5}
	b := Entity{Begin: 4, End: 10}
	c := Entity{Begin: 5, End: 10}

	if !a.Overlaps(b) {
		t.Error("expected [0,5) and [4,10) to overlap")
	}
	if a.Overlaps(c) {
		t.Error("expected [0,5) and [5,10) to be adjacent, not overlapping")
	}
}

func TestSliceRunesMultiByte(t *testing.T) {
	text := "내 번호 010-1234-5678 이야"
	runes := []rune(text)
	value := "010-1234-5678"
	valueRunes := []rune(value)

	begin := -1
	for i := 0; i+len(valueRunes) <= len(runes); i++ {
		if string(runes[i:i+len(valueRunes)]) == value {
			begin = i
			break
		}
	}
	if begin < 0 {
		t.Fatalf("fixture setup failed: %q not found in %q", value, text)
	}
	end := begin + len(valueRunes)

	// Rune offsets must differ from byte offsets on this multi-byte text,
	// otherwise the test isn't exercising the rune-based offset model.
	if begin == indexByte(text, value) {
		t.Fatal("test fixture should have rune offset != byte offset to be meaningful")
	}

	got := SliceRunes(text, begin, end)
	if got != value {
		t.Errorf("SliceRunes(%d,%d) = %q, want %q", begin, end, got, value)
	}
}

func indexByte(text, sub string) int {
	for i := 0; i+len(sub) <= len(text); i++ {
		if text[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestRuneLenVsByteLen(t *testing.T) {
	text := "안녕"
	if RuneLen(text) != 2 {
		t.Errorf("RuneLen(%q) = %d, want 2", text, RuneLen(text))
	}
	if len(text) == RuneLen(text) {
		t.Fatal("test fixture should have byte_len != rune_len to be meaningful")
	}
}
