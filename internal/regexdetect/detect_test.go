package regexdetect

import "testing"

func TestDetectPhone(t *testing.T) {
	text := "내 번호 010-1234-5678 이야"
	ents := Detect(text)
	if len(ents) != 1 {
		t.Fatalf("expected 1 entity, got %d: %+v", len(ents), ents)
	}
	e := ents[0]
	if e.Label != "PHONE" {
		t.Errorf("label = %s, want PHONE", e.Label)
	}
	if e.Value != "010-1234-5678" {
		t.Errorf("value = %q, want 010-1234-5678", e.Value)
	}
	runes := []rune(text)
	if string(runes[e.Begin:e.End]) != e.Value {
		t.Errorf("text[%d:%d] = %q, want %q", e.Begin, e.End, string(runes[e.Begin:e.End]), e.Value)
	}
}

func TestDetectCardNumberLuhnValid(t *testing.T) {
	text := "card 4539 1488 0343 6467"
	ents := Detect(text)
	found := false
	for _, e := range ents {
		if e.Label == "CARD_NUMBER" {
			found = true
			if e.Value != "4539 1488 0343 6467" {
				t.Errorf("value = %q", e.Value)
			}
		}
	}
	if !found {
		t.Fatalf("expected CARD_NUMBER entity, got %+v", ents)
	}
}

func TestDetectCardNumberLuhnInvalidRejected(t *testing.T) {
	text := "card 1111 1111 1111 1111"
	ents := Detect(text)
	for _, e := range ents {
		if e.Label == "CARD_NUMBER" {
			t.Fatalf("Luhn-invalid sequence should not be accepted as CARD_NUMBER: %+v", e)
		}
	}
}

func TestDetectNoOverlap(t *testing.T) {
	text := "contact a@b.co or 010-1234-5678"
	ents := Detect(text)
	for i := 0; i < len(ents); i++ {
		for j := i + 1; j < len(ents); j++ {
			if ents[i].Overlaps(ents[j]) {
				t.Errorf("entities overlap: %+v and %+v", ents[i], ents[j])
			}
		}
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	text := "email me at a@b.co, phone 010-1234-5678, card 4539 1488 0343 6467"
	first := Detect(text)
	second := Detect(text)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic entity count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entity %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectEveryEntityIsExactSubstring(t *testing.T) {
	text := "email a@b.co phone 010-1234-5678"
	runes := []rune(text)
	for _, e := range Detect(text) {
		got := string(runes[e.Begin:e.End])
		if got != e.Value {
			t.Errorf("entity %+v: text[begin:end]=%q != value=%q", e, got, e.Value)
		}
	}
}

func TestDetectPhonePreferredOverBroadBankAccountOnIdenticalSpan(t *testing.T) {
	// "010-1234-5678" is also shaped like a BANK_ACCOUNT candidate
	// (\d{2,6}-?\d{2,6}-?\d{2,8}); PHONE must win the identical-span tie
	// deterministically, regardless of Go's randomized map iteration order.
	text := "call 010-1234-5678 now"
	for i := 0; i < 20; i++ {
		ents := Detect(text)
		if len(ents) != 1 || ents[0].Label != "PHONE" {
			t.Fatalf("run %d: expected single PHONE entity, got %+v", i, ents)
		}
	}
}

func TestDetectGreeting(t *testing.T) {
	ents := Detect("hello world")
	if len(ents) != 0 {
		t.Errorf("expected no entities in plain greeting, got %+v", ents)
	}
}
