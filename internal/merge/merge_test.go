package merge

import (
	"testing"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
)

func TestRegexPassUnchangedTextMatchesRawDetect(t *testing.T) {
	text := "call 010-1234-5678"
	ents := RegexPass(text)
	if len(ents) != 1 || ents[0].Label != "PHONE" {
		t.Fatalf("expected single PHONE entity, got %+v", ents)
	}
	if ents[0].Provenance != entity.ProvenanceRegex {
		t.Errorf("provenance = %s, want regex", ents[0].Provenance)
	}
}

func TestRegexPassRecoversObfuscatedNumber(t *testing.T) {
	// Zero-width space splits the phone number so the raw pass can't match
	// it as a single token; the normalized pass should recover it and
	// rebase the span back onto the original (obfuscated) text.
	text := "call 010​1234​5678 now"
	ents := RegexPass(text)
	found := false
	runes := []rune(text)
	for _, e := range ents {
		if e.Label == "PHONE" {
			found = true
			if string(runes[e.Begin:e.End]) != e.Value {
				t.Errorf("text[%d:%d]=%q != value %q", e.Begin, e.End, string(runes[e.Begin:e.End]), e.Value)
			}
		}
	}
	if !found {
		t.Fatalf("expected recovered PHONE entity, got %+v", ents)
	}
}

func TestRegexPassDropsNormalizedSpanOverlappingRaw(t *testing.T) {
	// The raw pass finds the phone number; the trailing zero-width space makes
	// normalization change the text, so the normalized pass runs and finds
	// the same number again. That span overlaps the raw one and is dropped.
	text := "call 010-1234-5678 now​"
	ents := RegexPass(text)
	count := 0
	for _, e := range ents {
		if e.Label == "PHONE" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 PHONE entity, got %d: %+v", count, ents)
	}
}

func TestWithLLMAddsNewEntity(t *testing.T) {
	text := "제 이름은 홍길동입니다"
	regexSpans := RegexPass(text)
	llm := []RawDetection{{Label: "NAME", Value: "홍길동"}}

	merged := WithLLM(text, regexSpans, llm)
	var nameEnt *entity.Entity
	for i := range merged {
		if merged[i].Label == "NAME" {
			nameEnt = &merged[i]
		}
	}
	if nameEnt == nil {
		t.Fatalf("expected NAME entity in merged result, got %+v", merged)
	}
	if nameEnt.Value != "홍길동" {
		t.Errorf("value = %q, want 홍길동", nameEnt.Value)
	}
	runes := []rune(text)
	if string(runes[nameEnt.Begin:nameEnt.End]) != nameEnt.Value {
		t.Errorf("text[%d:%d] != value", nameEnt.Begin, nameEnt.End)
	}
}

func TestWithLLMDropsEntityNotFoundInText(t *testing.T) {
	text := "hello world"
	merged := WithLLM(text, nil, []RawDetection{{Label: "NAME", Value: "nonexistent"}})
	if len(merged) != 0 {
		t.Errorf("expected no entities, got %+v", merged)
	}
}

func TestWithLLMDropsUnwhitelistedLabel(t *testing.T) {
	text := "hello world"
	merged := WithLLM(text, nil, []RawDetection{{Label: "NOT_A_REAL_LABEL", Value: "world"}})
	if len(merged) != 0 {
		t.Errorf("expected unwhitelisted label to be dropped, got %+v", merged)
	}
}

func TestWithLLMRegexWinsIdenticalSpanTie(t *testing.T) {
	text := "call 010-1234-5678 now"
	regexSpans := RegexPass(text)
	llm := []RawDetection{{Label: "PHONE", Value: "010-1234-5678"}}

	merged := WithLLM(text, regexSpans, llm)
	count := 0
	for _, e := range merged {
		if e.Label == "PHONE" {
			count++
			if e.Provenance != entity.ProvenanceRegex {
				t.Errorf("surviving PHONE entity provenance = %s, want regex (regex should win the tie)", e.Provenance)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 surviving PHONE entity, got %d: %+v", count, merged)
	}
}

func TestWithLLMRollingCursorFindsSecondOccurrence(t *testing.T) {
	text := "Alice said hi. Alice said bye."
	llm := []RawDetection{
		{Label: "NAME", Value: "Alice"},
		{Label: "NAME", Value: "Alice"},
	}
	merged := WithLLM(text, nil, llm)
	if len(merged) != 2 {
		t.Fatalf("expected 2 NAME entities, got %+v", merged)
	}
	if merged[0].Begin == merged[1].Begin {
		t.Errorf("expected distinct occurrences, both resolved to begin=%d", merged[0].Begin)
	}
	runes := []rune(text)
	for _, e := range merged {
		if string(runes[e.Begin:e.End]) != "Alice" {
			t.Errorf("text[%d:%d] = %q, want Alice", e.Begin, e.End, string(runes[e.Begin:e.End]))
		}
	}
}
