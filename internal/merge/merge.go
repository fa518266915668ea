// Package merge implements the Number Normalizer's second-pass reconciliation
// and the Span Merger described in spec.md §4.4 and §4.6: combining the raw
// regex pass, the normalized-text regex pass, and the LLM Detector Runtime's
// offset-free entities into one de-overlapped, provenance-tagged span list
// anchored to the original prompt.
package merge

import (
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/normalize"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/regexdetect"
)

// RawDetection is an LLM Detector Runtime hit before rebasing: it carries a
// label and a value but no offsets, since the model only ever echoes text.
type RawDetection struct {
	Label string
	Value string
}

// RegexPass runs the raw-text regex pass and, when normalization changes the
// text, a second pass over the normalized text rebased back to original
// offsets. Normalized spans that overlap any raw-pass span (label-agnostic)
// are dropped per spec.md §4.4, so obfuscated numbers are recovered without
// double-counting what the raw pass already found.
func RegexPass(text string) []entity.Entity {
	raw := regexdetect.Detect(text)
	for i := range raw {
		raw[i].Provenance = entity.ProvenanceRegex
	}

	norm := normalize.Normalize(text)
	if !norm.Changed(text) {
		return raw
	}

	normEnts := regexdetect.Detect(norm.Text)
	if len(normEnts) == 0 {
		return raw
	}

	origRunes := []rune(text)
	combined := raw
	for _, ne := range normEnts {
		begin, end, ok := norm.Rebase(ne.Begin, ne.End)
		if !ok {
			continue
		}
		overlapsRaw := false
		for _, r := range raw {
			if entity.RangeOverlaps(begin, end, r.Begin, r.End) {
				overlapsRaw = true
				break
			}
		}
		if overlapsRaw {
			continue
		}
		if begin < 0 || end > len(origRunes) || begin >= end {
			continue
		}
		combined = append(combined, entity.Entity{
			Label:      ne.Label,
			Value:      string(origRunes[begin:end]),
			Begin:      begin,
			End:        end,
			Provenance: entity.ProvenanceRegex,
		})
	}
	return combined
}

// WithLLM rebases raw LLM detections onto the original prompt and merges
// them with the already-anchored regex spans, per spec.md §4.6. The
// rolling-cursor search is ported from original_source/services/ai_external.py's
// _add_spans: find each entity's value from the cursor, advance the cursor
// past the match, retry from 0 on a miss, and drop entities that never
// resolve a span.
//
// Each LLM entity's value is searched for in text starting from a rolling
// cursor that advances past every successful match (so repeated values
// resolve to successive occurrences instead of piling onto the first one);
// if not found from the cursor it is retried from position 0; if still not
// found it is dropped. Resulting LLM spans are then deduplicated against the
// regex spans: an LLM span is rejected if it is span-identical to any regex
// span, or if it shares a label with a regex span whose range it overlaps.
// Regex always wins an identical-span, same-label tie, since the LLM span
// is simply dropped and the regex entity (already in regexSpans) survives.
func WithLLM(text string, regexSpans []entity.Entity, llmDetections []RawDetection) []entity.Entity {
	runes := []rune(text)
	cursor := 0
	var llmSpans []entity.Entity

	for _, d := range llmDetections {
		if !entity.IsWhitelisted(d.Label) {
			continue
		}
		value := trimSpace(d.Value)
		if value == "" {
			continue
		}
		vrunes := []rune(value)

		begin, found := findRuneSubstring(runes, vrunes, cursor)
		if !found {
			begin, found = findRuneSubstring(runes, vrunes, 0)
		}
		if !found {
			continue
		}
		end := begin + len(vrunes)
		cursor = end

		llmSpans = append(llmSpans, entity.Entity{
			Label:      entity.Label(d.Label),
			Value:      string(runes[begin:end]),
			Begin:      begin,
			End:        end,
			Provenance: entity.ProvenanceLLM,
		})
	}

	merged := make([]entity.Entity, len(regexSpans))
	copy(merged, regexSpans)

	for _, l := range llmSpans {
		if dedupeAgainstRegex(l, regexSpans) {
			continue
		}
		merged = append(merged, l)
	}
	return merged
}

func dedupeAgainstRegex(l entity.Entity, regexSpans []entity.Entity) bool {
	for _, r := range regexSpans {
		if l.Begin == r.Begin && l.End == r.End {
			return true
		}
		if l.Label == r.Label && entity.RangeOverlaps(l.Begin, l.End, r.Begin, r.End) {
			return true
		}
	}
	return false
}

func findRuneSubstring(haystack, needle []rune, start int) (int, bool) {
	if len(needle) == 0 {
		return 0, false
	}
	if start < 0 {
		start = 0
	}
	for i := start; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, nr := range needle {
			if haystack[i+j] != nr {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
