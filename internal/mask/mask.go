// Package mask implements the Prompt Masker described in spec.md §4.9,
// grounded on original_source/services/masking.py's right-to-left,
// offset-preserving substitution.
package mask

import (
	"sort"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
)

// ByEntities replaces each entity's range in text with its bare label token
// (e.g. "PHONE"), applied right-to-left so replacing one span never shifts
// the offsets of spans not yet processed. Used to build the final response
// the caller sees.
func ByEntities(text string, entities []entity.Entity) string {
	return maskWith(text, entities, false)
}

// WithParensByEntities is identical to ByEntities except every replacement
// token is wrapped in parentheses, e.g. "(PHONE)". Used exclusively to build
// the prompt fed to the LLM Detector Runtime, so the model sees an
// unambiguous redacted marker while the surrounding context is preserved.
func WithParensByEntities(text string, entities []entity.Entity) string {
	return maskWith(text, entities, true)
}

func maskWith(text string, entities []entity.Entity, parens bool) string {
	if len(entities) == 0 || text == "" {
		return text
	}

	ordered := resolveOverlaps(entities)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Begin > ordered[j].Begin
	})

	runes := []rune(text)
	for _, e := range ordered {
		begin, end := e.Begin, e.End
		if begin < 0 {
			begin = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if begin >= end {
			continue
		}
		token := string(e.Label)
		if parens {
			token = "(" + token + ")"
		}
		replacement := []rune(token)
		merged := make([]rune, 0, len(runes)-(end-begin)+len(replacement))
		merged = append(merged, runes[:begin]...)
		merged = append(merged, replacement...)
		merged = append(merged, runes[end:]...)
		runes = merged
	}
	return string(runes)
}

// resolveOverlaps breaks ties the way spec.md §4.9 requires: "when two
// entities overlap (only possible via the value-fallback path), the
// earlier-starting, longer span wins." Both sources this package is fed
// (the Span Merger's output) are expected to already be non-overlapping,
// but this guards against any value-fallback path that isn't.
func resolveOverlaps(entities []entity.Entity) []entity.Entity {
	sorted := make([]entity.Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Begin != sorted[j].Begin {
			return sorted[i].Begin < sorted[j].Begin
		}
		return (sorted[i].End - sorted[i].Begin) > (sorted[j].End - sorted[j].Begin)
	})

	var out []entity.Entity
	for _, e := range sorted {
		overlaps := false
		for _, accepted := range out {
			if e.Overlaps(accepted) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			out = append(out, e)
		}
	}
	return out
}
