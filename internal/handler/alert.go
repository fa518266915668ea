package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
)

// BuildAlert implements the two-clause alert sentence from spec.md §4.10
// step 8: entities are grouped by which stage accepted them, and each
// non-empty group contributes one clause. If no span carries a known
// provenance (shouldn't happen in practice, but merge.WithLLM's output is
// trusted, not assumed) it falls back to a plain label list.
func BuildAlert(entities []entity.Entity) string {
	if len(entities) == 0 {
		return ""
	}

	regexLabels := uniqueSortedLabels(entities, entity.ProvenanceRegex)
	llmLabels := uniqueSortedLabels(entities, entity.ProvenanceLLM)

	var clauses []string
	if len(regexLabels) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s 값이 정규식으로 식별되었습니다.", strings.Join(regexLabels, ", ")))
	}
	if len(llmLabels) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s 값은 AI로 식별되었습니다.", strings.Join(llmLabels, ", ")))
	}
	if len(clauses) == 0 {
		return "Detected: " + strings.Join(uniqueSortedLabels(entities, ""), ", ")
	}
	return strings.Join(clauses, " ")
}

// uniqueSortedLabels collects distinct labels among entities whose
// Provenance equals want, or among all entities when want is "".
func uniqueSortedLabels(entities []entity.Entity, want entity.Provenance) []string {
	seen := map[string]bool{}
	for _, e := range entities {
		if want != "" && e.Provenance != want {
			continue
		}
		seen[string(e.Label)] = true
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
