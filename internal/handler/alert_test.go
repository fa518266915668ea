package handler

import (
	"strings"
	"testing"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
)

func TestBuildAlertEmptyForNoEntities(t *testing.T) {
	if got := BuildAlert(nil); got != "" {
		t.Errorf("expected empty alert, got %q", got)
	}
}

func TestBuildAlertRegexOnlyClause(t *testing.T) {
	ents := []entity.Entity{{Label: entity.PHONE, Value: "010", Begin: 0, End: 3, Provenance: entity.ProvenanceRegex}}
	got := BuildAlert(ents)
	if !strings.Contains(got, "PHONE") || !strings.Contains(got, "정규식") {
		t.Errorf("unexpected alert: %q", got)
	}
	if strings.Contains(got, "AI로") {
		t.Errorf("alert should not mention AI clause when no LLM entities: %q", got)
	}
}

func TestBuildAlertBothClauses(t *testing.T) {
	ents := []entity.Entity{
		{Label: entity.PHONE, Value: "010", Begin: 0, End: 3, Provenance: entity.ProvenanceRegex},
		{Label: entity.NAME, Value: "Kim", Begin: 10, End: 13, Provenance: entity.ProvenanceLLM},
	}
	got := BuildAlert(ents)
	if !strings.Contains(got, "정규식") || !strings.Contains(got, "AI로") {
		t.Errorf("expected both clauses, got %q", got)
	}
}

func TestBuildAlertDedupesSameLabel(t *testing.T) {
	ents := []entity.Entity{
		{Label: entity.PHONE, Value: "010", Begin: 0, End: 3, Provenance: entity.ProvenanceRegex},
		{Label: entity.PHONE, Value: "011", Begin: 10, End: 13, Provenance: entity.ProvenanceRegex},
	}
	got := BuildAlert(ents)
	if strings.Count(got, "PHONE") != 1 {
		t.Errorf("expected PHONE to appear once, got %q", got)
	}
}
