package policy

import "testing"

func TestIsMonitoredDefaultsOnWhenFilterMissing(t *testing.T) {
	snap := Snapshot{ServiceFilters: map[string]map[string]bool{}}
	if !IsMonitored(snap, "web", "chat.openai.com") {
		t.Error("expected default-on monitoring when no filter configured")
	}
}

func TestIsMonitoredAllFalseIsGlobalOff(t *testing.T) {
	snap := Snapshot{ServiceFilters: map[string]map[string]bool{
		"web": {"gpt": false, "claude": false},
	}}
	if IsMonitored(snap, "web", "chat.openai.com") {
		t.Error("expected global-off when every filter value is false")
	}
}

func TestIsMonitoredHostSubstringMatch(t *testing.T) {
	snap := Snapshot{ServiceFilters: map[string]map[string]bool{
		"web": {"gpt": false, "claude": true},
	}}
	if !IsMonitored(snap, "web", "claude.ai") {
		t.Error("expected monitored=true for claude.ai per filter")
	}
	if IsMonitored(snap, "web", "chatgpt.com") {
		t.Error("expected monitored=false for chatgpt per filter")
	}
}

func TestIsMonitoredDeepseekAndGroqSubstringMatch(t *testing.T) {
	snap := Snapshot{ServiceFilters: map[string]map[string]bool{
		"llm": {"deepseek": false, "groq": false},
	}}
	if IsMonitored(snap, "llm", "chat.deepseek.com") {
		t.Error("expected monitored=false for chat.deepseek.com per filter")
	}
	if IsMonitored(snap, "llm", "groq.com") {
		t.Error("expected monitored=false for groq.com per filter")
	}
}

func TestIsMonitoredNoSubstringMatchDefaultsOn(t *testing.T) {
	snap := Snapshot{ServiceFilters: map[string]map[string]bool{
		"web": {"gpt": false, "claude": true},
	}}
	if !IsMonitored(snap, "web", "example.com") {
		t.Error("expected monitored=true when host matches no known substring")
	}
}

func TestEvaluateNotSensitive(t *testing.T) {
	d := Evaluate(ResponseMask, false, false)
	if !d.Allow || d.Action != "allow" || d.FinalPromptSource != FinalPromptOriginal {
		t.Errorf("unexpected decision for non-sensitive request: %+v", d)
	}
}

func TestEvaluateBlockMethod(t *testing.T) {
	d := Evaluate(ResponseBlock, true, false)
	if d.Allow || d.Action != "block_sensitive" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestEvaluateBlockMethodWithFileContribution(t *testing.T) {
	d := Evaluate(ResponseBlock, true, true)
	if d.Allow || d.Action != "block_file_sensitive" || !d.FileBlocked {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestEvaluateAllowMethod(t *testing.T) {
	d := Evaluate(ResponseAllow, true, false)
	if !d.Allow || d.Action != "allow_sensitive" || d.FinalPromptSource != FinalPromptOriginal {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestEvaluateMaskMethod(t *testing.T) {
	d := Evaluate(ResponseMask, true, false)
	if !d.Allow || d.Action != "mask_and_allow" || d.FinalPromptSource != FinalPromptMasked {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestUnmonitoredDecision(t *testing.T) {
	d := Unmonitored()
	if d.Monitored || !d.Allow || d.Action != "allow_unmonitored" {
		t.Errorf("unexpected unmonitored decision: %+v", d)
	}
}

func TestApplyImageSimilarityOverrideTriggers(t *testing.T) {
	base := Evaluate(ResponseMask, false, false)
	got := ApplyImageSimilarityOverride(base, true, true, 1, 0.5)
	if got.Allow || got.Action != "block_upload_similar" || !got.FileBlocked {
		t.Errorf("expected similarity override to block, got %+v", got)
	}
}

func TestApplyImageSimilarityOverrideSkippedWhenNotImage(t *testing.T) {
	base := Evaluate(ResponseMask, false, false)
	got := ApplyImageSimilarityOverride(base, false, true, 1, 0.9)
	if got != base {
		t.Errorf("expected decision unchanged when attachment isn't an image: %+v", got)
	}
}

func TestApplyImageSimilarityOverrideSkippedBelowThreshold(t *testing.T) {
	base := Evaluate(ResponseMask, false, false)
	got := ApplyImageSimilarityOverride(base, true, true, 0, 0.39)
	if got != base {
		t.Errorf("expected decision unchanged below similarity threshold: %+v", got)
	}
}

func TestApplyImageSimilarityOverrideSkippedWhenOCRTextLong(t *testing.T) {
	base := Evaluate(ResponseMask, false, false)
	got := ApplyImageSimilarityOverride(base, true, true, 10, 0.9)
	if got != base {
		t.Errorf("expected decision unchanged when OCR text isn't near-empty: %+v", got)
	}
}
