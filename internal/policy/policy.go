// Package policy implements the Policy Engine described in spec.md §4.7:
// the per-request monitoring decision, the sensitivity verdict, and the
// image-similarity override, grounded on the same host-substring filter
// table and response-method switch the original routers/logs.py encodes.
package policy

import "strings"

// ResponseMethod is the operator-configured reaction to a sensitive prompt.
type ResponseMethod string

const (
	ResponseBlock ResponseMethod = "block"
	ResponseAllow ResponseMethod = "allow"
	ResponseMask  ResponseMethod = "mask"
)

// Snapshot is the subset of persisted settings the Policy Engine consults.
// It is read fresh (or from a cached copy) per request by the caller.
type Snapshot struct {
	// ServiceFilters maps interface name (e.g. "llm", "mcp") to a map of
	// host-substring key -> monitored bool. A missing or empty mapping for
	// an interface means "monitor everything" (default-on).
	ServiceFilters map[string]map[string]bool

	ResponseMethod ResponseMethod
}

// hostSubstringTable maps a short key to the host substring it matches.
// The first key (in table order) whose substring appears in host wins.
var hostSubstringTable = []struct {
	key       string
	substring string
}{
	{"gpt", "chatgpt"},
	{"claude", "claude"},
	{"gemini", "gemini"},
	{"copilot", "copilot"},
	{"perplexity", "perplexity"},
	{"deepseek", "deepseek"},
	{"groq", "groq"},
}

// Decision is the Policy Engine's verdict for one request.
type Decision struct {
	Monitored         bool
	Allow             bool
	FileBlocked       bool
	Action            string
	FinalPromptSource FinalPromptSource
}

// FinalPromptSource tells the caller which text to use as the response's
// final prompt: the original verbatim, or the masked rewrite.
type FinalPromptSource string

const (
	FinalPromptOriginal FinalPromptSource = "original"
	FinalPromptMasked   FinalPromptSource = "masked"
)

// IsMonitored implements the monitoring decision: look up the interface's
// service filter mapping; an absent or empty mapping defaults to monitored;
// an all-false mapping is an operator-intentional global off; otherwise the
// first matching host substring decides, defaulting to monitored on no
// match at all.
func IsMonitored(snap Snapshot, iface, host string) bool {
	m, ok := snap.ServiceFilters[iface]
	if !ok || len(m) == 0 {
		return true
	}

	allFalse := true
	for _, v := range m {
		if v {
			allFalse = false
			break
		}
	}
	if allFalse {
		return false
	}

	lowerHost := strings.ToLower(host)
	for _, row := range hostSubstringTable {
		if strings.Contains(lowerHost, row.substring) {
			if v, ok := m[row.key]; ok {
				return v
			}
			return true
		}
	}
	return true
}

// Evaluate computes the full decision for a monitored request. sensitiveAny
// is entities_in_prompt ∪ regex_in_ocr ∪ llm.has_sensitive, already combined
// by the caller.
func Evaluate(method ResponseMethod, sensitiveAny bool, fileContributedSensitive bool) Decision {
	if !sensitiveAny {
		return Decision{Monitored: true, Allow: true, Action: "allow", FinalPromptSource: FinalPromptOriginal}
	}

	switch method {
	case ResponseBlock:
		action := "block_sensitive"
		if fileContributedSensitive {
			action = "block_file_sensitive"
		}
		return Decision{
			Monitored:         true,
			Allow:             false,
			FileBlocked:       fileContributedSensitive,
			Action:            action,
			FinalPromptSource: FinalPromptMasked,
		}
	case ResponseAllow:
		return Decision{Monitored: true, Allow: true, Action: "allow_sensitive", FinalPromptSource: FinalPromptOriginal}
	default: // ResponseMask, and any unrecognized value defaults to mask
		return Decision{Monitored: true, Allow: true, Action: "mask_and_allow", FinalPromptSource: FinalPromptMasked}
	}
}

// Unmonitored is the fixed decision for a request the Policy Engine decided
// not to monitor: all detection, redaction, and LLM calls are skipped.
func Unmonitored() Decision {
	return Decision{
		Monitored:         false,
		Allow:             true,
		FileBlocked:       false,
		Action:            "allow_unmonitored",
		FinalPromptSource: FinalPromptOriginal,
	}
}

// ApplyImageSimilarityOverride implements the always-evaluated-last
// image-similarity override: when the attachment is an image, OCR ran, the
// OCR text (after stripping) is shorter than 3 runes, and the best SSIM
// score against the admin blocklist folder is >= 0.4, the request is
// blocked regardless of what the prior decision said.
func ApplyImageSimilarityOverride(d Decision, isImage, ocrRan bool, strippedOCRLen int, bestSimilarity float64) Decision {
	if !isImage || !ocrRan || strippedOCRLen >= 3 {
		return d
	}
	if bestSimilarity < 0.4 {
		return d
	}
	d.FileBlocked = true
	d.Allow = false
	d.Action = "block_upload_similar"
	return d
}
