package detector

import "time"

// AnalyzeRequest is one call into the LLM Detector Runtime: the masked
// prompt to analyze (built by mask.WithParensByEntities so the model sees
// an unambiguous redacted form while retaining surrounding context).
type AnalyzeRequest struct {
	Text string
}

// RawEntity is a single {type, value} pair as emitted by the model, before
// whitelist validation or offset rebasing.
type RawEntity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AnalyzeResponse is the LLM Detector Runtime's output contract from
// spec.md §4.5: analyze(text) -> {has_sensitive, entities, processing_ms}.
type AnalyzeResponse struct {
	HasSensitive bool        `json:"has_sensitive"`
	Entities     []RawEntity `json:"entities"`
	ProcessingMs int64       `json:"processing_ms"`
}

// SafeFallback is the response returned whenever output parsing fails, the
// circuit breaker is open, or the call times out.
func SafeFallback() AnalyzeResponse {
	return AnalyzeResponse{HasSensitive: false, Entities: []RawEntity{}}
}

// HealthStatus reports whether the local model process is loaded and
// reachable, for the admin-gated diagnostics endpoint.
type HealthStatus struct {
	Status              string        `json:"status"` // "ready", "loading", "unavailable"
	ModelDir            string        `json:"model_dir"`
	Uptime              time.Duration `json:"uptime"`
	RequestsServed      int64         `json:"requests_served"`
	CircuitBreakerState string        `json:"circuit_breaker_state"`
}
