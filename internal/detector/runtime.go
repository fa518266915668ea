// Package detector implements the LLM Detector Runtime described in
// spec.md §4.5, grounded on
// original_source/services/offline_sensitive_detector_min.py: a single
// process-wide handle onto a local causal LM, loaded once at first use,
// with inference serialized through one mutex and bounded by a timeout.
//
// Go has no local-inference binding in this module's dependency set, so the
// "local causal LM" here is an external process (the same script the
// reference implementation is) driven over stdin/stdout: one line of prompt
// text per request (newlines folded to spaces), one JSON-ish line of model
// output back. Runtime owns the process
// lifecycle, the concurrency guard, and — independently of whatever the
// subprocess already did — the full output-parser contract (code-fence
// priority, balanced-brace scan, backward-scan fallback, safe fallback on
// any failure), since that contract must hold regardless of what's on the
// other end of the pipe.
package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/metrics"
)

// DefaultTimeout bounds a single analyze() call, per spec.md §4.5.
const DefaultTimeout = 20 * time.Second

// Runtime is the process-wide LLM Detector Runtime handle.
type Runtime struct {
	scriptPath string
	modelDir   string
	maxTokens  int
	timeout    time.Duration

	log     *logrus.Logger
	metrics *metrics.MetricsCollector
	breaker *CircuitBreaker

	once sync.Once
	mu   sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	startedAt      time.Time
	requestsServed int64
}

// Config configures a Runtime.
type Config struct {
	ScriptPath string // path to the offline detector entrypoint
	ModelDir   string
	MaxTokens  int
	Timeout    time.Duration
}

// NewRuntime constructs a Runtime. The underlying process isn't started
// until the first Analyze call (sync.Once), matching "loaded at first use".
func NewRuntime(cfg Config, log *logrus.Logger, mc *metrics.MetricsCollector) *Runtime {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Runtime{
		scriptPath: cfg.ScriptPath,
		modelDir:   cfg.ModelDir,
		maxTokens:  maxTokens,
		timeout:    timeout,
		log:        log,
		metrics:    mc,
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			Name:             "llm_detector_runtime",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
			MaxTimeout:       2 * time.Minute,
		}),
	}
}

// ensureStarted lazily launches the backing process exactly once.
func (r *Runtime) ensureStarted() error {
	var startErr error
	r.once.Do(func() {
		cmd := exec.Command(r.scriptPath,
			"--model_dir", r.modelDir,
			"--max_new_tokens", fmt.Sprint(r.maxTokens),
		)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			startErr = fmt.Errorf("detector: stdin pipe: %w", err)
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			startErr = fmt.Errorf("detector: stdout pipe: %w", err)
			return
		}
		if err := cmd.Start(); err != nil {
			startErr = fmt.Errorf("detector: start model process: %w", err)
			return
		}
		r.cmd = cmd
		r.stdin = stdin
		r.stdout = bufio.NewReader(stdout)
		r.startedAt = time.Now()
		if r.log != nil {
			r.log.WithField("model_dir", r.modelDir).Info("llm detector runtime process started")
		}
	})
	return startErr
}

// Analyze runs one inference, serialized against every other caller by mu,
// and bounded by ctx / the configured timeout, whichever is shorter.
func (r *Runtime) Analyze(ctx context.Context, text string) AnalyzeResponse {
	start := time.Now()

	var resp AnalyzeResponse
	err := r.breaker.Call(func() error {
		var callErr error
		resp, callErr = r.runOne(ctx, text)
		return callErr
	})
	if err == nil {
		return resp
	}

	if r.metrics != nil {
		if err == context.DeadlineExceeded {
			r.metrics.LLMInferenceTimeouts.Inc()
		} else {
			r.metrics.LLMInferenceErrors.Inc()
		}
	}
	if r.log != nil {
		r.log.WithError(err).Warn("llm detector runtime call failed; returning safe fallback")
	}
	resp = SafeFallback()
	resp.ProcessingMs = time.Since(start).Milliseconds()
	return resp
}

func (r *Runtime) runOne(ctx context.Context, text string) (AnalyzeResponse, error) {
	if err := r.ensureStarted(); err != nil {
		return AnalyzeResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		line string
		err  error
	}
	ch := make(chan outcome, 1)

	go func() {
		line, err := r.roundTrip(text)
		ch <- outcome{line, err}
	}()

	select {
	case <-callCtx.Done():
		// The abandoned goroutine may still be blocked on roundTrip; a
		// process that times out this way needs restarting before the next
		// call, since its stdout is now out of sync with its stdin.
		return AnalyzeResponse{}, callCtx.Err()
	case o := <-ch:
		if o.err != nil {
			return AnalyzeResponse{}, o.err
		}
		r.requestsServed++
		if r.metrics != nil {
			r.metrics.LLMInferenceDuration.Observe(time.Since(start).Seconds())
		}
		resp := parseAnalyzeOutput(o.line)
		resp.ProcessingMs = time.Since(start).Milliseconds()
		return resp, nil
	}
}

// roundTrip writes one request line to the process's stdin and reads one
// response line from its stdout. It holds no locks itself; callers
// serialize access via mu.
func (r *Runtime) roundTrip(text string) (string, error) {
	req := strings.ReplaceAll(text, "\n", " ") + "\n"
	if _, err := io.WriteString(r.stdin, req); err != nil {
		return "", fmt.Errorf("detector: write request: %w", err)
	}
	line, err := r.stdout.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("detector: read response: %w", err)
	}
	return line, nil
}

// Health reports the runtime's current operating status.
func (r *Runtime) Health() HealthStatus {
	status := "loading"
	if !r.startedAt.IsZero() {
		status = "ready"
	}
	if r.breaker.GetState() == CircuitOpen {
		status = "unavailable"
	}
	return HealthStatus{
		Status:              status,
		ModelDir:            r.modelDir,
		Uptime:              time.Since(r.startedAt),
		RequestsServed:      r.requestsServed,
		CircuitBreakerState: r.breaker.GetStateName(),
	}
}

// --- output parser contract (spec.md §4.5) ---

var codeFenceRE = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseAnalyzeOutput extracts and validates the model's JSON response,
// falling back to the safe default on any failure: malformed JSON, a
// non-object top level, a missing required key, or no JSON found at all.
func parseAnalyzeOutput(raw string) AnalyzeResponse {
	candidate := extractBestJSON(raw)
	if candidate == "" {
		return SafeFallback()
	}

	var parsed struct {
		HasSensitive *bool       `json:"has_sensitive"`
		Entities     []RawEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return SafeFallback()
	}
	if parsed.HasSensitive == nil {
		return SafeFallback()
	}

	var clean []RawEntity
	for _, e := range parsed.Entities {
		label := strings.ToUpper(strings.TrimSpace(e.Type))
		value := strings.TrimSpace(e.Value)
		if value == "" || !entity.IsWhitelisted(label) {
			continue
		}
		clean = append(clean, RawEntity{Type: label, Value: value})
	}

	return AnalyzeResponse{
		HasSensitive: *parsed.HasSensitive,
		Entities:     clean,
	}
}

// extractBestJSON implements the three-tier recovery strategy: prefer the
// last fenced code block, else the last top-level balanced-brace block
// found scanning forward, else a backward scan from the last '}'.
func extractBestJSON(s string) string {
	s = sanitizeModelOutput(s)

	if blocks := codeFenceRE.FindAllStringSubmatch(s, -1); len(blocks) > 0 {
		return strings.TrimSpace(blocks[len(blocks)-1][1])
	}
	if blocks := findAllTopLevelJSONBlocks(s); len(blocks) > 0 {
		return blocks[len(blocks)-1]
	}
	if block := findLastTopLevelJSONBackward(s); block != "" {
		return block
	}
	return ""
}

func sanitizeModelOutput(s string) string {
	s = strings.ReplaceAll(s, " ", "\n")
	s = strings.ReplaceAll(s, " ", "\n")
	s = strings.ReplaceAll(s, "\U0000FEFF", "")
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"system\n", "user\n", "assistant\n"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// findAllTopLevelJSONBlocks collects every top-level {...} block in s,
// string/escape aware so braces inside quoted values don't confuse depth.
func findAllTopLevelJSONBlocks(s string) []string {
	var blocks []string
	level := 0
	inStr := false
	esc := false
	start := -1

	runes := []rune(s)
	for i, ch := range runes {
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			if level == 0 {
				start = i
			}
			level++
		case '}':
			level--
			if level == 0 && start >= 0 {
				blocks = append(blocks, strings.TrimSpace(string(runes[start:i+1])))
				start = -1
			}
		}
	}
	return blocks
}

// findLastTopLevelJSONBackward recovers a JSON object by scanning backward
// from the final '}' when no clean forward scan succeeded (e.g. truncated
// generation with leftover trailing text).
func findLastTopLevelJSONBackward(s string) string {
	runes := []rune(s)
	end := -1
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '}' {
			end = i
			break
		}
	}
	if end == -1 {
		return ""
	}

	level := 0
	inStr := false
	esc := false
	for i := end; i >= 0; i-- {
		ch := runes[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '}':
			level++
		case '{':
			level--
			if level == 0 {
				return strings.TrimSpace(string(runes[i : end+1]))
			}
		}
	}
	return ""
}
