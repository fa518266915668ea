// Package handler implements the Request Handler orchestration described in
// spec.md §4.10: it wires every other internal package into the single
// sequential pipeline one /api/logs call runs through, grounded on
// original_source/services/db_logging.py's DbLoggingService.handle, which
// drives the same attachment -> OCR -> detect -> merge -> policy -> redact
// -> persist sequence.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/attachment"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/config"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/detector"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/logrepo"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/mask"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/merge"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/metrics"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/ocr"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/policy"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/redactor"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/request"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/settings"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/similarity"
)

// Handler orchestrates one /api/logs request end to end.
type Handler struct {
	cfg      *config.Config
	log      *logrus.Logger
	metrics  *metrics.MetricsCollector
	runtime  *detector.Runtime
	logs     *logrepo.Repository
	settings *settings.Store
}

// New constructs a Handler from its already-initialized collaborators.
func New(cfg *config.Config, log *logrus.Logger, mc *metrics.MetricsCollector, rt *detector.Runtime, logs *logrepo.Repository, st *settings.Store) *Handler {
	return &Handler{cfg: cfg, log: log, metrics: mc, runtime: rt, logs: logs, settings: st}
}

// Process runs the full pipeline for one inbound request and returns the
// response view. It never returns an error for detector/OCR/redaction
// failures (those degrade gracefully per spec.md §7) — only a persistence
// failure propagates, since that means no LogRecord was written. Process does
// not validate in; callers run request.In.Validate first.
func (h *Handler) Process(ctx context.Context, in request.In) (request.Out, error) {
	start := time.Now()
	requestID := uuid.NewString()

	logFields := logrus.Fields{"request_id": requestID, "host": in.Host}

	saved, attErr := attachment.Save(
		inAttachment(in.Attachment), h.cfg.Attachment.DownloadsRoot, in.PublicIP, in.EffectiveHostname(), in.Time,
	)
	if attErr != nil && h.log != nil {
		h.log.WithFields(logFields).WithError(attErr).Warn("attachment save failed; proceeding without attachment")
	}

	snap, err := h.loadPolicySnapshot(ctx)
	if err != nil && h.log != nil {
		h.log.WithFields(logFields).WithError(err).Warn("settings read failed; defaulting to monitored+mask")
	}
	iface := in.EffectiveInterface()
	monitored := policy.IsMonitored(snap, iface, in.Host)

	var decision policy.Decision
	var finalEntities []entity.Entity
	var ocrResult ocr.Result
	var analyzeResp detector.AnalyzeResponse
	fileContributedSensitive := false

	if !monitored {
		decision = policy.Unmonitored()
	} else {
		if saved != nil && h.cfg.OCR.Enabled {
			ocrResult = ocr.Run(ctx, saved.Path, saved.MIME)
		}

		regexSpansPrompt := merge.RegexPass(in.Prompt)
		regexSpansOCR := merge.RegexPass(ocrResult.Text)
		if len(regexSpansOCR) > 0 {
			fileContributedSensitive = true
		}

		maskedForLLM := mask.WithParensByEntities(in.Prompt, regexSpansPrompt)

		if h.cfg.LLM.UseAIDetector && h.runtime != nil {
			analyzeResp = h.runtime.Analyze(ctx, maskedForLLM)
		} else {
			analyzeResp = detector.SafeFallback()
		}

		var rawDetections []merge.RawDetection
		for _, e := range analyzeResp.Entities {
			rawDetections = append(rawDetections, merge.RawDetection{Label: e.Type, Value: e.Value})
		}
		finalEntities = merge.WithLLM(in.Prompt, regexSpansPrompt, rawDetections)

		sensitiveAny := len(finalEntities) > 0 || len(regexSpansOCR) > 0 || analyzeResp.HasSensitive
		decision = policy.Evaluate(snap.ResponseMethod, sensitiveAny, fileContributedSensitive)

		decision = h.applyImageSimilarityOverride(decision, saved, ocrResult)
	}

	finalPrompt := in.Prompt
	if decision.FinalPromptSource == policy.FinalPromptMasked {
		finalPrompt = mask.ByEntities(in.Prompt, finalEntities)
	}

	alert := BuildAlert(finalEntities)

	processedAttachment, fileChanged := h.redactAttachment(saved, monitored)

	processingMs := time.Since(start).Milliseconds()
	if analyzeResp.ProcessingMs > processingMs {
		processingMs = analyzeResp.ProcessingMs
	}

	out := request.Out{
		RequestID:      requestID,
		Host:           in.Host,
		ModifiedPrompt: finalPrompt,
		HasSensitive:   len(finalEntities) > 0 || fileContributedSensitive,
		Entities:       toEntityOut(finalEntities),
		ProcessingMs:   processingMs,
		FileBlocked:    decision.FileBlocked,
		Allow:          decision.Allow,
		Action:         decision.Action,
		Alert:          alert,
	}
	if processedAttachment != nil {
		out.Attachment = processedAttachment
	}

	rec := h.buildLogRecord(requestID, in, saved, finalPrompt, finalEntities, out, fileChanged)
	if err := h.logs.Create(ctx, rec); err != nil {
		return request.Out{}, fmt.Errorf("handler: persist log record: %w", err)
	}

	if h.metrics != nil {
		h.metrics.ObserveRequest(decision.Action, time.Since(start))
	}

	return out, nil
}

func (h *Handler) loadPolicySnapshot(ctx context.Context) (policy.Snapshot, error) {
	if h.settings == nil {
		return policy.Snapshot{ResponseMethod: policy.ResponseMask}, nil
	}
	rec, err := h.settings.Get(ctx)
	if err != nil {
		return policy.Snapshot{ResponseMethod: policy.ResponseMask}, err
	}
	return policy.Snapshot{
		ServiceFilters: rec.Config.ServiceFilters,
		ResponseMethod: policy.ResponseMethod(rec.Config.ResponseMethod),
	}, nil
}

func (h *Handler) applyImageSimilarityOverride(d policy.Decision, saved *attachment.Saved, ocrResult ocr.Result) policy.Decision {
	if saved == nil || !attachment.IsImage(saved.MIME) {
		return d
	}
	strippedLen := ocr.StrippedLen(ocrResult.Text)
	best, _ := similarity.BestAgainstFolder(saved.Path, h.cfg.Similarity.BlocklistFolder)
	return policy.ApplyImageSimilarityOverride(d, true, ocrResult.Used, strippedLen, best)
}

// redactAttachment runs the Document Redactor against the saved attachment
// and returns the processed descriptor to echo in the response, plus
// whether the output differs from the input. When unmonitored, or when
// there's nothing to redact, it returns the original bytes unmodified.
func (h *Handler) redactAttachment(saved *attachment.Saved, monitored bool) (*request.Attachment, bool) {
	if saved == nil {
		return nil, false
	}
	original, err := os.ReadFile(saved.Path)
	if err != nil {
		return nil, false
	}
	passthrough := &request.Attachment{
		Format: saved.MIME,
		Data:   base64.StdEncoding.EncodeToString(original),
	}
	if !monitored {
		return passthrough, false
	}

	outPath, changed := h.runRedactor(saved)
	if !changed || outPath == "" {
		return passthrough, false
	}
	processed, err := os.ReadFile(outPath)
	if err != nil {
		return passthrough, false
	}
	return &request.Attachment{
		Format: saved.MIME,
		Data:   base64.StdEncoding.EncodeToString(processed),
	}, true
}

func (h *Handler) runRedactor(saved *attachment.Saved) (outPath string, changed bool) {
	ext := strings.ToLower(filepath.Ext(saved.Path))

	switch {
	case redactor.IsOfficeExt(ext):
		ok, _, err := redactor.MaskOffice(saved.Path)
		if err != nil || !ok {
			return "", false
		}
		return redactor.MakeDetectionPath(saved.Path), true

	case redactor.IsPlainExt(ext):
		ok, _, err := redactor.MaskPlain(saved.Path)
		if err != nil || !ok {
			return "", false
		}
		return redactor.MakeDetectionPath(saved.Path), true

	case attachment.IsImage(saved.MIME):
		return h.runImageRedactor(saved.Path)

	case attachment.IsPDF(saved.MIME):
		ok, out, err := redactor.RedactPDF(saved.Path)
		if err != nil || !ok {
			return "", false
		}
		return out, true

	default:
		return "", false
	}
}

func (h *Handler) runImageRedactor(path string) (string, bool) {
	words, err := ocr.WordBoxes(context.Background(), path)
	if err != nil || len(words) == 0 {
		return "", false
	}
	var fullText strings.Builder
	for _, w := range words {
		fullText.WriteString(w.Text)
		fullText.WriteByte(' ')
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return "", false
	}

	boxes := redactor.BuildImageBoxes(words, fullText.String(), cfg.Width, cfg.Height)
	merged := redactor.MergeAdjacentBoxes(boxes, cfg.Width, cfg.Height)
	if len(merged) == 0 {
		return "", false
	}

	changed, out, err := redactor.RedactImage(path, merged)
	if err != nil || !changed {
		return "", false
	}
	return out, true
}

func (h *Handler) buildLogRecord(requestID string, in request.In, saved *attachment.Saved, finalPrompt string, finalEntities []entity.Entity, out request.Out, fileChanged bool) logrepo.Record {
	entitiesJSON, _ := logrepo.EncodeEntities(toEntityOut(finalEntities))

	attMeta := ""
	if in.Attachment != nil {
		if b, err := json.Marshal(in.Attachment); err == nil {
			attMeta = string(b)
		}
	}

	return logrepo.Record{
		RequestID:      requestID,
		Time:           in.Time,
		PublicIP:       in.PublicIP,
		PrivateIP:      in.PrivateIP,
		Host:           in.Host,
		Hostname:       in.EffectiveHostname(),
		Prompt:         in.Prompt,
		AttachmentMeta: attMeta,
		Interface:      in.EffectiveInterface(),
		ModifiedPrompt: finalPrompt,
		HasSensitive:   out.HasSensitive,
		EntitiesJSON:   entitiesJSON,
		ProcessingMs:   out.ProcessingMs,
		FileBlocked:    out.FileBlocked,
		Allow:          out.Allow,
		Action:         out.Action,
		CreatedAt:      time.Now(),
	}
}

func inAttachment(a *request.Attachment) *attachment.In {
	if a == nil {
		return nil
	}
	return &attachment.In{Format: a.Format, Data: a.Data}
}

func toEntityOut(entities []entity.Entity) []request.EntityOut {
	if len(entities) == 0 {
		return []request.EntityOut{}
	}
	out := make([]request.EntityOut, len(entities))
	for i, e := range entities {
		out[i] = request.EntityOut{Label: string(e.Label), Value: e.Value, Begin: e.Begin, End: e.End}
	}
	return out
}
