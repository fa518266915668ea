// Package ocr implements the OCR Adapter described in spec.md §4.2,
// grounded on original_source/services/ocr.py and the OCR constants carried
// in original_source/services/files/redaction.py (kor+eng, PSM 3, OEM 1).
// Unlike the Python reference's optional pytesseract import, Go has no
// bindings in this module's dependency set, so this adapter shells out to
// the tesseract CLI binary — the same graceful-fallback shape (missing
// binary just means OCR didn't run, not a request failure) is preserved via
// exec.LookPath.
package ocr

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	lang = "kor+eng"
	psm  = "3"
	oem  = "1"
)

// Result is the outcome of attempting OCR on one attachment.
type Result struct {
	Text   string
	Used   bool
	Reason string
}

// NeedsOCR reports whether mime is an image or PDF type the adapter knows
// how to run Tesseract against.
func NeedsOCR(mime string) (bool, string) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return false, "no_attachment"
	}
	switch mime {
	case "image/png", "image/jpeg", "image/jpg", "image/webp", "image/bmp", "image/tiff":
		return true, "image"
	case "application/pdf":
		return true, "pdf"
	default:
		return false, "unsupported_mime:" + mime
	}
}

// Run executes OCR against the file at path (already saved by the
// Attachment Store), returning the recognized text. A missing tesseract
// binary, or any execution failure, yields Used=false with a diagnostic
// Reason rather than an error — OCR is best-effort and must never fail the
// request.
func Run(ctx context.Context, path, mime string) Result {
	need, reason := NeedsOCR(mime)
	if !need {
		return Result{Reason: reason}
	}

	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return Result{Reason: "tesseract_not_installed"}
	}

	if _, err := os.Stat(path); err != nil {
		return Result{Reason: "attachment_not_found"}
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, path, "stdout",
		"-l", lang, "--psm", psm, "--oem", oem)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{Reason: "ocr_error:" + firstLine(stderr.String(), err.Error())}
	}

	kind := "ocr_image_ok"
	if mime == "application/pdf" {
		kind = "ocr_pdf_ok"
	}
	return Result{Text: stdout.String(), Used: true, Reason: kind}
}

func firstLine(stderr, fallback string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fallback
	}
	if i := strings.IndexByte(stderr, '\n'); i >= 0 {
		return stderr[:i]
	}
	return stderr
}

// WordBox is one recognized word and its pixel bounding box, used by the
// Document Redactor's image path to target individual tokens instead of
// blacking out an entire page.
type WordBox struct {
	Text       string
	X, Y, W, H int
	Confidence float64
}

// WordBoxes runs Tesseract's TSV output mode (the CLI equivalent of
// pytesseract.image_to_data) against path and returns every recognized word
// with its bounding box. Returns (nil, nil) when OCR can't run at all — the
// Document Redactor then falls back to leaving the image unmodified rather
// than failing the request, per spec.md §4.8's best-effort contract.
func WordBoxes(ctx context.Context, path string) ([]WordBox, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, path, "stdout",
		"-l", lang, "--psm", psm, "--oem", oem, "tsv")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, nil
	}

	return parseTSV(stdout.String()), nil
}

// parseTSV parses Tesseract's TSV word-box format: one header row, then one
// row per detected text element (level 5 = word). Malformed or short rows
// are skipped rather than erroring — OCR output is never trusted blindly.
func parseTSV(raw string) []WordBox {
	var boxes []WordBox
	scanner := bufio.NewScanner(strings.NewReader(raw))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header: level,page_num,block_num,par_num,line_num,word_num,left,top,width,height,conf,text
		}
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != 5 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		left, errL := strconv.Atoi(cols[6])
		top, errT := strconv.Atoi(cols[7])
		width, errW := strconv.Atoi(cols[8])
		height, errH := strconv.Atoi(cols[9])
		conf, _ := strconv.ParseFloat(cols[10], 64)
		if errL != nil || errT != nil || errW != nil || errH != nil {
			continue
		}
		boxes = append(boxes, WordBox{Text: text, X: left, Y: top, W: width, H: height, Confidence: conf})
	}
	return boxes
}

// StrippedLen returns the rune count of text with leading/trailing
// whitespace removed, used by the Policy Engine's image-similarity override
// gate ("OCR text length < 3 after stripping").
func StrippedLen(text string) int {
	return len([]rune(strings.TrimSpace(text)))
}
