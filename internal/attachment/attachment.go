// Package attachment implements the Attachment Store described in spec.md
// §4.1, grounded on original_source/services/attachment.py: base64-decode an
// inbound attachment and persist it under a per-client, per-host directory
// tree so later pipeline stages (OCR, the Document Redactor) can open it by
// path instead of carrying the raw bytes around.
package attachment

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// mimeToExt maps an attachment's declared MIME type to the extension its
// saved file is given. Unknown MIME types fall back to ".bin".
var mimeToExt = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
	"application/pdf": ".pdf",

	// Office/plain formats the Document Redactor's text-substitution path
	// handles (services/files/document.py dispatches by file extension, so
	// these need a correct extension on disk to be recognized there).
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"text/plain":      ".txt",
	"text/csv":        ".csv",
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_.:-]`)

// sanitize replaces every character unsafe for a path segment with "_", so a
// client-controlled hostname or IP can't escape the downloads root.
func sanitize(s string) string {
	if s == "" {
		return "unknown"
	}
	return unsafePathChars.ReplaceAllString(s, "_")
}

// In is the inbound attachment payload: a base64 body plus its declared
// MIME type, as received on the wire.
type In struct {
	Format string // MIME type, e.g. "image/png"
	Data   string // base64-encoded body
}

// Saved describes a persisted attachment.
type Saved struct {
	Path string
	MIME string
}

// Save decodes att.Data and writes it beneath
// downloadsRoot/{publicIP}/{hostname}/{timeStem}{ext}, creating directories
// as needed. It returns (nil, nil) when att is empty — an attachment is
// optional on every request.
func Save(att *In, downloadsRoot, publicIP, hostname, timeStem string) (*Saved, error) {
	if att == nil || att.Format == "" || att.Data == "" {
		return nil, nil
	}

	mime := strings.ToLower(strings.TrimSpace(att.Format))
	ext, ok := mimeToExt[mime]
	if !ok {
		ext = ".bin"
	}

	subdir := filepath.Join(downloadsRoot, sanitize(publicIP), sanitize(hostname))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment: create directory: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil {
		return nil, fmt.Errorf("attachment: decode base64: %w", err)
	}

	outPath := filepath.Join(subdir, sanitize(timeStem)+ext)
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("attachment: write file: %w", err)
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		abs = outPath
	}
	return &Saved{Path: abs, MIME: mime}, nil
}

// IsImage reports whether mime is one of the image types the OCR and
// Document Redactor image paths handle.
func IsImage(mime string) bool {
	switch strings.ToLower(mime) {
	case "image/png", "image/jpeg", "image/jpg", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}

// IsPDF reports whether mime is the PDF MIME type.
func IsPDF(mime string) bool {
	return strings.ToLower(mime) == "application/pdf"
}
