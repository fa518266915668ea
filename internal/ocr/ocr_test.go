package ocr

import (
	"context"
	"testing"
)

func TestNeedsOCRImage(t *testing.T) {
	ok, reason := NeedsOCR("image/png")
	if !ok || reason != "image" {
		t.Errorf("NeedsOCR(image/png) = (%v, %q)", ok, reason)
	}
}

func TestNeedsOCRPDF(t *testing.T) {
	ok, reason := NeedsOCR("application/pdf")
	if !ok || reason != "pdf" {
		t.Errorf("NeedsOCR(application/pdf) = (%v, %q)", ok, reason)
	}
}

func TestNeedsOCREmpty(t *testing.T) {
	ok, reason := NeedsOCR("")
	if ok || reason != "no_attachment" {
		t.Errorf("NeedsOCR(\"\") = (%v, %q)", ok, reason)
	}
}

func TestNeedsOCRUnsupported(t *testing.T) {
	ok, reason := NeedsOCR("application/zip")
	if ok || reason != "unsupported_mime:application/zip" {
		t.Errorf("NeedsOCR(application/zip) = (%v, %q)", ok, reason)
	}
}

func TestRunUnsupportedMimeSkipsWithoutError(t *testing.T) {
	got := Run(context.Background(), "/does/not/matter", "text/plain")
	if got.Used {
		t.Errorf("expected Used=false for unsupported mime, got %+v", got)
	}
}

func TestRunMissingFileDoesNotPanic(t *testing.T) {
	// Whether or not tesseract is installed on the test host, a missing
	// attachment file must resolve to Used=false, never an error/panic.
	got := Run(context.Background(), "/definitely/does/not/exist.png", "image/png")
	if got.Used {
		t.Errorf("expected Used=false for missing file, got %+v", got)
	}
}

func TestParseTSVExtractsWordLevelRows(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t30\t15\t91.5\t010-1234-5678\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t0\t0\t-1\t \n"
	boxes := parseTSV(tsv)
	if len(boxes) != 1 {
		t.Fatalf("expected 1 word box, got %d: %+v", len(boxes), boxes)
	}
	b := boxes[0]
	if b.Text != "010-1234-5678" || b.X != 10 || b.Y != 20 || b.W != 30 || b.H != 15 {
		t.Errorf("unexpected box: %+v", b)
	}
}

func TestWordBoxesMissingFileReturnsNilWithoutError(t *testing.T) {
	boxes, err := WordBoxes(context.Background(), "/definitely/does/not/exist.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if boxes != nil {
		t.Errorf("expected nil boxes for missing file, got %+v", boxes)
	}
}

func TestStrippedLen(t *testing.T) {
	if StrippedLen("  ab  ") != 2 {
		t.Errorf("StrippedLen = %d, want 2", StrippedLen("  ab  "))
	}
	if StrippedLen("   ") != 0 {
		t.Errorf("StrippedLen of whitespace-only = %d, want 0", StrippedLen("   "))
	}
}
