package redactor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/ocr"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/regexdetect"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// pageOnlyLabels are patterns that only make sense evaluated against the
// whole page's OCR text, not a single word — PRIVATE_KEY's PEM block spans
// many words, per original_source/services/files/redaction.py's
// PAGE_ONLY_LABELS/TOKEN_LABELS split.
var pageOnlyLabels = map[string]bool{"PRIVATE_KEY": true}

// BuildImageBoxes turns OCR word boxes into the Box list RedactImage should
// blacken: every word whose text matches a token-level pattern gets its own
// box; if fullText matches a page-only pattern (currently just PRIVATE_KEY),
// a box covering the entire image is added instead of trying to bound the
// individual PEM lines.
func BuildImageBoxes(words []ocr.WordBox, fullText string, imgW, imgH int) []Box {
	var boxes []Box
	for _, w := range words {
		if matchesAnyTokenLabel(w.Text) {
			boxes = append(boxes, Box{X0: w.X, Y0: w.Y, X1: w.X + w.W, Y1: w.Y + w.H})
		}
	}
	for label := range pageOnlyLabels {
		rx, ok := regexdetect.Patterns[label]
		if ok && rx.MatchString(fullText) {
			boxes = append(boxes, Box{X0: 0, Y0: 0, X1: imgW, Y1: imgH})
		}
	}
	return boxes
}

func matchesAnyTokenLabel(word string) bool {
	for label, rx := range regexdetect.Patterns {
		if pageOnlyLabels[label] {
			continue
		}
		if rx.MatchString(word) {
			return true
		}
	}
	return false
}

// Box is a pixel-space bounding rectangle to blacken, in the coordinate
// system of the image it was detected in.
type Box struct {
	X0, Y0, X1, Y1 int
}

// MinMegapixels is the minimum image area the Document Redactor will act on;
// smaller inputs pass through unchanged per spec.md §4.8.
const MinMegapixels = 0.3

// MergeAdjacentBoxes merges horizontally adjacent boxes that sit on the same
// line (x-gap <= 2% of image width, y-tolerance <= 1% of image height), then
// pads every box by ~2px, matching the Document Redactor's OCR-word-box
// consolidation rule.
func MergeAdjacentBoxes(boxes []Box, imgW, imgH int) []Box {
	if len(boxes) == 0 {
		return nil
	}
	xGap := int(0.02 * float64(imgW))
	yTol := int(0.01 * float64(imgH))

	merged := make([]Box, len(boxes))
	copy(merged, boxes)

	changed := true
	for changed {
		changed = false
		for i := 0; i < len(merged); i++ {
			for j := i + 1; j < len(merged); j++ {
				a, b := merged[i], merged[j]
				sameLine := abs(a.Y0-b.Y0) <= yTol && abs(a.Y1-b.Y1) <= yTol
				if !sameLine {
					continue
				}
				gap := b.X0 - a.X1
				if a.X0 > b.X0 {
					gap = a.X0 - b.X1
				}
				if gap > xGap {
					continue
				}
				combined := Box{
					X0: minInt(a.X0, b.X0),
					Y0: minInt(a.Y0, b.Y0),
					X1: maxInt(a.X1, b.X1),
					Y1: maxInt(a.Y1, b.Y1),
				}
				merged[i] = combined
				merged = append(merged[:j], merged[j+1:]...)
				changed = true
				break
			}
			if changed {
				break
			}
		}
	}

	const pad = 2
	out := make([]Box, len(merged))
	for i, b := range merged {
		out[i] = Box{
			X0: maxInt(0, b.X0-pad),
			Y0: maxInt(0, b.Y0-pad),
			X1: minInt(imgW, b.X1+pad),
			Y1: minInt(imgH, b.Y1+pad),
		}
	}
	return out
}

// RedactImage draws opaque black rectangles over every box in an image and
// writes the result to a sibling "name.redacted.ext" file. Images below
// MinMegapixels are passed through unchanged (no file written, changed=false).
func RedactImage(path string, boxes []Box) (changed bool, outPath string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, "", fmt.Errorf("redactor: open image: %w", err)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return false, "", fmt.Errorf("redactor: decode image: %w", err)
	}

	b := img.Bounds()
	megapixels := float64(b.Dx()*b.Dy()) / 1_000_000
	if megapixels < MinMegapixels {
		return false, "", nil
	}
	if len(boxes) == 0 {
		return false, "", nil
	}

	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)

	black := image.NewUniform(color.Black)
	for _, box := range boxes {
		rect := image.Rect(box.X0, box.Y0, box.X1, box.Y1).Intersect(b)
		if rect.Empty() {
			continue
		}
		draw.Draw(rgba, rect, black, image.Point{}, draw.Src)
	}

	out := redactedPath(path)
	of, err := os.Create(out)
	if err != nil {
		return false, "", fmt.Errorf("redactor: create output: %w", err)
	}
	defer of.Close()

	switch strings.ToLower(format) {
	case "jpeg":
		err = jpeg.Encode(of, rgba, &jpeg.Options{Quality: 92})
	default:
		err = png.Encode(of, rgba)
	}
	if err != nil {
		return false, "", fmt.Errorf("redactor: encode output: %w", err)
	}
	return true, out, nil
}

func redactedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + ".redacted" + ext
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
