// Package similarity implements the image-similarity check that backs the
// Policy Engine's blocklist override (spec.md §4.7), grounded on
// original_source/services/similarity.py's grayscale-square-resize-then-SSIM
// approach. golang.org/x/image/draw supplies the resize; SSIM itself has no
// counterpart in the example pack's dependency set, so it's computed here as
// a single global window over the full resized image rather than skimage's
// default sliding 7x7 Gaussian window — see DESIGN.md for the tradeoff.
package similarity

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// SupportedExt is the set of file extensions the blocklist comparison walks.
var SupportedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

const defaultSize = 512

// loadGraySquareResize opens an image, converts it to grayscale, pads it
// onto a square white canvas (centered), then resizes to size x size using
// bicubic-equivalent interpolation, mirroring the Python pipeline's
// letterbox-then-resize behavior.
func loadGraySquareResize(path string, size int) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	s := w
	if h > s {
		s = h
	}

	canvas := image.NewGray(image.Rect(0, 0, s, s))
	for y := 0; y < s; y++ {
		for x := 0; x < s; x++ {
			canvas.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	offX, offY := (s-w)/2, (s-h)/2
	draw.Draw(canvas, image.Rect(offX, offY, offX+w, offY+h), img, b.Min, draw.Src)

	out := image.NewGray(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Over, nil)
	return out, nil
}

// SSIM computes the Structural Similarity Index between two equally-sized
// grayscale images, treating the whole image as a single comparison window
// (constants C1/C2 per the standard SSIM formulation with data_range=255).
func SSIM(a, b *image.Gray) float64 {
	const (
		k1, k2, L = 0.01, 0.03, 255.0
	)
	c1 := (k1 * L) * (k1 * L)
	c2 := (k2 * L) * (k2 * L)

	n := len(a.Pix)
	if n == 0 || len(b.Pix) != n {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a.Pix[i])
		sumB += float64(b.Pix[i])
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var varA, varB, covAB float64
	for i := 0; i < n; i++ {
		da := float64(a.Pix[i]) - meanA
		db := float64(b.Pix[i]) - meanB
		varA += da * da
		varB += db * db
		covAB += da * db
	}
	varA /= float64(n - 1)
	varB /= float64(n - 1)
	covAB /= float64(n - 1)

	numerator := (2*meanA*meanB + c1) * (2*covAB + c2)
	denominator := (meanA*meanA + meanB*meanB + c1) * (varA + varB + c2)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// BestAgainstFolder compares targetPath against every supported image in
// folder and returns the highest SSIM score found, plus the matching file
// path. It returns (0, "") if the target is missing, the folder is missing,
// or the folder holds no comparable images — matching the Python reference's
// silent-skip-on-corrupt-image behavior.
func BestAgainstFolder(targetPath, folder string) (float64, string) {
	if _, err := os.Stat(targetPath); err != nil {
		return 0, ""
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, ""
	}

	tgt, err := loadGraySquareResize(targetPath, defaultSize)
	if err != nil {
		return 0, ""
	}

	var best float64
	var bestFile string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !SupportedExt[ext] {
			continue
		}
		candPath := filepath.Join(folder, e.Name())
		ref, err := loadGraySquareResize(candPath, defaultSize)
		if err != nil {
			continue
		}
		score := SSIM(tgt, ref)
		if score > best {
			best = score
			bestFile = candPath
		}
	}
	return best, bestFile
}

// roundTo rounds v to the given number of decimal places. Nothing in the
// package calls it at present.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
