// Package normalize implements the Number Normalizer described in spec.md
// §4.4: it folds obfuscated digit sequences (full-width digits, zero-width
// joiners slipped between digits) into a canonical form so a second regex
// pass can catch what the raw-text pass misses, while keeping an explicit
// mapping back to original-text rune offsets so every resulting span still
// satisfies text[begin:end] == value once rebased.
package normalize

import (
	"golang.org/x/text/width"
)

// invisible is the set of zero-width/formatting runes obfuscation commonly
// inserts between digits of a phone number, card number, or account number.
var invisible = map[rune]bool{
	'​': true, // zero width space
	'‌': true, // zero width non-joiner
	'‍': true, // zero width joiner
	'\U0000FEFF': true, // byte order mark / zero width no-break space
	'­': true, // soft hyphen
}

// Result holds a normalized string alongside a rune-index map back to the
// original text it was derived from.
type Result struct {
	Text string

	// OrigIndex[i] is the rune offset in the original text that Text's rune
	// i was derived from. A normalized span [b,e) therefore rebases to the
	// original text as [OrigIndex[b], OrigIndex[e-1]+1).
	OrigIndex []int
}

// Normalize folds full-width digits to half-width and drops invisible
// obfuscation runes, recording where every surviving rune came from.
//
// Folding is rune-for-rune (one output rune per input rune via
// golang.org/x/text/width), so it never perturbs position mapping; dropping
// an invisible rune simply omits an entry from OrigIndex, which is what lets
// Rebase reconstruct correct original offsets across deleted characters.
func Normalize(text string) Result {
	runes := []rune(text)
	out := make([]rune, 0, len(runes))
	origIndex := make([]int, 0, len(runes))

	for i, r := range runes {
		if invisible[r] {
			continue
		}
		folded := width.Narrow.Rune(r)
		out = append(out, folded)
		origIndex = append(origIndex, i)
	}

	return Result{Text: string(out), OrigIndex: origIndex}
}

// Rebase converts a [begin,end) half-open rune range over r.Text into the
// equivalent half-open range over the original text Normalize was called
// with. It returns ok=false if the range is empty or out of bounds.
func (r Result) Rebase(begin, end int) (origBegin, origEnd int, ok bool) {
	if begin < 0 || end > len(r.OrigIndex) || begin >= end {
		return 0, 0, false
	}
	return r.OrigIndex[begin], r.OrigIndex[end-1] + 1, true
}

// Changed reports whether normalization altered the text at all — callers
// skip the second regex pass entirely when it didn't, since it would only
// rediscover what the raw pass already found.
func (r Result) Changed(original string) bool {
	return r.Text != original
}
