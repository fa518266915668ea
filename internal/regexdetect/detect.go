// Package regexdetect implements the label-tagged regex detector described
// in spec.md §4.3, grounded on original_source/services/regex_detector.py
// (the Luhn post-check, the EMAIL capture-group preference order, and the
// begin-asc/length-desc overlap resolution are all ported from there).
package regexdetect

import (
	"regexp"
	"sort"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/entity"
)

type candidate struct {
	begin, end int
	label      string
	value      string
}

// Detect runs every pattern in Patterns against text and returns the
// accepted, non-overlapping entities. Offsets are UTF-8 rune offsets.
func Detect(text string) []entity.Entity {
	if text == "" {
		return nil
	}
	runes := []rune(text)

	var found []candidate
	for label, rx := range Patterns {
		for _, m := range findAllRuneMatches(rx, text, runes) {
			begin, end, value := m.begin, m.end, m.value

			if label == "EMAIL" {
				value, begin, end = pickEmailGroup(rx, text, runes, m)
				if value == "" {
					continue
				}
			}

			if label == "CARD_NUMBER" && !isCardPAN(value) {
				continue
			}
			if label == "IMEI" && !isIMEI(value) {
				continue
			}

			found = append(found, candidate{begin, end, label, value})
		}
	}
	if len(found) == 0 {
		return nil
	}

	// Overlap resolution: sort by (begin asc, length desc), greedily accept
	// non-overlapping candidates, label-agnostic. Ties (identical span and
	// length, possible when a broad numeric pattern like BANK_ACCOUNT
	// shadows a more specific one like PHONE) are broken by a fixed label
	// priority and finally by label name, so the result never depends on Go's
	// randomized map iteration order.
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].begin != found[j].begin {
			return found[i].begin < found[j].begin
		}
		li, lj := found[i].end-found[i].begin, found[j].end-found[j].begin
		if li != lj {
			return li > lj
		}
		pi, pj := labelPriority(found[i].label), labelPriority(found[j].label)
		if pi != pj {
			return pi < pj
		}
		return found[i].label < found[j].label
	})

	var accepted []entity.Entity
	for _, c := range found {
		overlaps := false
		for _, a := range accepted {
			if entity.RangeOverlaps(c.begin, c.end, a.Begin, a.End) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		accepted = append(accepted, entity.Entity{
			Label: entity.Label(c.label),
			Value: c.value,
			Begin: c.begin,
			End:   c.end,
		})
	}
	return accepted
}

type runeMatch struct {
	begin, end int
	value      string
	byteBegin  int
	byteEnd    int
}

// findAllRuneMatches runs rx over text (byte-indexed, as regexp requires)
// and converts each match's byte offsets to rune offsets.
func findAllRuneMatches(rx *regexp.Regexp, text string, runes []rune) []runeMatch {
	idxs := rx.FindAllStringIndex(text, -1)
	if idxs == nil {
		return nil
	}
	out := make([]runeMatch, 0, len(idxs))
	for _, idx := range idxs {
		b := byteToRuneOffset(text, idx[0])
		e := byteToRuneOffset(text, idx[1])
		out = append(out, runeMatch{
			begin: b, end: e, value: text[idx[0]:idx[1]],
			byteBegin: idx[0], byteEnd: idx[1],
		})
	}
	return out
}

func byteToRuneOffset(text string, byteOffset int) int {
	count := 0
	for i := range text {
		if i >= byteOffset {
			return count
		}
		count++
	}
	return count
}

// pickEmailGroup resolves the capturing-group preference order: group 1,
// then group 2, then fall back to the full match, so that an address
// wrapped in angle brackets ("Name <a@b.co>") yields the bare address.
func pickEmailGroup(rx *regexp.Regexp, text string, runes []rune, m runeMatch) (value string, begin, end int) {
	sub := rx.FindStringSubmatchIndex(text[m.byteBegin:m.byteEnd])
	if sub == nil {
		return m.value, m.begin, m.end
	}
	// sub indices are relative to the submatch slice; offset them back.
	for _, gi := range []int{1, 2} {
		lo, hi := gi*2, gi*2+1
		if hi >= len(sub) {
			continue
		}
		if sub[lo] == -1 {
			continue
		}
		absBegin := m.byteBegin + sub[lo]
		absEnd := m.byteBegin + sub[hi]
		return text[absBegin:absEnd], byteToRuneOffset(text, absBegin), byteToRuneOffset(text, absEnd)
	}
	return m.value, m.begin, m.end
}

func luhnOK(s string) bool {
	digits := make([]int, 0, len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits = append(digits, int(c-'0'))
		}
	}
	if len(digits) == 0 {
		return false
	}
	total := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		total += d
		alt = !alt
	}
	return total%10 == 0
}

// broadPatternPriority ranks labels whose pattern is broad/generic (and thus
// prone to spuriously spanning the same range as a more specific pattern)
// below every other label, so the more specific label wins a tie.
var broadPatternPriority = map[string]int{
	"BANK_ACCOUNT": 100,
	"POSTAL_CODE":  100,
	"MILITARY_ID":  90,
}

func labelPriority(label string) int {
	if p, ok := broadPatternPriority[label]; ok {
		return p
	}
	return 50
}

func digitCount(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}

func isCardPAN(s string) bool {
	n := digitCount(s)
	return n >= 13 && n <= 19 && luhnOK(s)
}

func isIMEI(s string) bool {
	return digitCount(s) == 15 && luhnOK(s)
}
