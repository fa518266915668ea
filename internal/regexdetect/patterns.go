package regexdetect

import "regexp"

// Patterns is the labelled pattern table referenced by the Regex Detector,
// the Number Normalizer's second pass, and the Document Redactor's
// token-level substitution. Ordering within the map is irrelevant — Detect
// sorts candidates by (begin, -length) before resolving overlaps.
//
// EMAIL carries two capturing groups so a bare address inside angle brackets
// ("Name <a@b.co>") can be isolated from the surrounding text; see
// pickEmailGroup.
var Patterns = map[string]*regexp.Regexp{
	"EMAIL": regexp.MustCompile(`<([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})>|(?:^|[\s:<])([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`),

	"PHONE": regexp.MustCompile(`\b01[016789][- .]?\d{3,4}[- .]?\d{4}\b`),

	"ADDRESS": regexp.MustCompile(`\b[가-힣]{2,8}(?:시|도)\s[가-힣]{2,10}(?:시|군|구)\s[가-힣0-9]{1,15}(?:로|길)\s?\d{1,5}(?:-\d{1,3})?\b`),

	"POSTAL_CODE": regexp.MustCompile(`\b\d{5}\b`),

	"RESIDENT_ID": regexp.MustCompile(`\b\d{6}[- ]?[1-4]\d{6}\b`),

	"PASSPORT": regexp.MustCompile(`\b[MSRODmsrod]\d{8}\b`),

	"DRIVER_LICENSE": regexp.MustCompile(`\b\d{2}-\d{2}-\d{6}-\d{2}\b`),

	"BUSINESS_ID": regexp.MustCompile(`\b\d{3}-\d{2}-\d{5}\b`),

	// CARD_NUMBER: grouped digit sequences, Luhn-validated after match.
	"CARD_NUMBER": regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),

	"CARD_EXPIRY": regexp.MustCompile(`\b(0[1-9]|1[0-2])\/([0-9]{2})\b`),

	"CARD_CVV": regexp.MustCompile(`\bCVV[:\s]*\d{3,4}\b`),

	"BANK_ACCOUNT": regexp.MustCompile(`\b\d{2,6}-?\d{2,6}-?\d{2,8}\b`),

	"PAYMENT_PIN": regexp.MustCompile(`\b(?:payment[_ ]?pin|결제\s?비밀번호)[:\s]*\d{4,6}\b`),

	"MOBILE_PAYMENT_PIN": regexp.MustCompile(`\b(?:mobile[_ ]?pay(?:ment)?[_ ]?pin|모바일\s?결제\s?비밀번호)[:\s]*\d{4,6}\b`),

	// MNEMONIC: 12 or 24 lowercase words, space-separated (BIP-39 seed phrase shape).
	"MNEMONIC": regexp.MustCompile(`\b(?:[a-z]{3,8}\s){11}[a-z]{3,8}\b|\b(?:[a-z]{3,8}\s){23}[a-z]{3,8}\b`),

	"CRYPTO_PRIVATE_KEY": regexp.MustCompile(`\b(?:5[HJK][1-9A-Za-z][^OIl]{48,50}|0x[a-fA-F0-9]{64})\b`),

	"HD_WALLET": regexp.MustCompile(`\b[xyz]prv[A-Za-z0-9]{100,112}\b`),

	"PAYMENT_URI_QR": regexp.MustCompile(`\b(?:bitcoin|ethereum|litecoin):[A-Za-z0-9]{25,64}(?:\?[^\s]*)?`),

	"JWT": regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`),

	"API_KEY": regexp.MustCompile(`\b(?:sk-[A-Za-z0-9]{20,}|AKIA[A-Z0-9]{16}|AIza[A-Za-z0-9_-]{35})\b`),

	"GITHUB_PAT": regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),

	"PRIVATE_KEY": regexp.MustCompile(`(?s)-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----.*?-----END (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),

	"IPV4": regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`),

	"IPV6": regexp.MustCompile(`\b(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}\b`),

	"MAC_ADDRESS": regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}\b`),

	// IMEI: 15-digit sequences, Luhn-validated after match.
	"IMEI": regexp.MustCompile(`\b\d{15}\b`),

	"FOREIGNER_ID": regexp.MustCompile(`\b\d{6}[- ]?[5-8]\d{6}\b`),

	"HEALTH_INSURANCE_ID": regexp.MustCompile(`\b\d{2}[- ]?\d{2}[- ]?\d{6}\b`),

	"MILITARY_ID": regexp.MustCompile(`\b\d{2}-\d{6,7}\b`),

	"PERSONAL_CUSTOMS_ID": regexp.MustCompile(`\bP\d{12}\b`),

	// NAME has no regex; it is reachable only via the LLM Detector Runtime.
}

// pageOnlyLabels are patterns that must be matched against an entire page's
// text (the Document Redactor's PDF/image path) rather than token-by-token,
// because the match spans a structurally multi-line block.
var pageOnlyLabels = map[string]bool{
	"PRIVATE_KEY": true,
}

// IsPageOnly reports whether label can only be reliably detected over a
// whole page/block rather than a single OCR word/token.
func IsPageOnly(label string) bool {
	return pageOnlyLabels[label]
}

// TokenLabels returns every pattern label except the page-only ones, for
// callers (the image/PDF redactor) that walk individual OCR words.
func TokenLabels() []string {
	out := make([]string, 0, len(Patterns))
	for label := range Patterns {
		if !pageOnlyLabels[label] {
			out = append(out, label)
		}
	}
	return out
}
