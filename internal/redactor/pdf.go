package redactor

import "errors"

// ErrPDFUnsupported is returned by RedactPDF: no PDF parsing/writing library
// appears anywhere in the example pack (teacher or otherwise), and
// fabricating one behind a replace directive is against the rules this
// module was built under. PDF attachments still flow through OCR (which
// rasterizes pages independently) for detection purposes; only the
// coordinate-accurate redacted-PDF output described in spec.md §4.8 is
// unavailable here. See DESIGN.md.
var ErrPDFUnsupported = errors.New("redactor: PDF page redaction requires a PDF library not present in the example corpus")

// RedactPDF is a stub satisfying the Document Redactor's PDF code path. It
// always reports the capability gap rather than silently doing nothing, so
// callers (the Request Handler) can log it and continue without the
// redacted-PDF artifact.
func RedactPDF(path string) (changed bool, outPath string, err error) {
	return false, "", ErrPDFUnsupported
}
