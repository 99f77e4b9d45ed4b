package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the closed set of file formats the extractor understands.
// Callers validate user input with ParseFormat before invoking Extract.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatPDF
	FormatDOCX
)

// ErrUnknownFormat indicates a format tag outside the supported set.
var ErrUnknownFormat = errors.New("unknown file format")

// ParseFormat maps a file-extension style tag to a Format. Both "jpg" and
// "jpeg" name the JPEG format.
func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
	}
}

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ErrorKey is the raw-map key that carries a whole-file decode failure.
const ErrorKey = "__error__"

// Record is the canonical metadata decoded from one file: the complete raw
// tag map and a curated subset for display. Pretty values are strings except
// for decimal GPS coordinates, which are float64. Neither map ever contains
// an empty value, and every Pretty entry is derived from information present
// in Raw.
type Record struct {
	Raw    map[string]string
	Pretty map[string]any

	// Failure carries the structured cause when the whole-file decode
	// failed. The same failure is mirrored into Raw[ErrorKey] so that
	// display paths need only the maps.
	Failure *DecodeFailure
}

// DecodeFailure describes a whole-file decode failure for one format.
type DecodeFailure struct {
	Format Format
	Err    error
}

func (f *DecodeFailure) Error() string {
	return fmt.Sprintf("decoding %s metadata: %v", f.Format, f.Err)
}

func (f *DecodeFailure) Unwrap() error { return f.Err }

// Extract decodes the embedded metadata of a file already held in memory.
// It never fails: a decode error is captured in the returned record and
// whatever fields were gathered before the failure are kept. The function
// has no side effects and is safe for concurrent use.
func Extract(data []byte, format Format) *Record {
	rec := &Record{
		Raw:    make(map[string]string),
		Pretty: make(map[string]any),
	}

	var err error
	switch format {
	case FormatJPEG:
		err = decodeJPEG(data, rec)
	case FormatPNG:
		err = decodePNG(data, rec)
	case FormatPDF:
		err = decodePDF(data, rec)
	case FormatDOCX:
		err = decodeDOCX(data, rec)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		rec.Failure = &DecodeFailure{Format: format, Err: err}
		rec.Raw[ErrorKey] = fmt.Sprintf("extraction failed: %v", err)
	}

	rec.prune()
	return rec
}

func (r *Record) setRaw(key, value string) {
	if key == "" || isEmptyValue(value) {
		return
	}
	r.Raw[key] = value
}

func (r *Record) setPretty(label string, value any) {
	if label == "" {
		return
	}
	if s, ok := value.(string); ok && isEmptyValue(s) {
		return
	}
	if value == nil {
		return
	}
	r.Pretty[label] = value
}

// prune drops empty-string and null-equivalent entries so neither map ever
// exposes them to callers.
func (r *Record) prune() {
	for k, v := range r.Raw {
		if isEmptyValue(v) {
			delete(r.Raw, k)
		}
	}
	for k, v := range r.Pretty {
		if s, ok := v.(string); ok && isEmptyValue(s) {
			delete(r.Pretty, k)
		}
		if v == nil {
			delete(r.Pretty, k)
		}
	}
}

func isEmptyValue(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "None" || s == "null" || s == "<nil>"
}
