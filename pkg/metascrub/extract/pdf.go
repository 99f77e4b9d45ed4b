package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPrettyFields is the subset of document-information keys mirrored into
// the pretty map under their own names.
var pdfPrettyFields = map[string]struct{}{
	"Title":    {},
	"Author":   {},
	"Subject":  {},
	"Creator":  {},
	"Producer": {},
}

func decodePDF(data []byte, rec *Record) (err error) {
	// The pdf parser panics on some malformed inputs. Extraction must not
	// fail past its boundary, so a panic becomes a decode error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	info := r.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		// A document without an information dictionary has no metadata.
		return nil
	}

	for _, key := range info.Keys() {
		name := strings.TrimPrefix(key, "/")
		value := pdfValueString(info.Key(key))
		if value == "" {
			continue
		}
		rec.setRaw(name, value)
		if _, ok := pdfPrettyFields[name]; ok {
			rec.setPretty(name, value)
		}
	}
	return nil
}

func pdfValueString(v pdf.Value) string {
	switch v.Kind() {
	case pdf.String:
		return strings.TrimSpace(v.Text())
	case pdf.Name:
		return v.Name()
	case pdf.Integer:
		return strconv.FormatInt(v.Int64(), 10)
	case pdf.Real:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case pdf.Bool:
		return strconv.FormatBool(v.Bool())
	case pdf.Null:
		return ""
	default:
		return strings.TrimSpace(v.String())
	}
}
