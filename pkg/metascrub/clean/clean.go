// Package clean rewrites files with their embedded metadata removed. Unlike
// extraction, cleaning is allowed to fail: a file the format library cannot
// re-encode yields an error and the caller decides what to do with it.
package clean

import (
	"fmt"

	"github.com/metascrub/metascrub/pkg/metascrub/extract"
)

// Clean returns a copy of the file with embedded metadata stripped. The
// original buffer is never modified.
func Clean(data []byte, format extract.Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch format {
	case extract.FormatJPEG:
		out, err = cleanJPEG(data)
	case extract.FormatPNG:
		out, err = cleanPNG(data)
	case extract.FormatPDF:
		out, err = cleanPDF(data)
	case extract.FormatDOCX:
		out, err = cleanDOCX(data)
	default:
		return nil, fmt.Errorf("%w: %s", extract.ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", format, err)
	}
	return out, nil
}
