package clean

import (
	"bytes"
	"image/jpeg"
	"image/png"
)

// jpegQuality is used when re-encoding. Stripping metadata should not
// visibly degrade the image.
const jpegQuality = 95

// cleanJPEG re-encodes the pixel data. The encoder writes no APP1 segment,
// which drops EXIF, GPS and maker notes in one step.
func cleanJPEG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cleanPNG re-encodes the pixel data, dropping ancillary chunks (eXIf, tEXt,
// tIME and friends) that carry metadata.
func cleanPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
