package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// makerTagValueLimit caps the stringified size of vendor maker-note tags.
// Larger values are opaque binary blobs, not metadata worth reporting.
const makerTagValueLimit = 500

// ifd0Fields are the tag names that live in the image file directory itself
// rather than the EXIF or GPS sub-directories. Raw keys are qualified with
// the directory they came from, in the "Image Make" / "EXIF FNumber" /
// "GPS GPSLatitude" style.
var ifd0Fields = map[string]struct{}{
	"ImageWidth":                {},
	"ImageLength":               {},
	"BitsPerSample":             {},
	"Compression":               {},
	"PhotometricInterpretation": {},
	"Orientation":               {},
	"SamplesPerPixel":           {},
	"PlanarConfiguration":       {},
	"YCbCrSubSampling":          {},
	"YCbCrPositioning":          {},
	"XResolution":               {},
	"YResolution":               {},
	"ResolutionUnit":            {},
	"DateTime":                  {},
	"ImageDescription":          {},
	"Make":                      {},
	"Model":                     {},
	"Software":                  {},
	"Artist":                    {},
	"HostComputer":              {},
	"Copyright":                 {},
}

func qualifyTag(name string) string {
	switch {
	case strings.HasPrefix(name, "GPS"):
		return "GPS " + name
	default:
		if _, ok := ifd0Fields[name]; ok {
			return "Image " + name
		}
		return "EXIF " + name
	}
}

func decodeJPEG(data []byte, rec *Record) error {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	collectExif(x, rec)
	return nil
}

func decodePNG(data []byte, rec *Record) error {
	payload, err := pngExifChunk(data)
	if err != nil {
		return err
	}
	if payload == nil {
		// PNG without an eXIf chunk carries no tag table at all.
		return nil
	}
	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	collectExif(x, rec)
	return nil
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// pngExifChunk walks the PNG chunk stream and returns the TIFF payload of
// the eXIf chunk, or nil when the image has none.
func pngExifChunk(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("not a png file")
	}
	off := len(pngSignature)
	for off+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		start := off + 8
		if length < 0 || start+length > len(data) {
			return nil, fmt.Errorf("truncated png chunk %q", typ)
		}
		if typ == "eXIf" {
			return data[start : start+length], nil
		}
		if typ == "IEND" {
			break
		}
		off = start + length + 4 // skip payload and CRC
	}
	return nil, nil
}

func collectExif(x *exif.Exif, rec *Record) {
	x.Walk(rawTagWalker{rec}) //nolint:errcheck // walker never returns an error
	curateExif(x, rec)
}

// rawTagWalker copies every surviving tag into the record's raw map.
type rawTagWalker struct {
	rec *Record
}

func (w rawTagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	n := string(name)
	low := strings.ToLower(n)
	if strings.Contains(low, "thumb") {
		// Thumbnail payloads are embedded images, not metadata.
		return nil
	}
	if strings.HasSuffix(n, "IFDPointer") {
		// Directory pointers are file structure, not metadata.
		return nil
	}
	val := stringifyTag(tag)
	if strings.HasPrefix(low, "maker") && len(val) > makerTagValueLimit {
		return nil
	}
	w.rec.setRaw(qualifyTag(n), val)
	return nil
}

func stringifyTag(t *tiff.Tag) string {
	if t == nil {
		return ""
	}
	if t.Format() == tiff.StringVal {
		if s, err := t.StringVal(); err == nil {
			return strings.TrimSpace(strings.Trim(s, "\x00"))
		}
	}
	return t.String()
}

// curateExif fills the pretty map with the display subset: camera identity,
// timestamps, exposure settings, dimensions and reconstructed GPS
// coordinates. Each entry is added only when its source tag is present.
func curateExif(x *exif.Exif, rec *Record) {
	pick := func(field exif.FieldName, label string) {
		tag, err := x.Get(field)
		if err != nil {
			return
		}
		rec.setPretty(label, stringifyTag(tag))
	}

	pick(exif.Make, "Camera Make")
	pick(exif.Model, "Camera Model")
	pick(exif.DateTimeOriginal, "Original Date/Time")
	pick(exif.DateTimeDigitized, "Digital Date/Time")
	pick(exif.FNumber, "Aperture")
	pick(exif.ExposureTime, "Exposure Time")
	pick(exif.ISOSpeedRatings, "ISO")
	pick(exif.FocalLength, "Focal Length")
	pick(exif.PixelXDimension, "Image Width")
	pick(exif.PixelYDimension, "Image Height")

	curateGPS(x, rec)

	// A file can carry tags the curation rules above never touch. Mirror a
	// few common raw fields so the display summary is not blank for a file
	// that does have metadata.
	if len(rec.Pretty) == 0 {
		for _, key := range []string{"Image Make", "Image Model", "EXIF DateTimeOriginal", "EXIF ISOSpeedRatings"} {
			if v, ok := rec.Raw[key]; ok {
				rec.setPretty(friendlyLabel(key), v)
			}
		}
	}
}

func curateGPS(x *exif.Exif, rec *Record) {
	lat, errLat := x.Get(exif.GPSLatitude)
	latRef, errLatRef := x.Get(exif.GPSLatitudeRef)
	lon, errLon := x.Get(exif.GPSLongitude)
	lonRef, errLonRef := x.Get(exif.GPSLongitudeRef)

	if errLat == nil && errLatRef == nil && errLon == nil && errLonRef == nil {
		latDMS, okLat := tagDMS(lat)
		lonDMS, okLon := tagDMS(lon)
		if !okLat || !okLon {
			return
		}
		latDec, okLat := dmsToDecimal(latDMS, stringifyTag(latRef))
		lonDec, okLon := dmsToDecimal(lonDMS, stringifyTag(lonRef))
		if !okLat || !okLon {
			// Malformed rationals suppress only the decimal entries; the
			// DMS strings stay in the raw map.
			return
		}
		rec.setPretty("GPS Latitude (decimal)", latDec)
		rec.setPretty("GPS Longitude (decimal)", lonDec)
		rec.setPretty("GPS (DMS)", stringifyTag(lat)+" , "+stringifyTag(lon))
		return
	}

	if alt, err := x.Get(exif.GPSAltitude); err == nil {
		rec.setPretty("GPS Altitude", stringifyTag(alt))
	}
}
