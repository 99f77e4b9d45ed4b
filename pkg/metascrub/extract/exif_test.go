package extract_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metascrub/metascrub/pkg/metascrub/extract"
)

// The fixtures below hand-assemble a little-endian TIFF so the tag walk,
// key qualification, and GPS curation run against a real tag table instead
// of the decode-failure path.

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

type tiffDir struct {
	entries []tiffEntry
	next    uint32
}

func asciiEntry(tag uint16, s string) tiffEntry {
	v := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: 2, count: uint32(len(v)), value: v}
}

func shortEntry(tag uint16, v uint16) tiffEntry {
	b := binary.LittleEndian.AppendUint16(nil, v)
	return tiffEntry{tag: tag, typ: 3, count: 1, value: b}
}

func longEntry(tag uint16, v uint32) tiffEntry {
	b := binary.LittleEndian.AppendUint32(nil, v)
	return tiffEntry{tag: tag, typ: 4, count: 1, value: b}
}

func rationalEntry(tag uint16, rats [][2]uint32) tiffEntry {
	b := make([]byte, 0, len(rats)*8)
	for _, r := range rats {
		b = binary.LittleEndian.AppendUint32(b, r[0])
		b = binary.LittleEndian.AppendUint32(b, r[1])
	}
	return tiffEntry{tag: tag, typ: 5, count: uint32(len(rats)), value: b}
}

func undefEntry(tag uint16, n int) tiffEntry {
	return tiffEntry{tag: tag, typ: 7, count: uint32(n), value: bytes.Repeat([]byte{'A'}, n)}
}

func ifdSize(entries int) uint32 {
	return 2 + 12*uint32(entries) + 4
}

// encodeTIFF lays out the directories back to back after the 8-byte header,
// with all out-of-line values in a data region after the last directory.
func encodeTIFF(dirs []tiffDir) []byte {
	dataOff := uint32(8)
	for _, d := range dirs {
		dataOff += ifdSize(len(d.entries))
	}

	var data bytes.Buffer
	place := func(v []byte) uint32 {
		o := dataOff + uint32(data.Len())
		data.Write(v)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
		return o
	}

	var out bytes.Buffer
	out.Write([]byte{'I', 'I', 42, 0})
	binary.Write(&out, binary.LittleEndian, uint32(8))

	for _, d := range dirs {
		binary.Write(&out, binary.LittleEndian, uint16(len(d.entries)))
		for _, e := range d.entries {
			binary.Write(&out, binary.LittleEndian, e.tag)
			binary.Write(&out, binary.LittleEndian, e.typ)
			binary.Write(&out, binary.LittleEndian, e.count)
			if len(e.value) <= 4 {
				v := make([]byte, 4)
				copy(v, e.value)
				out.Write(v)
			} else {
				binary.Write(&out, binary.LittleEndian, place(e.value))
			}
		}
		binary.Write(&out, binary.LittleEndian, d.next)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// buildExifTIFF returns a TIFF with IFD0 (camera make and model plus the two
// sub-directory pointers), an Exif sub-IFD (capture date, ISO, and a maker
// note of makerLen bytes), a GPS sub-IFD for 40 deg 26' 46" N, 79 deg 58'
// 56" W, and a thumbnail IFD chained after IFD0. With zeroDenominator set
// the latitude minutes carry a 0/0 rational.
func buildExifTIFF(zeroDenominator bool, makerLen int) []byte {
	const (
		nIFD0  = 4
		nExif  = 3
		nGPS   = 4
		nThumb = 2
	)
	offIFD0 := uint32(8)
	offExif := offIFD0 + ifdSize(nIFD0)
	offGPS := offExif + ifdSize(nExif)
	offThumb := offGPS + ifdSize(nGPS)

	latMinute := [2]uint32{26, 1}
	if zeroDenominator {
		latMinute = [2]uint32{26, 0}
	}

	ifd0 := tiffDir{
		entries: []tiffEntry{
			asciiEntry(0x010F, "Acme"),
			asciiEntry(0x0110, "PixelSnap 9"),
			longEntry(0x8769, offExif),
			longEntry(0x8825, offGPS),
		},
		next: offThumb,
	}
	exifIFD := tiffDir{
		entries: []tiffEntry{
			shortEntry(0x8827, 100),
			asciiEntry(0x9003, "2021:03:04 10:00:00"),
			undefEntry(0x927C, makerLen),
		},
	}
	gpsIFD := tiffDir{
		entries: []tiffEntry{
			asciiEntry(0x0001, "N"),
			rationalEntry(0x0002, [][2]uint32{{40, 1}, latMinute, {46, 1}}),
			asciiEntry(0x0003, "W"),
			rationalEntry(0x0004, [][2]uint32{{79, 1}, {58, 1}, {56, 1}}),
		},
	}
	thumbIFD := tiffDir{
		entries: []tiffEntry{
			longEntry(0x0201, 0),
			longEntry(0x0202, 0),
		},
	}

	return encodeTIFF([]tiffDir{ifd0, exifIFD, gpsIFD, thumbIFD})
}

// pngWithExif splices an eXIf chunk carrying tiffData into a stdlib-encoded
// PNG, right after the IHDR chunk.
func pngWithExif(t *testing.T, tiffData []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{G: 128, A: 255})
	require.NoError(t, png.Encode(&buf, img))
	src := buf.Bytes()

	const ihdrEnd = 8 + 8 + 13 + 4
	require.Greater(t, len(src), ihdrEnd)

	body := append([]byte("eXIf"), tiffData...)
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(tiffData)))
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	out := make([]byte, 0, len(src)+len(chunk))
	out = append(out, src[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, src[ihdrEnd:]...)
}

// jpegWithExif wraps tiffData in a minimal JPEG with a single Exif APP1
// segment.
func jpegWithExif(tiffData []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiffData...)
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

func TestExtractPNGWithExifTags(t *testing.T) {
	data := pngWithExif(t, buildExifTIFF(false, 600))

	rec := extract.Extract(data, extract.FormatPNG)
	require.Nil(t, rec.Failure)

	// Raw keys are qualified by their directory.
	assert.Equal(t, "Acme", rec.Raw["Image Make"])
	assert.Equal(t, "PixelSnap 9", rec.Raw["Image Model"])
	assert.Equal(t, "2021:03:04 10:00:00", rec.Raw["EXIF DateTimeOriginal"])
	assert.NotEmpty(t, rec.Raw["EXIF ISOSpeedRatings"])
	assert.Equal(t, "N", rec.Raw["GPS GPSLatitudeRef"])
	assert.Equal(t, "W", rec.Raw["GPS GPSLongitudeRef"])
	assert.Contains(t, rec.Raw, "GPS GPSLatitude")
	assert.Contains(t, rec.Raw, "GPS GPSLongitude")

	// Directory pointers, thumbnail fields, and oversized maker notes never
	// reach the raw map.
	for key := range rec.Raw {
		low := strings.ToLower(key)
		assert.NotContains(t, key, "IFDPointer")
		assert.NotContains(t, low, "thumb")
		assert.NotContains(t, low, "maker")
	}

	assert.Equal(t, "Acme", rec.Pretty["Camera Make"])
	assert.Equal(t, "PixelSnap 9", rec.Pretty["Camera Model"])
	assert.Equal(t, "2021:03:04 10:00:00", rec.Pretty["Original Date/Time"])
	assert.NotEmpty(t, rec.Pretty["ISO"])

	lat, ok := rec.Pretty["GPS Latitude (decimal)"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 40.446111, lat, 1e-9)
	lon, ok := rec.Pretty["GPS Longitude (decimal)"].(float64)
	require.True(t, ok)
	assert.InDelta(t, -79.982222, lon, 1e-9)
	assert.NotEmpty(t, rec.Pretty["GPS (DMS)"])
}

func TestExtractJPEGWithExifTags(t *testing.T) {
	data := jpegWithExif(buildExifTIFF(false, 600))

	rec := extract.Extract(data, extract.FormatJPEG)
	require.Nil(t, rec.Failure)

	assert.Equal(t, "Acme", rec.Raw["Image Make"])
	assert.Equal(t, "Acme", rec.Pretty["Camera Make"])
	lat, ok := rec.Pretty["GPS Latitude (decimal)"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 40.446111, lat, 1e-9)
}

func TestExtractSmallMakerNoteKept(t *testing.T) {
	data := pngWithExif(t, buildExifTIFF(false, 16))

	rec := extract.Extract(data, extract.FormatPNG)
	require.Nil(t, rec.Failure)
	assert.Contains(t, rec.Raw, "EXIF MakerNote")
}

func TestExtractGPSZeroDenominatorSuppressesDecimals(t *testing.T) {
	data := pngWithExif(t, buildExifTIFF(true, 600))

	rec := extract.Extract(data, extract.FormatPNG)
	require.Nil(t, rec.Failure)

	// The unconvertible coordinate stays out of the curated map while the
	// raw DMS strings are kept.
	assert.NotContains(t, rec.Pretty, "GPS Latitude (decimal)")
	assert.NotContains(t, rec.Pretty, "GPS Longitude (decimal)")
	assert.NotContains(t, rec.Pretty, "GPS (DMS)")
	assert.Contains(t, rec.Raw, "GPS GPSLatitude")
	assert.Contains(t, rec.Raw, "GPS GPSLongitude")

	assert.Equal(t, "Acme", rec.Pretty["Camera Make"])
}
