package extract

// friendlyLabels maps qualified raw tag names to their display labels. Names
// without an entry keep their raw form (identity fallback).
var friendlyLabels = map[string]string{
	"Image Make":             "Camera Make",
	"Image Model":            "Camera Model",
	"Image Software":         "Software",
	"EXIF DateTimeOriginal":  "Original Date/Time",
	"EXIF DateTimeDigitized": "Digital Date/Time",
	"EXIF PixelXDimension":   "Image Width",
	"EXIF PixelYDimension":   "Image Height",
	"EXIF FNumber":           "Aperture",
	"EXIF ExposureTime":      "Exposure Time",
	"EXIF ISOSpeedRatings":   "ISO",
	"EXIF FocalLength":       "Focal Length",
	"GPS GPSLatitude":        "GPS Latitude (DMS)",
	"GPS GPSLongitude":       "GPS Longitude (DMS)",
	"GPS GPSLatitudeRef":     "GPS Latitude Ref",
	"GPS GPSLongitudeRef":    "GPS Longitude Ref",
	"GPS GPSAltitude":        "GPS Altitude",
}

func friendlyLabel(name string) string {
	if label, ok := friendlyLabels[name]; ok {
		return label
	}
	return name
}
