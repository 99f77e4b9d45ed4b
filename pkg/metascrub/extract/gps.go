package extract

import (
	"math"
	"strings"

	"github.com/rwcarlsen/goexif/tiff"
)

// Rational is one component of a degrees/minutes/seconds triple as stored in
// an EXIF GPS tag.
type Rational struct {
	Num int64
	Den int64
}

// dmsToDecimal converts a degrees/minutes/seconds triple plus a hemisphere
// reference ("N", "S", "E", "W") to decimal degrees rounded to six fraction
// digits. South and west are negative. A zero denominator in any component
// fails the conversion.
func dmsToDecimal(dms [3]Rational, ref string) (float64, bool) {
	comps := [3]float64{}
	for i, r := range dms {
		if r.Den == 0 {
			return 0, false
		}
		comps[i] = float64(r.Num) / float64(r.Den)
	}

	dec := comps[0] + comps[1]/60 + comps[2]/3600
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		dec = -dec
	}
	return math.Round(dec*1e6) / 1e6, true
}

// tagDMS reads the three rational components of a GPS latitude or longitude
// tag. Tags with fewer than three components are malformed.
func tagDMS(tag *tiff.Tag) ([3]Rational, bool) {
	var dms [3]Rational
	if tag == nil || tag.Count < 3 {
		return dms, false
	}
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, false
		}
		dms[i] = Rational{Num: num, Den: den}
	}
	return dms, true
}
