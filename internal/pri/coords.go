package pri

import (
	"strconv"

	"forestnav/internal/domain"
)

// coordScale converts the fixed-point integer encoding to degrees.
const coordScale = 1e-5

// hemisphereNegative is the flag value for south latitude / west longitude.
const hemisphereNegative = "2"

var coordinatePairs = [][2]string{
	{"Latitude", "North/South Flag"},
	{"Longitude", "East/West Flag"},
}

// DecodeCoordinate converts a fixed-point coordinate cell and its hemisphere
// flag to decimal degrees text with 5 decimals. ok is false when the cell is
// not an integer; the caller then keeps the cell as it was.
func DecodeCoordinate(raw, flag string) (string, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return raw, false
	}
	v := float64(n) * coordScale
	if flag == hemisphereNegative {
		v = -v
	}
	return strconv.FormatFloat(v, 'f', 5, 64), true
}

// DecodeCoordinates rewrites Latitude/Longitude cells in place. A column is
// only decoded when its flag column is also present. Must run exactly once
// per table: decoded cells are no longer integers.
func DecodeCoordinates(t *domain.Table) {
	if t.Empty() {
		return
	}
	for _, pair := range coordinatePairs {
		valIdx, flagIdx := t.ColumnIndex(pair[0]), t.ColumnIndex(pair[1])
		if valIdx < 0 || flagIdx < 0 {
			continue
		}
		for _, row := range t.Rows {
			if s, ok := DecodeCoordinate(row[valIdx], row[flagIdx]); ok {
				row[valIdx] = s
			}
		}
	}
}
