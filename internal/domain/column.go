package domain

import "math"

// ColumnProfile holds per-layer model values at one grid point, ordered from
// the surface upward.
type ColumnProfile struct {
	NO2       []float64 // volume mixing ratio [mol/mol]
	DelP      []float64 // pressure thickness [Pa]
	MidHeight []float64 // mid-layer height above the surface [m]
	Humidity  []float64 // specific humidity [kg/kg]
}

// valid reports whether all profile slices are non-empty and equally sized.
func (p ColumnProfile) valid() bool {
	n := len(p.NO2)
	return n > 0 && len(p.DelP) == n && len(p.MidHeight) == n && len(p.Humidity) == n
}

// PartialColumn integrates the dry-air NO2 amount [mol/m2] from the surface up
// to topHeight meters. Layer boundaries are the midpoints between adjacent
// mid-layer heights; the layer containing topHeight contributes the fraction
// of its depth below topHeight.
//
// The boolean result is false when topHeight reaches above the last resolvable
// layer boundary, in which case the full column is returned and the caller
// should treat the value as suspect.
func PartialColumn(p ColumnProfile, topHeight float64) (float64, bool) {
	if !p.valid() || math.IsNaN(topHeight) || topHeight <= 0 {
		return math.NaN(), true
	}

	n := len(p.NO2)
	column := 0.0
	for i := 0; i < n; i++ {
		if i+1 >= n {
			// topHeight is above the highest boundary we can form.
			column += p.NO2[i] * p.DelP[i] * (1.0 - p.Humidity[i]) * vvToMol
			return column, false
		}

		top := (p.MidHeight[i] + p.MidHeight[i+1]) / 2.0
		frac := 1.0
		if top > topHeight {
			bottom := 0.0
			if i > 0 {
				bottom = (p.MidHeight[i] + p.MidHeight[i-1]) / 2.0
			}
			frac = (topHeight - bottom) / (top - bottom)
		}

		column += p.NO2[i] * p.DelP[i] * (1.0 - p.Humidity[i]) * vvToMol * frac
		if frac < 1.0 {
			return column, true
		}
	}
	return column, false
}
