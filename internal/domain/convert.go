package domain

import "math"

// GasConstant is the universal gas constant in J/(mol K), at the precision
// used by the GEOS-CF product documentation.
const GasConstant = 8.314

// vvToMol converts a mixing-ratio-weighted pressure thickness [mol/mol * Pa]
// to a column amount [mol/m2]: 1000 / (g * M_air) with g in m/s2 and M_air in
// g/mol.
const vvToMol = 1000.0 / (9.80665 * 28.9644)

// PPBVFromVV converts a volume mixing ratio [mol/mol] to parts per billion by
// volume.
func PPBVFromVV(vv float64) float64 {
	return vv * 1.0e9
}

// VVFromPPBV is the inverse of PPBVFromVV.
func VVFromPPBV(ppbv float64) float64 {
	return ppbv * 1.0e-9
}

// ConcFromVV converts a volume mixing ratio [mol/mol] to a concentration
// [mol/m3] via the ideal gas law, given pressure [Pa] and temperature [K].
// Non-positive or NaN pressure/temperature yields NaN rather than a division
// artifact.
func ConcFromVV(vv, pressure, temperature float64) float64 {
	if !(pressure > 0) || !(temperature > 0) {
		return math.NaN()
	}
	return vv * pressure / (GasConstant * temperature)
}

// VVFromConc converts a concentration [mol/m3] back to a volume mixing ratio
// [mol/mol]. Inverse of ConcFromVV under the same guards.
func VVFromConc(conc, pressure, temperature float64) float64 {
	if !(pressure > 0) || !(temperature > 0) {
		return math.NaN()
	}
	return conc * GasConstant * temperature / pressure
}

// DryPPBVFromConc converts a reported surface concentration [mol/m3] to a dry
// mixing ratio [ppbv], removing the water vapor contribution via the specific
// humidity q [kg/kg]. This is the conversion applied to the Pandora surface
// concentration using GEOS-CF environmental fields.
func DryPPBVFromConc(conc, pressure, temperature, q float64) float64 {
	if !(pressure > 0) || !(temperature > 0) || !(q < 1) {
		return math.NaN()
	}
	return conc / pressure * GasConstant * temperature * 1.0e9 / (1.0 - q)
}
