// Package domain models Pandora surface NO2 observations and their GEOS-CF
// model counterparts.
//
// # Data Source
//
// Observations come from the Pandora Global Network L2 rnvh3p1-8 product:
// ground-based spectrometer retrievals of nitrogen dioxide, one text file per
// instrument, available at https://data.pandonia-global-network.org/. Each file
// carries a header block (instrument and site metadata as "key: value" lines,
// bracketed by dashed separator lines) followed by space-delimited data rows.
//
// # L2 rnvh3p1-8 Column Conventions
//
// Data rows are 1-based columns; the fields used here are:
//
//	Column  1: UTC observation timestamp, "yyyymmddThhmmss.fz" (fractional
//	           seconds, trailing 'z' for UTC).
//	Column 53: L2 data quality flag for NO2 (0/10 = assured high quality).
//	Column 56: NO2 surface concentration [mol/m3].
//	Column 68: top height of layer 1 [km above instrument].
//	Column 69: NO2 partial column amount in layer 1 [mol/m2].
//
// Fill values are large negative numbers (-9e99 in the published files); they
// are mapped to NaN during parsing.
//
// # GEOS-CF Counterparts
//
// The matching model quantities come from hourly GEOS-CF collections:
//
//	chm collection: NO2 volume mixing ratio [mol/mol], 72 levels, level 72 at
//	                the surface. Instantaneous, matched on the rounded hour.
//	met collection: PS [Pa], T [K], DELP [Pa], ZL [m], Q [kg/kg]. Same matching.
//	pbl collection: ZPBL [m], a time-averaged collection stamped at HH:30, so
//	                it is matched on the unrounded observation time.
//
// # Unit Conversions
//
// Mixing ratio and concentration are related through the ideal gas law:
//
//	concentration [mol/m3] = mixing ratio [mol/mol] * p / (R * T)
//
// with R = 8.314 J/(mol K). The reverse conversion of the Pandora surface
// concentration additionally divides by (1 - Q) to report a dry-air mixing
// ratio. Partial columns integrate per-layer mixing ratios weighted by the
// pressure thickness of each layer:
//
//	column [mol/m2] = sum( NO2_k * DELP_k * (1 - Q_k) ) / (g * M_air)
//
// with g = 9.80665 m/s2 and M_air = 28.9644 g/mol. The topmost layer inside
// the target height contributes fractionally, split at the geometric midpoint
// between adjacent mid-layer heights. See [PartialColumn].
package domain
