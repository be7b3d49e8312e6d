// Package geoscf retrieves GEOS-CF model quantities from local NetCDF files,
// one file per collection per hour, following the GEOS-CF NRT publication
// layout.
package geoscf

import (
	"fmt"
	"strings"
	"time"
)

// Default path templates for the instantaneous chm/met collections and the
// time-averaged met collection carrying ZPBL. The tavg files are stamped at
// half past the hour.
const (
	DefaultCFTemplate  = "geoscf/Y%Y/M%m/D%d/GEOS-CF.v01.rpl.<col>_inst_1hr_g1440x721_v72.%Y%m%d_%H00z.nc4"
	DefaultPBLTemplate = "geoscf/Y%Y/M%m/D%d/GEOS-CF.v01.rpl.met_tavg_1hr_g1440x721_x1.%Y%m%d_%H30z.nc4"
)

// PathTemplate is a GEOS-CF file path pattern with strftime-style tokens
// (%Y %m %d %H %M) and an optional <col> collection placeholder.
type PathTemplate string

// Expand substitutes the time tokens (in UTC) and the collection name.
func (t PathTemplate) Expand(ts time.Time, collection string) string {
	ts = ts.UTC()
	r := strings.NewReplacer(
		"<col>", collection,
		"%Y", fmt.Sprintf("%04d", ts.Year()),
		"%m", fmt.Sprintf("%02d", int(ts.Month())),
		"%d", fmt.Sprintf("%02d", ts.Day()),
		"%H", fmt.Sprintf("%02d", ts.Hour()),
		"%M", fmt.Sprintf("%02d", ts.Minute()),
	)
	return r.Replace(string(t))
}
