package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// uniformProfile builds three equal layers: mid-heights 50/150/300 m, so the
// layer boundaries sit at 100 m and 225 m. Each full dry layer contributes
// 1e-8 * 1000 Pa / (g * M_air) ≈ 3.5206e-5 mol/m2.
func uniformProfile() ColumnProfile {
	return ColumnProfile{
		NO2:       []float64{1e-8, 1e-8, 1e-8},
		DelP:      []float64{1000, 1000, 1000},
		MidHeight: []float64{50, 150, 300},
		Humidity:  []float64{0, 0, 0},
	}
}

func TestPartialColumn(t *testing.T) {
	t.Run("exactly one layer", func(t *testing.T) {
		col, ok := PartialColumn(uniformProfile(), 100)
		assert.True(t, ok)
		assert.InEpsilon(t, 3.5206e-5, col, 1e-4)
	})

	t.Run("fractional second layer", func(t *testing.T) {
		// 162.5 m is halfway through layer 1 (100 m to 225 m).
		col, ok := PartialColumn(uniformProfile(), 162.5)
		assert.True(t, ok)
		assert.InEpsilon(t, 5.2809e-5, col, 1e-4)
	})

	t.Run("fractional first layer", func(t *testing.T) {
		col, ok := PartialColumn(uniformProfile(), 50)
		assert.True(t, ok)
		assert.InEpsilon(t, 1.7603e-5, col, 1e-4)
	})

	t.Run("humidity dries the column", func(t *testing.T) {
		p := uniformProfile()
		p.Humidity = []float64{0.5, 0.5, 0.5}
		col, ok := PartialColumn(p, 100)
		assert.True(t, ok)
		assert.InEpsilon(t, 3.5206e-5/2, col, 1e-4)
	})

	t.Run("height above the column", func(t *testing.T) {
		col, ok := PartialColumn(uniformProfile(), 1000)
		assert.False(t, ok, "full-column fallback should be flagged")
		assert.InEpsilon(t, 1.0562e-4, col, 1e-4)
	})

	t.Run("empty profile", func(t *testing.T) {
		col, ok := PartialColumn(ColumnProfile{}, 100)
		assert.True(t, ok)
		assert.True(t, math.IsNaN(col))
	})

	t.Run("mismatched slice lengths", func(t *testing.T) {
		p := uniformProfile()
		p.DelP = p.DelP[:2]
		col, _ := PartialColumn(p, 100)
		assert.True(t, math.IsNaN(col))
	})

	t.Run("non-positive height", func(t *testing.T) {
		col, _ := PartialColumn(uniformProfile(), 0)
		assert.True(t, math.IsNaN(col))
		col, _ = PartialColumn(uniformProfile(), math.NaN())
		assert.True(t, math.IsNaN(col))
	})
}
