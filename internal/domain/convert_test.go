package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcFromVV(t *testing.T) {
	t.Run("standard conditions", func(t *testing.T) {
		// 10 ppbv at 298 K and 101325 Pa.
		conc := ConcFromVV(VVFromPPBV(10), 101325, 298)
		assert.InEpsilon(t, 4.0897e-7, conc, 1e-4)
	})

	t.Run("zero pressure", func(t *testing.T) {
		assert.True(t, math.IsNaN(ConcFromVV(1e-8, 0, 298)))
	})

	t.Run("zero temperature", func(t *testing.T) {
		assert.True(t, math.IsNaN(ConcFromVV(1e-8, 101325, 0)))
	})

	t.Run("negative temperature", func(t *testing.T) {
		assert.True(t, math.IsNaN(ConcFromVV(1e-8, 101325, -50)))
	})

	t.Run("NaN inputs", func(t *testing.T) {
		assert.True(t, math.IsNaN(ConcFromVV(1e-8, math.NaN(), 298)))
		assert.True(t, math.IsNaN(ConcFromVV(1e-8, 101325, math.NaN())))
	})
}

func TestConversionRoundTrip(t *testing.T) {
	cases := []struct {
		name        string
		vv          float64
		pressure    float64
		temperature float64
	}{
		{"urban plume", 2.5e-8, 101325, 298},
		{"clean background", 5.0e-11, 98000, 273.15},
		{"high altitude site", 1.0e-9, 78000, 265},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conc := ConcFromVV(tc.vv, tc.pressure, tc.temperature)
			back := VVFromConc(conc, tc.pressure, tc.temperature)
			assert.InEpsilon(t, tc.vv, back, 1e-12)
		})
	}
}

func TestPPBVRoundTrip(t *testing.T) {
	assert.InEpsilon(t, 12.5, PPBVFromVV(VVFromPPBV(12.5)), 1e-12)
}

func TestDryPPBVFromConc(t *testing.T) {
	t.Run("dry atmosphere matches wet conversion", func(t *testing.T) {
		conc := ConcFromVV(VVFromPPBV(10), 101325, 298)
		ppbv := DryPPBVFromConc(conc, 101325, 298, 0)
		assert.InEpsilon(t, 10.0, ppbv, 1e-12)
	})

	t.Run("humidity inflates dry mixing ratio", func(t *testing.T) {
		conc := ConcFromVV(VVFromPPBV(10), 101325, 298)
		dry := DryPPBVFromConc(conc, 101325, 298, 0.01)
		assert.Greater(t, dry, 10.0)
		assert.InEpsilon(t, 10.0/0.99, dry, 1e-12)
	})

	t.Run("saturated humidity yields NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(DryPPBVFromConc(4e-7, 101325, 298, 1.0)))
	})

	t.Run("missing environment yields NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(DryPPBVFromConc(4e-7, math.NaN(), 298, 0)))
		assert.True(t, math.IsNaN(DryPPBVFromConc(4e-7, 101325, 0, 0)))
	})
}
