package mathx_test

import (
	"testing"

	"github.com/nasa-jpl/fygen/mathx"
)

func TestRound(t *testing.T) {
	cases := []struct {
		x, unit  float64
		expected float64
	}{
		{99.999, 0.001, 99.999},
		{-0.001, 0.001, -0.001},
		{3.14159265, 0.0001, 3.1416},
		{350, 0.001, 350},
		{1234.5, 1e-6, 1234.5},
		{0, 0.001, 0},
	}
	for _, tc := range cases {
		out := mathx.Round(tc.x, tc.unit)
		if out != tc.expected {
			t.Errorf("Round(%v, %v): expected %v, got %v", tc.x, tc.unit, tc.expected, out)
		}
	}
}
