package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/nasa-jpl/fygen/util"
)

func ExampleClamp() {
	fmt.Println(util.Clamp(100, 0, 99.999))
	// Output: 99.999
}

func ExampleLimiter_Contains() {
	l := util.Limiter{Min: -20, Max: 20}
	fmt.Println(l.Contains(-20.001))
	// Output: false
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestLimiterContainsEndpoints(t *testing.T) {
	l := util.Limiter{Min: 0, Max: 20}
	for _, v := range []float64{0, 20} {
		if !l.Contains(v) {
			t.Errorf("expected limiter to contain endpoint %f", v)
		}
	}
	for _, v := range []float64{-0.001, 20.001} {
		if l.Contains(v) {
			t.Errorf("expected limiter to exclude %f", v)
		}
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
