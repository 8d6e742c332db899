// Package util contains misc internal utilities.
package util

import "time"

// Limiter holds a min and max value
type Limiter struct {
	Min float64
	Max float64
}

// Contains returns true if Min <= v <= Max
func (l Limiter) Contains(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// Clamp limits v to the range [low, high]
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// SecsToDuration converts a floating point number of seconds to a Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
