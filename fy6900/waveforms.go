package fy6900

import "fmt"

// Shape is one of the signal shapes built into the generator's DDS
type Shape int

// the shapes, in wire-code order
const (
	Sine Shape = iota
	Square
	Rectangle
	Trapezoid
	CMOS
	AdjPulse
	DC
	Triangle
	Ramp
	NegRamp
	StairTriangle
	StairStep
	NegStair
	PosExp
	NegExp
	PosFallExp
	NegFallExp
	PosLog
	NegLog
	PosFallLog
	NegFallLog
	PosFullWave
	NegFullWave
	PosHalfWave
	NegHalfWave
	LorentzPulse
	WhiteNoise
	ECGSimulation
	SincPulse
	Impulse
	AM
	FM
	Chirp
)

const (
	// NumSlots is the number of user waveform slots in the generator
	NumSlots = 64

	// arbitrary slot n is selected on the wire by code arbBase+n
	arbBase = 36
)

// shapeCodes maps shapes to their wire codes.  The code space has gaps;
// 26, 29, 32 and several others are not assigned by the firmware.
var shapeCodes = map[Shape]int{
	Sine:          0,
	Square:        1,
	Rectangle:     2,
	Trapezoid:     3,
	CMOS:          4,
	AdjPulse:      5,
	DC:            6,
	Triangle:      7,
	Ramp:          8,
	NegRamp:       9,
	StairTriangle: 10,
	StairStep:     11,
	NegStair:      12,
	PosExp:        13,
	NegExp:        14,
	PosFallExp:    15,
	NegFallExp:    16,
	PosLog:        17,
	NegLog:        18,
	PosFallLog:    19,
	NegFallLog:    20,
	PosFullWave:   21,
	NegFullWave:   22,
	PosHalfWave:   23,
	NegHalfWave:   24,
	LorentzPulse:  25,
	WhiteNoise:    27,
	ECGSimulation: 28,
	SincPulse:     30,
	Impulse:       31,
	AM:            33,
	FM:            34,
	Chirp:         35,
}

var shapeNames = map[Shape]string{
	Sine:          "sine",
	Square:        "square",
	Rectangle:     "rectangle",
	Trapezoid:     "trapezoid",
	CMOS:          "cmos",
	AdjPulse:      "adj-pulse",
	DC:            "dc",
	Triangle:      "triangle",
	Ramp:          "ramp",
	NegRamp:       "neg-ramp",
	StairTriangle: "stair-triangle",
	StairStep:     "stair-step",
	NegStair:      "neg-stair",
	PosExp:        "pos-exp",
	NegExp:        "neg-exp",
	PosFallExp:    "pos-fall-exp",
	NegFallExp:    "neg-fall-exp",
	PosLog:        "pos-log",
	NegLog:        "neg-log",
	PosFallLog:    "pos-fall-log",
	NegFallLog:    "neg-fall-log",
	PosFullWave:   "pos-full-wave",
	NegFullWave:   "neg-full-wave",
	PosHalfWave:   "pos-half-wave",
	NegHalfWave:   "neg-half-wave",
	LorentzPulse:  "lorentz-pulse",
	WhiteNoise:    "white-noise",
	ECGSimulation: "ecg-simulation",
	SincPulse:     "sinc-pulse",
	Impulse:       "impulse",
	AM:            "am",
	FM:            "fm",
	Chirp:         "chirp",
}

// inverses, built once at startup
var (
	codeShapes = map[int]Shape{}
	nameShapes = map[string]Shape{}
)

func init() {
	for shape, code := range shapeCodes {
		codeShapes[code] = shape
	}
	for shape, name := range shapeNames {
		nameShapes[name] = shape
	}
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape converts a shape name, e.g. "sine", to its Shape
func ParseShape(name string) (Shape, error) {
	if s, ok := nameShapes[name]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%w: unknown shape %q", ErrInvalidArgument, name)
}

// Waveform selects the signal on a channel: either a built-in shape, or
// one of the 64 user slots holding an uploaded sample buffer
type Waveform struct {
	Shape     Shape
	Slot      int
	Arbitrary bool
}

// ArbitraryWaveform returns the Waveform selecting user slot n
func ArbitraryWaveform(slot int) Waveform {
	return Waveform{Slot: slot, Arbitrary: true}
}

// encodeWaveform converts a waveform selector to its wire code
func encodeWaveform(w Waveform) (int, error) {
	if w.Arbitrary {
		if w.Slot < 0 || w.Slot >= NumSlots {
			return 0, fmt.Errorf("%w: arbitrary slot %d outside [0,%d]", ErrInvalidArgument, w.Slot, NumSlots-1)
		}
		return arbBase + w.Slot, nil
	}
	code, ok := shapeCodes[w.Shape]
	if !ok {
		return 0, fmt.Errorf("%w: shape %d is not supported by the FY6900", ErrInvalidArgument, int(w.Shape))
	}
	return code, nil
}

// decodeWaveform converts a wire code reported by the device to a
// waveform selector
func decodeWaveform(code int) (Waveform, error) {
	if code >= arbBase && code < arbBase+NumSlots {
		return ArbitraryWaveform(code - arbBase), nil
	}
	shape, ok := codeShapes[code]
	if !ok {
		return Waveform{}, fmt.Errorf("%w: waveform code %d unknown", ErrProtocol, code)
	}
	return Waveform{Shape: shape}, nil
}
