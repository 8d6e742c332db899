package fy6900

import (
	"fmt"
	"strconv"

	"github.com/nasa-jpl/fygen/util"
)

// declared parameter domains, engineering units
var (
	amplitudeRange = util.Limiter{Min: 0, Max: 20}   // V
	offsetRange    = util.Limiter{Min: -20, Max: 20} // V
	dutyRange      = util.Limiter{Min: 0, Max: 100}  // %
	phaseRange     = util.Limiter{Min: 0, Max: 360}  // deg
)

const (
	// the generator cannot produce a true 100% duty cycle; writes are
	// clamped to this value
	dutyCeiling = 99.999
)

// chanLetter maps a channel index to its mnemonic letter; the main channel
// is "M" and the second is "F"
func chanLetter(channel int) (string, error) {
	switch channel {
	case 0:
		return "M", nil
	case 1:
		return "F", nil
	default:
		return "", fmt.Errorf("%w: channel %d is not 0 or 1", ErrInvalidArgument, channel)
	}
}

func encodeFrequency(hz float64) string {
	return fmt.Sprintf("%08.6f", hz)
}

func decodeFrequency(resp string, maxHz float64) (float64, error) {
	hz, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse frequency response %q", ErrProtocol, resp)
	}
	if hz < 0 || hz > maxHz {
		return 0, fmt.Errorf("%w: reported frequency %f Hz is outside [0,%f]", ErrProtocol, hz, maxHz)
	}
	return hz, nil
}

func encodeAmplitude(volts float64) string {
	return fmt.Sprintf("%.5f", volts)
}

// decodeAmplitude parses an RxA reply; the wire unit is 100 uV
func decodeAmplitude(resp string) (float64, error) {
	raw, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse amplitude response %q", ErrProtocol, resp)
	}
	volts := raw / 10000
	if !amplitudeRange.Contains(volts) {
		return 0, fmt.Errorf("%w: reported amplitude %f V is outside [0,20]", ErrProtocol, volts)
	}
	return volts, nil
}

func encodeOffset(volts float64) string {
	return fmt.Sprintf("%.5f", volts)
}

// decodeOffsetRaw converts the raw RxO figure to volts.  Negative offsets
// come back as the two's complement of millivolts in a 32-bit word.
func decodeOffsetRaw(raw float64) float64 {
	if raw > 10000 {
		return -(4294967296 - raw) / 1000
	}
	return raw / 1000
}

func decodeOffset(resp string) (float64, error) {
	raw, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse offset response %q", ErrProtocol, resp)
	}
	volts := decodeOffsetRaw(raw)
	if !offsetRange.Contains(volts) {
		return 0, fmt.Errorf("%w: reported offset %f V is outside [-20,20]", ErrProtocol, volts)
	}
	return volts, nil
}

// encodeDuty clamps the input to the device ceiling and formats it.  The
// caller has already validated the [0,100] domain.
func encodeDuty(pct float64) string {
	return fmt.Sprintf("%2.3f", util.Clamp(pct, 0, dutyCeiling))
}

// decodeDuty parses an RxD reply; the wire unit is 1/1000 percent
func decodeDuty(resp string) (float64, error) {
	raw, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse duty cycle response %q", ErrProtocol, resp)
	}
	return raw / 1000, nil
}

// normalizePhase shifts deg into [0,360) by repeated full turns
func normalizePhase(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg > 359.999 {
		deg -= 360
	}
	return deg
}

func encodePhase(deg float64) string {
	return fmt.Sprintf("%3.3f", normalizePhase(deg))
}

// decodePhase parses an RxP reply; the wire unit is 1/1000 degree
func decodePhase(resp string) (float64, error) {
	raw, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse phase response %q", ErrProtocol, resp)
	}
	deg := raw / 1000
	if !phaseRange.Contains(deg) {
		return 0, fmt.Errorf("%w: reported phase %f deg is outside [0,360]", ErrProtocol, deg)
	}
	return deg, nil
}

// decodeEnabled parses an RxN reply; the device reports 0 for off and 255
// for on, anything else is a violation
func decodeEnabled(resp string) (bool, error) {
	raw, err := strconv.Atoi(resp)
	if err != nil {
		return false, fmt.Errorf("%w: failed to parse output state response %q", ErrProtocol, resp)
	}
	switch raw {
	case 0:
		return false, nil
	case 255:
		return true, nil
	default:
		return false, fmt.Errorf("%w: output state code %d is not 0 or 255", ErrProtocol, raw)
	}
}
