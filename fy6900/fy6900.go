// Package fy6900 provides an interface to FeelTech FY6900 dual-channel
// DDS function generators over their USB serial port
package fy6900

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"

	"github.com/nasa-jpl/fygen/comm"
)

var (
	// ErrInvalidArgument is generated when a local precondition fails;
	// nothing has been sent to the device
	ErrInvalidArgument = errors.New("fy6900: invalid argument")

	// ErrProtocol is generated when the device replied, but with something
	// outside the protocol: unparsable, out of range, or an unexpected
	// acknowledgement
	ErrProtocol = errors.New("fy6900: protocol violation")
)

const (
	identityPrefix = "FY6900-"

	// the device needs a beat between commands or it drops them
	settleDelay = 100 * time.Millisecond

	defaultRetries = 3
)

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second}
}

// FunctionGenerator is an interface to hardware of the same name.  The
// zero value is not usable; create instances with NewFunctionGenerator.
//
// Channel state is never cached; every get re-queries the wire.  The
// device identity is captured once at Connect and immutable afterwards.
type FunctionGenerator struct {
	dev *comm.Device

	addr string

	// Retries is the number of attempts each operation is given before
	// its last failure is surfaced
	Retries int

	model        string
	serialNumber string
	maxFreq      float64
}

// NewFunctionGenerator creates a new FunctionGenerator instance which will
// connect to the serial port at addr
func NewFunctionGenerator(addr string) *FunctionGenerator {
	return &FunctionGenerator{addr: addr, Retries: defaultRetries}
}

// Connect opens the serial port and performs the identity handshake.
// Idempotent; connecting an already-connected generator does nothing.
func (f *FunctionGenerator) Connect() error {
	if f.dev != nil {
		return nil
	}
	if f.addr == "" {
		return fmt.Errorf("%w: no serial port configured", ErrInvalidArgument)
	}
	dev := comm.NewDevice(makeSerConf(f.addr), settleDelay)
	if err := dev.Open(); err != nil {
		return err
	}
	f.dev = dev
	if err := f.handshake(); err != nil {
		// do not leave a half-initialized connection behind
		f.dev.Close()
		f.dev = nil
		return err
	}
	return nil
}

// handshake identifies the device and derives its maximum frequency
func (f *FunctionGenerator) handshake() error {
	id, err := f.readString("UMO")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, identityPrefix) {
		return fmt.Errorf("%w: unknown device identification %q", ErrProtocol, id)
	}
	pieces := strings.Split(id, "-")
	figure := pieces[1]
	if len(figure) < 2 {
		return fmt.Errorf("%w: no frequency figure in identification %q", ErrProtocol, id)
	}
	// the figure carries a trailing unit letter, e.g. "60M"
	mhz, err := strconv.Atoi(figure[:len(figure)-1])
	if err != nil {
		return fmt.Errorf("%w: failed to parse maximum frequency in identification %q", ErrProtocol, id)
	}
	// TODO: confirm the scale factor against hardware.  The suffix is
	// nominally MHz, which would be 1e6, but the driver has always used
	// 10e6 and range checks are only loosened by it.
	f.maxFreq = float64(mhz) * 10e6

	sn, err := f.readString("UID")
	if err != nil {
		return err
	}
	f.model = id
	f.serialNumber = strings.TrimSpace(sn)
	return nil
}

// Close disables both outputs on a best-effort basis, then releases the
// serial port.  Idempotent; safe to defer in addition to calling
// explicitly.  Errors from the disable exchanges never prevent the port
// from being released; unexpected kinds are logged rather than masked.
func (f *FunctionGenerator) Close() error {
	if f.dev == nil {
		return nil
	}
	for ch := 0; ch < 2; ch++ {
		if err := f.DisableOutput(ch); err != nil && !errors.Is(err, comm.ErrTimeout) {
			log.Printf("fy6900: disabling channel %d during close: %v", ch, err)
		}
	}
	err := f.dev.Close()
	f.dev = nil
	return err
}

// Model returns the identification string captured at Connect
func (f *FunctionGenerator) Model() string {
	return f.model
}

// SerialNumber returns the device serial number captured at Connect
func (f *FunctionGenerator) SerialNumber() string {
	return f.serialNumber
}

// MaxFrequency returns the maximum output frequency of the device in Hz,
// derived from the identification string at Connect
func (f *FunctionGenerator) MaxFrequency() float64 {
	return f.maxFreq
}

// retry runs op up to f.Retries times, returning on the first success and
// surfacing the last failure after exhaustion.  The transport itself
// never retries.
func (f *FunctionGenerator) retry(op func() error) error {
	n := f.Retries
	if n < 1 {
		n = 1
	}
	return backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(n-1)))
}

// exchange performs a single command/response exchange with no retries
func (f *FunctionGenerator) exchange(cmd string) (string, error) {
	if f.dev == nil {
		return "", comm.ErrNotConnected
	}
	resp, err := f.dev.SendRecv(cmd)
	return string(resp), err
}

// readString sends cmd under the retry policy and returns the reply
func (f *FunctionGenerator) readString(cmd string) (string, error) {
	var resp string
	err := f.retry(func() error {
		var err error
		resp, err = f.exchange(cmd)
		return err
	})
	return resp, err
}

// write sends a set command under the retry policy, discarding the echo
// line the device answers with
func (f *FunctionGenerator) write(cmd string) error {
	_, err := f.readString(cmd)
	return err
}

// Raw forwards one protocol line to the device verbatim and returns the
// reply with the terminator stripped
func (f *FunctionGenerator) Raw(cmd string) (string, error) {
	return f.exchange(cmd)
}

// SetWaveform selects the waveform of the given channel, either a built-in
// shape or an arbitrary slot
func (f *FunctionGenerator) SetWaveform(channel int, w Waveform) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	code, err := encodeWaveform(w)
	if err != nil {
		return err
	}
	if w.Arbitrary {
		return f.write(fmt.Sprintf("W%sW%02d", letter, code))
	}
	return f.write(fmt.Sprintf("W%sW%d", letter, code))
}

// GetWaveform returns the waveform selected on the given channel
func (f *FunctionGenerator) GetWaveform(channel int) (Waveform, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return Waveform{}, err
	}
	var w Waveform
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "W")
		if err != nil {
			return err
		}
		code, err := strconv.Atoi(resp)
		if err != nil {
			return fmt.Errorf("%w: waveform response %q is not parsable", ErrProtocol, resp)
		}
		w, err = decodeWaveform(code)
		return err
	})
	return w, err
}

// SetFrequency configures the output frequency of the given channel in Hz
func (f *FunctionGenerator) SetFrequency(channel int, hz float64) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	if hz < 0 || hz > f.maxFreq {
		return fmt.Errorf("%w: frequency %f Hz is outside [0,%f]", ErrInvalidArgument, hz, f.maxFreq)
	}
	return f.write("W" + letter + "F" + encodeFrequency(hz))
}

// GetFrequency returns the output frequency of the given channel in Hz
func (f *FunctionGenerator) GetFrequency(channel int) (float64, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return 0, err
	}
	var hz float64
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "F")
		if err != nil {
			return err
		}
		hz, err = decodeFrequency(resp, f.maxFreq)
		return err
	})
	return hz, err
}

// SetAmplitude configures the output amplitude of the given channel in volts
func (f *FunctionGenerator) SetAmplitude(channel int, volts float64) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	if !amplitudeRange.Contains(volts) {
		return fmt.Errorf("%w: amplitude %f V is outside [0,20]", ErrInvalidArgument, volts)
	}
	return f.write("W" + letter + "A" + encodeAmplitude(volts))
}

// GetAmplitude returns the output amplitude of the given channel in volts
func (f *FunctionGenerator) GetAmplitude(channel int) (float64, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return 0, err
	}
	var volts float64
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "A")
		if err != nil {
			return err
		}
		volts, err = decodeAmplitude(resp)
		return err
	})
	return volts, err
}

// SetOffset configures the DC offset of the given channel in volts
func (f *FunctionGenerator) SetOffset(channel int, volts float64) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	if !offsetRange.Contains(volts) {
		return fmt.Errorf("%w: offset %f V is outside [-20,20]", ErrInvalidArgument, volts)
	}
	return f.write("W" + letter + "O" + encodeOffset(volts))
}

// GetOffset returns the DC offset of the given channel in volts
func (f *FunctionGenerator) GetOffset(channel int) (float64, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return 0, err
	}
	var volts float64
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "O")
		if err != nil {
			return err
		}
		volts, err = decodeOffset(resp)
		return err
	})
	return volts, err
}

// SetDuty configures the duty cycle of the given channel in percent.
// Values above 99.999 are clamped to 99.999; the device cannot produce a
// true 100% duty cycle.
func (f *FunctionGenerator) SetDuty(channel int, pct float64) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	if !dutyRange.Contains(pct) {
		return fmt.Errorf("%w: duty cycle %f%% is outside [0,100]", ErrInvalidArgument, pct)
	}
	return f.write("W" + letter + "D" + encodeDuty(pct))
}

// GetDuty returns the duty cycle of the given channel in percent
func (f *FunctionGenerator) GetDuty(channel int) (float64, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return 0, err
	}
	var pct float64
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "D")
		if err != nil {
			return err
		}
		pct, err = decodeDuty(resp)
		return err
	})
	return pct, err
}

// SetPhase configures the phase of the given channel in degrees.  Any
// input is accepted and normalized into [0,360) by full turns.
func (f *FunctionGenerator) SetPhase(channel int, deg float64) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	return f.write("W" + letter + "P" + encodePhase(deg))
}

// GetPhase returns the phase of the given channel in degrees
func (f *FunctionGenerator) GetPhase(channel int) (float64, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return 0, err
	}
	var deg float64
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "P")
		if err != nil {
			return err
		}
		deg, err = decodePhase(resp)
		return err
	})
	return deg, err
}

// EnableOutput enables the output connector of the given channel
func (f *FunctionGenerator) EnableOutput(channel int) error {
	return f.setOutput(channel, true)
}

// DisableOutput disables the output connector of the given channel
func (f *FunctionGenerator) DisableOutput(channel int) error {
	return f.setOutput(channel, false)
}

func (f *FunctionGenerator) setOutput(channel int, on bool) error {
	letter, err := chanLetter(channel)
	if err != nil {
		return err
	}
	cmd := "W" + letter + "N0"
	if on {
		cmd = "W" + letter + "N1"
	}
	return f.write(cmd)
}

// GetOutput returns true if the given channel is outputting a signal
func (f *FunctionGenerator) GetOutput(channel int) (bool, error) {
	letter, err := chanLetter(channel)
	if err != nil {
		return false, err
	}
	var on bool
	err = f.retry(func() error {
		resp, err := f.exchange("R" + letter + "N")
		if err != nil {
			return err
		}
		on, err = decodeEnabled(resp)
		return err
	})
	return on, err
}
