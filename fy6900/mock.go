package fy6900

import (
	"fmt"
	"sync"

	"github.com/nasa-jpl/fygen/comm"
	"github.com/nasa-jpl/fygen/mathx"
)

// Mock is an in-memory FY6900 used when no hardware is attached.  Values
// are stored quantized to the wire resolution, so a set followed by a get
// behaves like the real device.
type Mock struct {
	sync.Mutex
	connected bool
	channels  [2]mockChannel
	slots     [NumSlots][]uint16
}

type mockChannel struct {
	wave     Waveform
	freqHz   float64
	ampV     float64
	offV     float64
	dutyPct  float64
	phaseDeg float64
	on       bool
}

// NewMock creates a new mock generator; addr is accepted for signature
// parity with NewFunctionGenerator and ignored
func NewMock(addr string) *Mock {
	return &Mock{}
}

// Connect marks the mock connected
func (m *Mock) Connect() error {
	m.Lock()
	defer m.Unlock()
	m.connected = true
	return nil
}

// Close marks the mock disconnected and switches both outputs off
func (m *Mock) Close() error {
	m.Lock()
	defer m.Unlock()
	for i := range m.channels {
		m.channels[i].on = false
	}
	m.connected = false
	return nil
}

// Model returns a plausible identification string
func (m *Mock) Model() string {
	return "FY6900-60M"
}

// SerialNumber returns a fixed fake serial number
func (m *Mock) SerialNumber() string {
	return "MOCK00000001"
}

// MaxFrequency mirrors the derivation the real driver performs on the
// model string
func (m *Mock) MaxFrequency() float64 {
	return 60 * 10e6
}

func (m *Mock) check(channel int) error {
	if !m.connected {
		return comm.ErrNotConnected
	}
	_, err := chanLetter(channel)
	return err
}

// SetWaveform selects the waveform of the given channel
func (m *Mock) SetWaveform(channel int, w Waveform) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	// run the selector through the codec so invalid shapes and slots are
	// rejected exactly like the real driver
	code, err := encodeWaveform(w)
	if err != nil {
		return err
	}
	m.channels[channel].wave, _ = decodeWaveform(code)
	return nil
}

// GetWaveform returns the waveform selected on the given channel
func (m *Mock) GetWaveform(channel int) (Waveform, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return Waveform{}, err
	}
	return m.channels[channel].wave, nil
}

// SetFrequency stores the frequency quantized to 1 uHz
func (m *Mock) SetFrequency(channel int, hz float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	if hz < 0 || hz > m.MaxFrequency() {
		return fmt.Errorf("%w: frequency %f Hz is outside [0,%f]", ErrInvalidArgument, hz, m.MaxFrequency())
	}
	m.channels[channel].freqHz = mathx.Round(hz, 1e-6)
	return nil
}

// GetFrequency returns the stored frequency in Hz
func (m *Mock) GetFrequency(channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return 0, err
	}
	return m.channels[channel].freqHz, nil
}

// SetAmplitude stores the amplitude quantized to 100 uV
func (m *Mock) SetAmplitude(channel int, volts float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	if !amplitudeRange.Contains(volts) {
		return fmt.Errorf("%w: amplitude %f V is outside [0,20]", ErrInvalidArgument, volts)
	}
	m.channels[channel].ampV = mathx.Round(volts, 1e-4)
	return nil
}

// GetAmplitude returns the stored amplitude in volts
func (m *Mock) GetAmplitude(channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return 0, err
	}
	return m.channels[channel].ampV, nil
}

// SetOffset stores the offset quantized to 1 mV
func (m *Mock) SetOffset(channel int, volts float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	if !offsetRange.Contains(volts) {
		return fmt.Errorf("%w: offset %f V is outside [-20,20]", ErrInvalidArgument, volts)
	}
	m.channels[channel].offV = mathx.Round(volts, 1e-3)
	return nil
}

// GetOffset returns the stored offset in volts
func (m *Mock) GetOffset(channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return 0, err
	}
	return m.channels[channel].offV, nil
}

// SetDuty stores the duty cycle with the device's clamp and quantization
func (m *Mock) SetDuty(channel int, pct float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	if !dutyRange.Contains(pct) {
		return fmt.Errorf("%w: duty cycle %f%% is outside [0,100]", ErrInvalidArgument, pct)
	}
	if pct > dutyCeiling {
		pct = dutyCeiling
	}
	m.channels[channel].dutyPct = mathx.Round(pct, 1e-3)
	return nil
}

// GetDuty returns the stored duty cycle in percent
func (m *Mock) GetDuty(channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return 0, err
	}
	return m.channels[channel].dutyPct, nil
}

// SetPhase stores the phase normalized into [0,360) and quantized
func (m *Mock) SetPhase(channel int, deg float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	m.channels[channel].phaseDeg = mathx.Round(normalizePhase(deg), 1e-3)
	return nil
}

// GetPhase returns the stored phase in degrees
func (m *Mock) GetPhase(channel int) (float64, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return 0, err
	}
	return m.channels[channel].phaseDeg, nil
}

// EnableOutput switches the given channel on
func (m *Mock) EnableOutput(channel int) error {
	return m.setOutput(channel, true)
}

// DisableOutput switches the given channel off
func (m *Mock) DisableOutput(channel int) error {
	return m.setOutput(channel, false)
}

func (m *Mock) setOutput(channel int, on bool) error {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return err
	}
	m.channels[channel].on = on
	return nil
}

// GetOutput returns true if the given channel is switched on
func (m *Mock) GetOutput(channel int) (bool, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.check(channel); err != nil {
		return false, err
	}
	return m.channels[channel].on, nil
}

// UploadWaveform stores a sample buffer in a slot with the same
// preconditions the real upload has
func (m *Mock) UploadWaveform(slot int, samples []uint16, normalize bool) error {
	m.Lock()
	defer m.Unlock()
	if !m.connected {
		return comm.ErrNotConnected
	}
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("%w: slot %d outside [0,%d]", ErrInvalidArgument, slot, NumSlots-1)
	}
	if len(samples) != SampleCount {
		return fmt.Errorf("%w: waveform buffers are exactly %d samples, got %d", ErrInvalidArgument, SampleCount, len(samples))
	}
	if normalize {
		samples = normalizeSamples(samples)
	}
	stored := make([]uint16, len(samples))
	for i, s := range samples {
		if s > SampleMax {
			return fmt.Errorf("%w: sample %d is %d, above the 14-bit DAC maximum %d", ErrInvalidArgument, i, s, SampleMax)
		}
		stored[i] = s
	}
	m.slots[slot] = stored
	return nil
}

// Slot returns the samples stored in a slot, or nil if nothing has been
// uploaded there
func (m *Mock) Slot(slot int) []uint16 {
	m.Lock()
	defer m.Unlock()
	if slot < 0 || slot >= NumSlots {
		return nil
	}
	return m.slots[slot]
}
