package fy6900

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nasa-jpl/fygen/comm"
)

const (
	// SampleCount is the exact length of a user waveform buffer
	SampleCount = 8192

	// SampleMax is the largest value the 14-bit DDS DAC accepts
	SampleMax = 16383

	// the single byte the device answers a slot select with when it is
	// ready to receive the binary payload
	uploadAck = 'W'

	// number of dummy identity queries issued after the payload while the
	// device commits the slot; their timeouts are expected
	settleProbes = 3
)

// normalizeSamples linearly rescales a copy of samples so the smallest
// value maps to 0 and the largest to SampleMax.  A constant buffer has
// zero range, which is treated as 1, degenerating to all zeros.
func normalizeSamples(samples []uint16) []uint16 {
	mi, mx := samples[0], samples[0]
	for _, s := range samples {
		if s < mi {
			mi = s
		}
		if s > mx {
			mx = s
		}
	}
	rng := float64(mx) - float64(mi)
	if rng == 0 {
		rng = 1
	}
	out := make([]uint16, len(samples))
	for i, s := range samples {
		out[i] = uint16(float64(s-mi) / rng * SampleMax)
	}
	return out
}

// UploadWaveform transfers a sample buffer into one of the generator's
// user slots.  The buffer must be exactly SampleCount samples, each within
// the DAC range after optional normalization; violations are rejected
// before any byte is sent.
//
// Upload is a single attempt: a failure partway through the stream leaves
// the slot contents unknown, and recovery is a fresh complete upload, so
// the retry policy deliberately does not apply here.
func (f *FunctionGenerator) UploadWaveform(slot int, samples []uint16, normalize bool) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("%w: slot %d outside [0,%d]", ErrInvalidArgument, slot, NumSlots-1)
	}
	if len(samples) != SampleCount {
		return fmt.Errorf("%w: waveform buffers are exactly %d samples, got %d", ErrInvalidArgument, SampleCount, len(samples))
	}
	if f.dev == nil {
		return comm.ErrNotConnected
	}
	if normalize {
		samples = normalizeSamples(samples)
	}
	for i, s := range samples {
		if s > SampleMax {
			return fmt.Errorf("%w: sample %d is %d, above the 14-bit DAC maximum %d", ErrInvalidArgument, i, s, SampleMax)
		}
	}

	// slots are 1-indexed on the wire
	resp, err := f.dev.SendRecv(fmt.Sprintf("DDS_WAVE%02d", slot+1))
	if err != nil {
		return err
	}
	if len(resp) != 1 || resp[0] != uploadAck {
		return fmt.Errorf("%w: unexpected acknowledgement %q to slot %d select", ErrProtocol, resp, slot)
	}

	buf := make([]byte, 2*SampleCount)
	for i, s := range samples {
		binary.BigEndian.PutUint16(buf[2*i:], s)
	}
	if err := f.dev.WriteRaw(buf); err != nil {
		return err
	}

	// the generator goes quiet while it stores the buffer; poke it with
	// identity queries, swallowing only the expected timeouts
	for i := 0; i < settleProbes; i++ {
		_, err := f.dev.SendRecv("UMO")
		if err != nil && !errors.Is(err, comm.ErrTimeout) {
			return err
		}
	}
	return nil
}
