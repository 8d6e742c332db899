package fy6900

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tarm/serial"

	"github.com/nasa-jpl/fygen/comm"
)

// uploadConn replies to the slot select then goes quiet, like the real
// device while it commits the slot
type uploadConn struct {
	ack string
	rx  bytes.Buffer
	tx  bytes.Buffer
}

func (u *uploadConn) Read(p []byte) (int, error) {
	if u.rx.Len() == 0 {
		return 0, io.EOF
	}
	return u.rx.Read(p[:1])
}

func (u *uploadConn) Write(p []byte) (int, error) {
	u.tx.Write(p)
	if strings.HasPrefix(string(p), "DDS_WAVE") && u.ack != "" {
		u.rx.WriteString(u.ack)
		u.ack = ""
	}
	return len(p), nil
}

func (u *uploadConn) Close() error { return nil }

func uploadGenerator(conn io.ReadWriteCloser) *FunctionGenerator {
	f := NewFunctionGenerator("sim")
	d := comm.NewDevice(&serial.Config{Name: "sim"}, time.Millisecond)
	d.Conn = conn
	f.dev = d
	return f
}

func rampSamples() []uint16 {
	samples := make([]uint16, SampleCount)
	for i := range samples {
		samples[i] = uint16(i * 2)
	}
	return samples
}

func TestUploadWireImage(t *testing.T) {
	conn := &uploadConn{ack: "W\n"}
	f := uploadGenerator(conn)
	samples := rampSamples()
	err := f.UploadWaveform(5, samples, false)
	if err != nil {
		t.Fatalf("upload errored: %v", err)
	}
	wire := conn.tx.Bytes()
	// slots are 1-indexed on the wire
	prefix := []byte("DDS_WAVE06\n")
	if !bytes.HasPrefix(wire, prefix) {
		t.Fatalf("expected slot select prefix, got %q", wire[:16])
	}
	body := wire[len(prefix):]
	if len(body) < 2*SampleCount {
		t.Fatalf("payload truncated, got %d bytes", len(body))
	}
	for i, s := range samples {
		got := binary.BigEndian.Uint16(body[2*i:])
		if got != s {
			t.Fatalf("sample %d: expected %d on the wire, got %d", i, s, got)
		}
	}
	// the settle probes follow the payload, their timeouts swallowed
	tail := string(body[2*SampleCount:])
	if tail != strings.Repeat("UMO\n", settleProbes) {
		t.Errorf("expected %d settle probes after the payload, got %q", settleProbes, tail)
	}
}

func TestUploadNormalizeConstantBufferIsAllZeros(t *testing.T) {
	conn := &uploadConn{ack: "W\n"}
	f := uploadGenerator(conn)
	samples := make([]uint16, SampleCount)
	for i := range samples {
		samples[i] = 5
	}
	err := f.UploadWaveform(0, samples, true)
	if err != nil {
		t.Fatalf("upload errored: %v", err)
	}
	wire := conn.tx.Bytes()
	body := wire[len("DDS_WAVE01\n"):]
	for i := 0; i < SampleCount; i++ {
		if got := binary.BigEndian.Uint16(body[2*i:]); got != 0 {
			t.Fatalf("sample %d: expected 0 after degenerate normalization, got %d", i, got)
		}
	}
	// the caller's buffer is untouched
	if samples[0] != 5 {
		t.Errorf("normalization must not mutate the input, got %d", samples[0])
	}
}

func TestUploadNormalizeFullScale(t *testing.T) {
	samples := make([]uint16, SampleCount)
	for i := range samples {
		samples[i] = uint16(1000 + i%4096)
	}
	out := normalizeSamples(samples)
	var mi, mx uint16 = SampleMax, 0
	for _, s := range out {
		if s < mi {
			mi = s
		}
		if s > mx {
			mx = s
		}
	}
	if mi != 0 || mx != SampleMax {
		t.Errorf("expected normalized range [0,%d], got [%d,%d]", SampleMax, mi, mx)
	}
}

func TestUploadRejectsBeforeIO(t *testing.T) {
	conn := &uploadConn{ack: "W\n"}
	f := uploadGenerator(conn)
	cases := []struct {
		slot    int
		samples []uint16
	}{
		{-1, rampSamples()},
		{64, rampSamples()},
		{0, make([]uint16, 100)},
		{0, make([]uint16, SampleCount+1)},
		{0, nil},
	}
	for i, tc := range cases {
		err := f.UploadWaveform(tc.slot, tc.samples, false)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("case %d: expected invalid argument, got %v", i, err)
		}
	}
	// overrange samples without normalization are also rejected locally
	hot := rampSamples()
	hot[123] = SampleMax + 1
	if err := f.UploadWaveform(0, hot, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected overrange sample to be rejected, got %v", err)
	}
	if conn.tx.Len() != 0 {
		t.Fatalf("rejected uploads must not reach the wire, %d bytes sent", conn.tx.Len())
	}
}

func TestUploadUnexpectedAckAbortsTransfer(t *testing.T) {
	conn := &uploadConn{ack: "E\n"}
	f := uploadGenerator(conn)
	err := f.UploadWaveform(0, rampSamples(), false)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	if conn.tx.Len() != len("DDS_WAVE01\n") {
		t.Fatalf("no payload may follow a bad acknowledgement, %d bytes sent", conn.tx.Len())
	}
}

func TestUploadNotConnected(t *testing.T) {
	f := NewFunctionGenerator("/dev/null")
	err := f.UploadWaveform(0, rampSamples(), false)
	if !errors.Is(err, comm.ErrNotConnected) {
		t.Fatalf("expected not connected, got %v", err)
	}
}
