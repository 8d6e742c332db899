package fy6900

import (
	"errors"
	"testing"
)

func TestShapeCodeRoundTripExhaustive(t *testing.T) {
	for shape, code := range shapeCodes {
		w, err := decodeWaveform(code)
		if err != nil {
			t.Errorf("shape %v (code %d): decode errored: %v", shape, code, err)
			continue
		}
		if w.Arbitrary || w.Shape != shape {
			t.Errorf("code %d decoded to %+v, expected shape %v", code, w, shape)
		}
		back, err := encodeWaveform(w)
		if err != nil || back != code {
			t.Errorf("shape %v re-encoded to %d, expected %d (%v)", shape, back, code, err)
		}
	}
}

func TestCodeShapeRoundTripExhaustive(t *testing.T) {
	for code, shape := range codeShapes {
		got, ok := shapeCodes[shape]
		if !ok || got != code {
			t.Errorf("table asymmetry: code %d -> shape %v -> code %d", code, shape, got)
		}
	}
	if len(codeShapes) != len(shapeCodes) {
		t.Errorf("table sizes differ: %d codes, %d shapes", len(codeShapes), len(shapeCodes))
	}
}

func TestShapeNameRoundTripExhaustive(t *testing.T) {
	for shape, name := range shapeNames {
		parsed, err := ParseShape(name)
		if err != nil || parsed != shape {
			t.Errorf("name %q parsed to %v, expected %v (%v)", name, parsed, shape, err)
		}
		if shape.String() != name {
			t.Errorf("shape %d stringified to %q, expected %q", int(shape), shape.String(), name)
		}
	}
	if len(shapeNames) != len(shapeCodes) {
		t.Errorf("every coded shape needs a name: %d names, %d codes", len(shapeNames), len(shapeCodes))
	}
}

func TestArbitrarySlotRoundTrip(t *testing.T) {
	for slot := 0; slot < NumSlots; slot++ {
		code, err := encodeWaveform(ArbitraryWaveform(slot))
		if err != nil {
			t.Fatalf("slot %d: encode errored: %v", slot, err)
		}
		w, err := decodeWaveform(code)
		if err != nil {
			t.Fatalf("slot %d (code %d): decode errored: %v", slot, code, err)
		}
		if !w.Arbitrary || w.Slot != slot {
			t.Errorf("slot %d round tripped to %+v", slot, w)
		}
	}
}

func TestWaveformGapCodesRejected(t *testing.T) {
	for _, code := range []int{26, 29, 32, -1, 100, 255} {
		if _, err := decodeWaveform(code); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected code %d to be a protocol violation, got %v", code, err)
		}
	}
}

func TestEncodeWaveformRejectsBadInput(t *testing.T) {
	if _, err := encodeWaveform(ArbitraryWaveform(64)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected slot 64 to be rejected, got %v", err)
	}
	if _, err := encodeWaveform(ArbitraryWaveform(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected slot -1 to be rejected, got %v", err)
	}
	if _, err := encodeWaveform(Waveform{Shape: Shape(200)}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected unknown shape to be rejected, got %v", err)
	}
}
