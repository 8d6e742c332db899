package fy6900

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/fygen/generichttp"
)

func httpHarness(t *testing.T) (*httptest.Server, *Mock) {
	t.Helper()
	m := connectedMock(t)
	wrapper := NewHTTPWrapper(m)
	r := chi.NewRouter()
	wrapper.RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		t.Fatalf("could not encode request body: %v", err)
	}
	resp, err := http.Post(url, "application/json", buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestHTTPID(t *testing.T) {
	srv, m := httpHarness(t)
	resp, err := http.Get(srv.URL + "/id")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	id := idT{}
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		t.Fatalf("could not decode identity: %v", err)
	}
	if id.Model != m.Model() || id.SerialNumber != m.SerialNumber() || id.MaxFrequencyHz != m.MaxFrequency() {
		t.Errorf("identity mismatch: %+v", id)
	}
}

func TestHTTPFloatRoundTrip(t *testing.T) {
	srv, m := httpHarness(t)
	resp := postJSON(t, srv.URL+"/chan/0/frequency", generichttp.FloatT{F64: 1234.5})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on set, got %d", resp.StatusCode)
	}
	stored, err := m.GetFrequency(0)
	if err != nil || stored != 1234.5 {
		t.Fatalf("expected 1234.5 Hz stored, got %v, %v", stored, err)
	}
	resp, err = http.Get(srv.URL + "/chan/0/frequency")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	f := generichttp.FloatT{}
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("could not decode reply: %v", err)
	}
	if f.F64 != 1234.5 {
		t.Errorf("expected 1234.5 back, got %v", f.F64)
	}
}

func TestHTTPBadInputsAre400(t *testing.T) {
	srv, _ := httpHarness(t)
	cases := []struct {
		name string
		path string
		body interface{}
	}{
		{"amplitude over range", "/chan/0/amplitude", generichttp.FloatT{F64: 25}},
		{"offset under range", "/chan/1/offset", generichttp.FloatT{F64: -30}},
		{"channel out of range", "/chan/2/frequency", generichttp.FloatT{F64: 100}},
		{"unknown shape", "/chan/0/waveform", waveformT{Shape: "tetrahedral"}},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+tc.path, tc.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestHTTPWaveformRoundTrip(t *testing.T) {
	srv, m := httpHarness(t)
	resp := postJSON(t, srv.URL+"/chan/1/waveform", waveformT{Shape: "square"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on shape set, got %d", resp.StatusCode)
	}
	wf, err := m.GetWaveform(1)
	if err != nil || wf.Arbitrary || wf.Shape != Square {
		t.Fatalf("expected square selected, got %+v, %v", wf, err)
	}
	slot := 7
	resp = postJSON(t, srv.URL+"/chan/1/waveform", waveformT{Slot: &slot})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on slot set, got %d", resp.StatusCode)
	}
	resp, err = http.Get(srv.URL + "/chan/1/waveform")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body := waveformT{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("could not decode reply: %v", err)
	}
	if body.Slot == nil || *body.Slot != slot || body.Shape != "" {
		t.Errorf("expected slot %d selector, got %+v", slot, body)
	}
}

func TestHTTPOutputRoundTrip(t *testing.T) {
	srv, m := httpHarness(t)
	resp := postJSON(t, srv.URL+"/chan/0/output", generichttp.BoolT{Bool: true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on enable, got %d", resp.StatusCode)
	}
	on, err := m.GetOutput(0)
	if err != nil || !on {
		t.Fatalf("expected output on, got %v, %v", on, err)
	}
	resp, err = http.Get(srv.URL + "/chan/0/output")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	b := generichttp.BoolT{}
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("could not decode reply: %v", err)
	}
	if !b.Bool {
		t.Error("expected output reported on")
	}
	resp = postJSON(t, srv.URL+"/chan/0/output", generichttp.BoolT{Bool: false})
	resp.Body.Close()
	if on, _ := m.GetOutput(0); on {
		t.Error("expected output off after disable")
	}
}

func TestHTTPUpload(t *testing.T) {
	srv, m := httpHarness(t)
	samples := make([]uint16, SampleCount)
	for i := range samples {
		samples[i] = uint16(i % (SampleMax + 1))
	}
	resp := postJSON(t, srv.URL+"/slot/9", uploadT{Samples: samples})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on upload, got %d", resp.StatusCode)
	}
	stored := m.Slot(9)
	if len(stored) != SampleCount || stored[100] != samples[100] {
		t.Errorf("expected slot 9 to hold the uploaded buffer")
	}
	resp = postJSON(t, srv.URL+"/slot/64", uploadT{Samples: samples})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for slot 64, got %d", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/slot/0", uploadT{Samples: samples[:4]})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a short buffer, got %d", resp.StatusCode)
	}
}

func TestHTTPEndpointsEnumerated(t *testing.T) {
	m := NewMock("")
	wrapper := NewHTTPWrapper(m)
	endpoints := wrapper.RT().Endpoints()
	if len(endpoints) != len(wrapper.RT()) {
		t.Fatalf("expected %d endpoints, got %d", len(wrapper.RT()), len(endpoints))
	}
	seen := map[string]bool{}
	for _, e := range endpoints {
		seen[e] = true
	}
	for _, want := range []string{"GET /id", "POST /slot/{slot}", "GET /chan/{ch}/frequency"} {
		if !seen[want] {
			t.Errorf("endpoint list missing %q", want)
		}
	}
}
