package fy6900

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/fygen/generichttp"
)

// Generator is the behavior the HTTP layer exposes; it is satisfied by
// both FunctionGenerator and Mock
type Generator interface {
	Connect() error
	Close() error

	Model() string
	SerialNumber() string
	MaxFrequency() float64

	SetWaveform(channel int, w Waveform) error
	GetWaveform(channel int) (Waveform, error)
	SetFrequency(channel int, hz float64) error
	GetFrequency(channel int) (float64, error)
	SetAmplitude(channel int, volts float64) error
	GetAmplitude(channel int) (float64, error)
	SetOffset(channel int, volts float64) error
	GetOffset(channel int) (float64, error)
	SetDuty(channel int, pct float64) error
	GetDuty(channel int) (float64, error)
	SetPhase(channel int, deg float64) error
	GetPhase(channel int) (float64, error)
	EnableOutput(channel int) error
	DisableOutput(channel int) error
	GetOutput(channel int) (bool, error)

	UploadWaveform(slot int, samples []uint16, normalize bool) error
}

// statusFor maps driver errors to HTTP status codes; bad inputs are the
// client's fault, everything else is the server's
func statusFor(err error) int {
	if errors.Is(err, ErrInvalidArgument) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// channelParam extracts the {ch} URL parameter
func channelParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "ch"))
}

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface
type HTTPWrapper struct {
	// Gen is the underlying generator that is wrapped
	Gen Generator

	// RouteTable maps method-paths to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(g Generator) HTTPWrapper {
	w := HTTPWrapper{Gen: g}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/id"}: w.ID,

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/waveform"}:  w.GetWaveform,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/waveform"}: w.SetWaveform,

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/frequency"}:  w.getFloat(Generator.GetFrequency),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/frequency"}: w.setFloat(Generator.SetFrequency),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/amplitude"}:  w.getFloat(Generator.GetAmplitude),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/amplitude"}: w.setFloat(Generator.SetAmplitude),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/offset"}:  w.getFloat(Generator.GetOffset),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/offset"}: w.setFloat(Generator.SetOffset),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/duty"}:  w.getFloat(Generator.GetDuty),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/duty"}: w.setFloat(Generator.SetDuty),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/phase"}:  w.getFloat(Generator.GetPhase),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/phase"}: w.setFloat(Generator.SetPhase),

		generichttp.MethodPath{Method: http.MethodGet, Path: "/chan/{ch}/output"}:  w.GetOutput,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/chan/{ch}/output"}: w.SetOutput,

		generichttp.MethodPath{Method: http.MethodPost, Path: "/slot/{slot}"}: w.Upload,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// idT is the JSON body of the identity route
type idT struct {
	Model          string  `json:"model"`
	SerialNumber   string  `json:"serialNumber"`
	MaxFrequencyHz float64 `json:"maxFrequencyHz"`
}

// ID returns the identity captured at connect time as JSON
func (h HTTPWrapper) ID(w http.ResponseWriter, r *http.Request) {
	id := idT{
		Model:          h.Gen.Model(),
		SerialNumber:   h.Gen.SerialNumber(),
		MaxFrequencyHz: h.Gen.MaxFrequency()}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// getFloat adapts a per-channel float getter into a handler
func (h HTTPWrapper) getFloat(fcn func(Generator, int) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := channelParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, err := fcn(h.Gen, ch)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		hp := generichttp.HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// setFloat adapts a per-channel float setter into a handler consuming
// json {'f64': value}
func (h HTTPWrapper) setFloat(fcn func(Generator, int, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := channelParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f := generichttp.FloatT{}
		err = json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(h.Gen, ch, f.F64)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// waveformT is the JSON representation of a waveform selector; exactly one
// of shape or slot is present
type waveformT struct {
	Shape string `json:"shape,omitempty"`
	Slot  *int   `json:"slot,omitempty"`
}

// GetWaveform returns the waveform selector of a channel as JSON
func (h HTTPWrapper) GetWaveform(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	wf, err := h.Gen.GetWaveform(ch)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	body := waveformT{}
	if wf.Arbitrary {
		slot := wf.Slot
		body.Slot = &slot
	} else {
		body.Shape = wf.Shape.String()
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SetWaveform selects a waveform from JSON {"shape": "sine"} or {"slot": 3}
func (h HTTPWrapper) SetWaveform(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body := waveformT{}
	err = json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var wf Waveform
	if body.Slot != nil {
		wf = ArbitraryWaveform(*body.Slot)
	} else {
		shape, err := ParseShape(body.Shape)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wf = Waveform{Shape: shape}
	}
	err = h.Gen.SetWaveform(ch, wf)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetOutput returns the output state of a channel as json {'bool': value}
func (h HTTPWrapper) GetOutput(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	on, err := h.Gen.GetOutput(ch)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	hp := generichttp.HumanPayload{T: types.Bool, Bool: on}
	hp.EncodeAndRespond(w, r)
}

// SetOutput enables or disables a channel from json {'bool': value}
func (h HTTPWrapper) SetOutput(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b := generichttp.BoolT{}
	err = json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Bool {
		err = h.Gen.EnableOutput(ch)
	} else {
		err = h.Gen.DisableOutput(ch)
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// uploadT is the JSON body of the slot upload route
type uploadT struct {
	Samples   []uint16 `json:"samples"`
	Normalize bool     `json:"normalize"`
}

// Upload transfers a sample buffer into the slot named by the URL
func (h HTTPWrapper) Upload(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body := uploadT{}
	err = json.NewDecoder(r.Body).Decode(&body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Gen.UploadWaveform(slot, body.Samples, body.Normalize)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
