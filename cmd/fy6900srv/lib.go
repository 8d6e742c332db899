package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-yaml/yaml"

	"github.com/nasa-jpl/fygen/fy6900"
	"github.com/nasa-jpl/fygen/generichttp"
	"github.com/nasa-jpl/fygen/generichttp/ascii"
	"github.com/nasa-jpl/fygen/server/middleware/locker"
)

// ObjSetup holds the args for one generator node
type ObjSetup struct {
	// Addr holds the filesystem address of the serial port,
	// e.g. /dev/ttyUSB0 for a generator on a USB cable
	Addr string `yaml:"Addr"`

	// Endpoint is the path the routes from this device will be served on,
	// ex. Endpoint="/omc/fg" will produce routes of /omc/fg/chan/0/frequency, etc.
	Endpoint string `yaml:"Endpoint"`

	// Retries overrides the per-operation attempt count when nonzero
	Retries int `yaml:"Retries"`
}

// Config is a struct that holds the initialization parameters for the
// server.  It is to be populated by a yaml/unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock replaces every generator with an in-memory one
	Mock bool `yaml:"Mock"`

	// Nodes is the list of generators to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// BuildMux connects every generator in the config and binds its routes to
// a chi mux.  The returned closers release the generators; the caller is
// responsible for invoking them on shutdown.
func BuildMux(c Config) (chi.Router, []io.Closer) {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}
	var closers []io.Closer

	for _, node := range c.Nodes {
		var gen fy6900.Generator
		if c.Mock {
			gen = fy6900.NewMock(node.Addr)
		} else {
			g := fy6900.NewFunctionGenerator(node.Addr)
			if node.Retries > 0 {
				g.Retries = node.Retries
			}
			gen = g
		}
		if err := gen.Connect(); err != nil {
			log.Fatalf("connecting to generator at %s: %v", node.Addr, err)
		}
		closers = append(closers, gen)

		httper := fy6900.NewHTTPWrapper(gen)
		if rawer, ok := gen.(ascii.RawCommunicator); ok {
			ascii.InjectRawComm(httper.RT(), rawer)
		}

		hndlS := generichttp.SubMuxSanitize(node.Endpoint)
		supergraph[hndlS] = httper.RT().Endpoints()

		lock := locker.New()
		locker.Inject(httper, lock)

		r := chi.NewRouter()
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, closers
}
