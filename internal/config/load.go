package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML; everything else as JSON.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return DecodeJSON(f)
	}
}

// DecodeJSON decodes a pipeline from JSON. Unknown fields are rejected.
func DecodeJSON(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	p.normalize()
	return p, nil
}

// DecodeYAML decodes a pipeline from YAML. Unknown fields are rejected.
func DecodeYAML(r io.Reader) (Pipeline, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	p.normalize()
	return p, nil
}

// normalize replaces nil option bags with empty ones so callers never need
// to nil-check them.
func (p *Pipeline) normalize() {
	if p.Source.Options == nil {
		p.Source.Options = Options{}
	}
	for i := range p.Steps {
		if p.Steps[i].Params == nil {
			p.Steps[i].Params = Options{}
		}
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvSinkDSN        = "ETL_SINK_DSN"
	EnvStatePath      = "ETL_STATE_PATH"
	EnvWorkers        = "ETL_WORKERS"
	EnvLogLevel       = "ETL_LOG_LEVEL"
	EnvLogFormat      = "ETL_LOG_FORMAT"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDogStatsDAddr  = "DOGSTATSD_ADDR"
)

// ApplyEnv overrides pipeline settings from environment variables. getenv is
// usually os.Getenv; empty values leave the pipeline unchanged.
func ApplyEnv(p *Pipeline, getenv func(string) string) error {
	if v := getenv(EnvSinkDSN); v != "" {
		p.Sink.DB.DSN = v
	}
	if v := getenv(EnvStatePath); v != "" {
		p.State.Path = v
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		p.Runtime.Workers = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		p.Logging.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		p.Logging.Format = v
	}
	if v := getenv(EnvMetricsBackend); v != "" {
		p.Metrics.Backend = v
	}
	switch p.Metrics.Backend {
	case "prom", "pushgateway":
		if v := getenv(EnvPushgatewayURL); v != "" {
			p.Metrics.Addr = v
		}
	case "datadog":
		if v := getenv(EnvDogStatsDAddr); v != "" {
			p.Metrics.Addr = v
		}
	}
	return nil
}
