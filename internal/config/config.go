// Package config defines the pipeline model loaded from JSON or YAML files
// and the Options bag used for operator parameters and trained-state.
//
// Example (trimmed):
//
//	{
//	  "job":    "credit",
//	  "source": { "kind": "file", "format": "csv", "file": { "path": "in.csv" },
//	              "options": { "has_header": true } },
//	  "steps":  [ { "id": "types", "operator": "infer_and_cast_type",
//	                "params": { "handling_policy": "drop" } } ],
//	  "sink":   { "kind": "sqlite", "db": { "dsn": "file:out.db", "table": "credit" } },
//	  "state":  { "kind": "bolt", "path": "state.db" }
//	}
package config

import (
	"encoding/json"
	"strconv"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline for metrics labels and trained-state namespaces.
	Job    string `json:"job" yaml:"job"`
	Source Source `json:"source" yaml:"source"`

	// Steps run in order; each step is one operator invocation.
	Steps   []Step        `json:"steps" yaml:"steps"`
	Sink    Sink          `json:"sink" yaml:"sink"`
	State   State         `json:"state" yaml:"state"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Logging Logging       `json:"logging" yaml:"logging"`
}

// RuntimeConfig controls concurrency and sink batching.
type RuntimeConfig struct {
	// Workers bounds how many inputs are processed at once.
	Workers   int `json:"workers" yaml:"workers"`
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Source identifies where input tables come from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" yaml:"kind"`
	// Format is "csv" or "arrow" (Arrow IPC stream).
	Format string     `json:"format" yaml:"format"`
	File   SourceFile `json:"file" yaml:"file"`
	HTTP   SourceHTTP `json:"http" yaml:"http"`

	// Options is interpreted by the format reader. For CSV:
	//   has_header (bool), comma (string), trim_space (bool)
	Options Options `json:"options" yaml:"options"`
}

// SourceFile lists local inputs. Path, Paths, Glob and List may be combined;
// each resolved file is one independent input.
type SourceFile struct {
	Path  string   `json:"path" yaml:"path"`
	Paths []string `json:"paths" yaml:"paths"`
	Glob  string   `json:"glob" yaml:"glob"`
	// List names a text file with one input path per line.
	List string `json:"list" yaml:"list"`
}

// SourceHTTP lists remote inputs fetched with GET. Each URL is one input.
type SourceHTTP struct {
	URLs    []string          `json:"urls" yaml:"urls"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	// TimeoutSeconds bounds each request; 0 means 30s.
	TimeoutSeconds     int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries         int  `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Step is a single operator invocation.
type Step struct {
	// ID keys the step's trained-state; it defaults to the operator name.
	ID       string  `json:"id" yaml:"id"`
	Operator string  `json:"operator" yaml:"operator"`
	Params   Options `json:"params" yaml:"params"`
}

// Key returns the trained-state key of the step.
func (s Step) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Operator
}

// Sink selects where output tables are written.
type Sink struct {
	// Kind is one of "ipc", "csv", "sqlite", "postgres", "mssql".
	Kind string `json:"kind" yaml:"kind"`
	// Path is the output file or directory for file sinks. With several
	// inputs, outputs are written as <dir>/<input base name>.<ext>.
	Path string   `json:"path" yaml:"path"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the driver connection string (pgx DSN, sqlite file URI or
	// sqlserver:// URL).
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the table from the output schema when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// State selects the trained-state store.
type State struct {
	// Kind is "memory" or "bolt".
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "", "none", "prom" or "datadog".
	Backend string `json:"backend" yaml:"backend"`
	// Addr is the Pushgateway URL or the DogStatsD address.
	Addr string `json:"addr" yaml:"addr"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Options fetches typed values from free-form parameter maps. It performs
// only the coercions needed to read JSON (float64 numbers) and YAML (int
// numbers) uniformly and returns provided defaults otherwise.
type Options map[string]any

// Has reports whether key is present, even with a nil value.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64,
// YAML numbers as int; both are accepted, as are numeric strings.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return def
}

// Float returns the float64 value for key or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// Sub returns the nested bag under key. Missing keys and values that are not
// mappings yield nil. YAML decodes nested mappings as map[string]any as well,
// so both file formats are covered.
func (o Options) Sub(key string) Options {
	switch m := o[key].(type) {
	case Options:
		return m
	case map[string]any:
		return Options(m)
	}
	return nil
}

// Clone returns a shallow copy; nil stays nil.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
