package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Pipeline decoding tests
// -----------------------------------------------------------------------------
//
// JSON and YAML forms of the same pipeline must decode to the same struct
// graph, and step parameters must read back identically through Options.

const pipelineJSON = `{
  "job": "credit",
  "source": {
    "kind": "file", "format": "csv",
    "file": { "path": "in.csv", "paths": ["a.csv", "b.csv"] },
    "options": { "has_header": true, "comma": ";" }
  },
  "steps": [
    { "id": "types", "operator": "infer_and_cast_type",
      "params": { "inference_sample_size": 500, "handling_policy": "drop" } },
    { "operator": "manage_columns",
      "params": { "operator": "Drop column", "drop_column_parameters": { "column_to_drop": "x" } } }
  ],
  "sink": { "kind": "sqlite", "db": { "dsn": "file:out.db", "table": "credit", "auto_create_table": true } },
  "state": { "kind": "bolt", "path": "state.db" },
  "runtime": { "workers": 4, "batch_size": 5000 }
}`

const pipelineYAML = `
job: credit
source:
  kind: file
  format: csv
  file:
    path: in.csv
    paths: [a.csv, b.csv]
  options:
    has_header: true
    comma: ";"
steps:
  - id: types
    operator: infer_and_cast_type
    params:
      inference_sample_size: 500
      handling_policy: drop
  - operator: manage_columns
    params:
      operator: Drop column
      drop_column_parameters:
        column_to_drop: x
sink:
  kind: sqlite
  db:
    dsn: file:out.db
    table: credit
    auto_create_table: true
state:
  kind: bolt
  path: state.db
runtime:
  workers: 4
  batch_size: 5000
`

func checkPipeline(t *testing.T, p Pipeline) {
	t.Helper()

	if p.Job != "credit" {
		t.Fatalf("job = %q, want credit", p.Job)
	}
	if p.Source.Kind != "file" || p.Source.File.Path != "in.csv" {
		t.Fatalf("source decoded = %#v", p.Source)
	}
	if !reflect.DeepEqual(p.Source.File.Paths, []string{"a.csv", "b.csv"}) {
		t.Fatalf("source.file.paths = %#v", p.Source.File.Paths)
	}
	if got := p.Source.Options.Rune("comma", ','); got != ';' {
		t.Fatalf("source.options.comma = %q, want ';'", got)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(p.Steps))
	}
	if got := p.Steps[0].Params.Int("inference_sample_size", 0); got != 500 {
		t.Fatalf("inference_sample_size = %d, want 500", got)
	}
	if got := p.Steps[1].Key(); got != "manage_columns" {
		t.Fatalf("steps[1].Key() = %q, want operator name", got)
	}
	sub := p.Steps[1].Params.Sub("drop_column_parameters")
	if sub.String("column_to_drop", "") != "x" {
		t.Fatalf("drop_column_parameters = %#v", sub)
	}
	if p.Sink.Kind != "sqlite" || p.Sink.DB.Table != "credit" || !p.Sink.DB.AutoCreateTable {
		t.Fatalf("sink decoded = %#v", p.Sink)
	}
	if p.State.Kind != "bolt" || p.State.Path != "state.db" {
		t.Fatalf("state decoded = %#v", p.State)
	}
	if p.Runtime.Workers != 4 || p.Runtime.BatchSize != 5000 {
		t.Fatalf("runtime decoded = %#v", p.Runtime)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	p, err := DecodeJSON(strings.NewReader(pipelineJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	checkPipeline(t, p)
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	p, err := DecodeYAML(strings.NewReader(pipelineYAML))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	checkPipeline(t, p)
}

func TestDecode_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	if _, err := DecodeJSON(strings.NewReader(`{"job":"x","parser":{}}`)); err == nil {
		t.Fatalf("DecodeJSON accepted unknown field")
	}
	if _, err := DecodeYAML(strings.NewReader("job: x\nparser: {}\n")); err == nil {
		t.Fatalf("DecodeYAML accepted unknown field")
	}
}

func TestLoad_ByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	js := filepath.Join(dir, "p.json")
	ym := filepath.Join(dir, "p.yml")
	if err := os.WriteFile(js, []byte(pipelineJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ym, []byte(pipelineYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{js, ym} {
		p, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		checkPipeline(t, p)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Load(missing) returned nil error")
	}
}

func TestDecode_NilParamsBecomeEmpty(t *testing.T) {
	t.Parallel()

	p, err := DecodeYAML(strings.NewReader("job: x\nsteps:\n  - operator: infer_and_cast_type\n"))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if p.Steps[0].Params == nil || p.Source.Options == nil {
		t.Fatalf("nil option bags after decode: %#v", p)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvSinkDSN:        "postgres://u@h/db",
		EnvWorkers:        "8",
		EnvLogLevel:       "debug",
		EnvMetricsBackend: "datadog",
		EnvDogStatsDAddr:  "127.0.0.1:8125",
		EnvPushgatewayURL: "http://ignored:9091",
	}
	var p Pipeline
	if err := ApplyEnv(&p, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if p.Sink.DB.DSN != "postgres://u@h/db" || p.Runtime.Workers != 8 || p.Logging.Level != "debug" {
		t.Fatalf("ApplyEnv result = %#v", p)
	}
	if p.Metrics.Backend != "datadog" || p.Metrics.Addr != "127.0.0.1:8125" {
		t.Fatalf("metrics = %#v", p.Metrics)
	}

	env[EnvWorkers] = "many"
	if err := ApplyEnv(&p, func(k string) string { return env[k] }); err == nil {
		t.Fatalf("ApplyEnv accepted non-numeric %s", EnvWorkers)
	}
}

// -----------------------------------------------------------------------------
// Options helper tests
// -----------------------------------------------------------------------------

func TestOptions_NumbersFromAnyDecoder(t *testing.T) {
	t.Parallel()

	o := Options{
		"json": float64(42),
		"yaml": 42,
		"num":  json.Number("42"),
		"str":  "42",
		"f":    1.5,
		"bad":  "x",
	}
	for _, k := range []string{"json", "yaml", "num", "str"} {
		if got := o.Int(k, 0); got != 42 {
			t.Fatalf("Int(%s) = %d, want 42", k, got)
		}
	}
	if got := o.Int("bad", 7); got != 7 {
		t.Fatalf("Int(bad) = %d, want default", got)
	}
	if got := o.Float("f", 0); got != 1.5 {
		t.Fatalf("Float(f) = %v, want 1.5", got)
	}
	if got := o.Float("yaml", 0); got != 42 {
		t.Fatalf("Float(yaml) = %v, want 42", got)
	}
}

func TestOptions_SubHasClone(t *testing.T) {
	t.Parallel()

	o := Options{
		"m":    map[string]any{"k": "v"},
		"o":    Options{"k": "w"},
		"s":    "scalar",
		"null": nil,
	}
	if o.Sub("m").String("k", "") != "v" || o.Sub("o").String("k", "") != "w" {
		t.Fatalf("Sub did not return nested bags")
	}
	if o.Sub("s") != nil || o.Sub("missing") != nil {
		t.Fatalf("Sub on non-mapping should be nil")
	}
	if !o.Has("null") || o.Has("missing") {
		t.Fatalf("Has mismatch")
	}

	c := o.Clone()
	c["s"] = "changed"
	if o.String("s", "") != "scalar" {
		t.Fatalf("Clone shares storage with original")
	}
	if Options(nil).Clone() != nil {
		t.Fatalf("Clone(nil) should be nil")
	}
}

func TestOptions_StringSlice_Rune(t *testing.T) {
	t.Parallel()

	o := Options{"s1": []any{"alpha", 3, "beta"}, "s2": []string{"gamma"}, "r": "ž"}
	if got := o.StringSlice("s1"); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("StringSlice(s1) = %#v", got)
	}
	if got := o.StringSlice("s2"); !reflect.DeepEqual(got, []string{"gamma"}) {
		t.Fatalf("StringSlice(s2) = %#v", got)
	}
	if o.StringSlice("missing") != nil {
		t.Fatalf("StringSlice(missing) should be nil")
	}
	if got := o.Rune("r", 'x'); string(got) != "ž" {
		t.Fatalf("Rune(r) = %q, want ž", got)
	}
}

func TestOptions_UnmarshalJSON_NullYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	type wrapper struct {
		Opts Options `json:"options"`
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"options": null}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Opts == nil || len(w.Opts) != 0 {
		t.Fatalf("Opts after null unmarshal = %#v, want non-nil empty map", w.Opts)
	}
}
