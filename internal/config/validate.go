package config

// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "sink.kind",
// "steps[1].operator"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// KnownOperators lists the operator names a step may use. The operator
// package owns the implementations; the list is repeated here so that config
// linting has no dependency on it.
var KnownOperators = []string{"infer_and_cast_type", "cast_column_type", "manage_columns"}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and namespaces trained state",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateSteps(p.Steps)...)
	issues = append(issues, validateSink(p.Sink)...)
	issues = append(issues, validateState(p.State)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}
	switch s.Kind {
	case "file":
		f := s.File
		if strings.TrimSpace(f.Path) == "" && len(f.Paths) == 0 && f.Glob == "" && f.List == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file",
				Message:  "file source requires one of path, paths, glob or list",
			})
		}
	case "http":
		if len(s.HTTP.URLs) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.urls",
				Message:  "http source requires at least one url",
			})
		}
		for i, u := range s.HTTP.URLs {
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("source.http.urls[%d]", i),
					Message:  fmt.Sprintf("url %q must use http or https", u),
				})
			}
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q", s.Kind),
		})
		return issues
	}

	switch strings.ToLower(s.Format) {
	case "", "csv":
		if r := s.Options.String("comma", ","); len([]rune(r)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", r),
			})
		}
	case "arrow", "ipc":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.format",
			Message:  fmt.Sprintf("unknown source format %q; expected csv or arrow", s.Format),
		})
	}
	return issues
}

func validateSteps(steps []Step) []Issue {
	var issues []Issue

	if len(steps) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "steps",
			Message:  "no steps configured; input tables will be written as-is",
		})
		return issues
	}

	known := make(map[string]struct{}, len(KnownOperators))
	for _, k := range KnownOperators {
		known[k] = struct{}{}
	}
	seen := make(map[string]int, len(steps))

	for i, st := range steps {
		path := fmt.Sprintf("steps[%d]", i)
		if strings.TrimSpace(st.Operator) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".operator",
				Message:  "operator must not be empty",
			})
			continue
		}
		if _, ok := known[st.Operator]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".operator",
				Message:  fmt.Sprintf("unknown operator %q", st.Operator),
			})
		}
		if j, dup := seen[st.Key()]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".id",
				Message:  fmt.Sprintf("step key %q already used by steps[%d]; trained state would collide", st.Key(), j),
			})
		} else {
			seen[st.Key()] = i
		}
		if n := st.Params.Int("inference_sample_size", 1); n <= 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".params.inference_sample_size",
				Message:  fmt.Sprintf("inference_sample_size must be positive, got %d", n),
			})
		}
	}
	return issues
}

func validateSink(s Sink) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.kind",
			Message:  "sink.kind must not be empty",
		})
	case "ipc", "csv":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.path",
				Message:  fmt.Sprintf("%s sink requires a path", s.Kind),
			})
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.db.dsn",
				Message:  "sink.db.dsn must not be empty",
			})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.db.table",
				Message:  "sink.db.table must not be empty",
			})
		}
		if !s.DB.AutoCreateTable {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "sink.db.auto_create_table",
				Message:  "auto_create_table is false; the destination table must already match the output columns",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q", s.Kind),
		})
	}
	return issues
}

func validateState(s State) []Issue {
	var issues []Issue

	switch s.Kind {
	case "", "memory":
		if s.Path != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "state.path",
				Message:  "state.path is ignored by the memory store; trained state is lost when the process exits",
			})
		}
	case "bolt":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "state.path",
				Message:  "bolt state store requires a path",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "state.kind",
			Message:  fmt.Sprintf("unknown state kind %q; expected memory or bolt", s.Kind),
		})
	}
	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	return issues
}
