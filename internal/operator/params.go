package operator

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/coerce"
	"etlops/internal/config"
	"etlops/internal/operr"
	"etlops/internal/table"
)

// stringParam reads an optional string parameter. Absent and null values
// yield def; other non-string values are configuration errors.
func stringParam(params config.Options, key, def string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", operr.Configf(key, "expected string but received %v", v)
	}
	return s, nil
}

// requiredString reads a string parameter that must be present.
func requiredString(params config.Options, key string) (string, error) {
	if v, ok := params[key]; !ok || v == nil {
		return "", operr.Configf(key, "missing required input")
	}
	return stringParam(params, key, "")
}

// intParam reads an integer parameter. JSON numbers, YAML ints and numeric
// strings are accepted; fractional numbers are truncated. An absent value
// yields def unless required is set.
func intParam(params config.Options, key string, def int, required bool) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		if required {
			return 0, operr.Configf(key, "missing required input")
		}
		return def, nil
	}
	bad := func() error {
		return operr.Configf(key, "expected int but received %v", v)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, bad()
		}
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, operr.Configf(key, "value %v exceeds the range of int", v)
		}
		return int(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		return 0, bad()
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, bad()
		}
		return i, nil
	}
	return 0, bad()
}

// expectColumn fails unless name is a column of rec.
func expectColumn(rec array.Record, name, key string) error {
	if name == "" || table.Index(rec, name) < 0 {
		return operr.Configf(key, "expected column in table however received %q", name)
	}
	return nil
}

// expectColumnName fails for empty or whitespace-only names.
func expectColumnName(name, key string) error {
	if strings.TrimSpace(name) == "" {
		return operr.Configf(key, "column name cannot be null, empty, or whitespace: %q", name)
	}
	return nil
}

// castOptions reads the parameters shared by the casting operators.
// datePattern applies when date_pattern is absent.
func castOptions(params config.Options, datePattern string) (coerce.Options, error) {
	policy, err := stringParam(params, "handling_policy", "")
	if err != nil {
		return coerce.Options{}, err
	}
	p, err := coerce.ParsePolicy(policy)
	if err != nil {
		return coerce.Options{}, err
	}
	pattern, err := stringParam(params, "date_pattern", datePattern)
	if err != nil {
		return coerce.Options{}, err
	}
	return coerce.Options{
		Policy:      p,
		Replacement: params.Any("fixed_replacement"),
		DatePattern: pattern,
	}, nil
}
