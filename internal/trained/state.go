// Package trained memoizes inferred schemas inside caller-owned trained-state
// bags. A bag is trusted only while its stored hash equals the hash of the
// operator's current parameters; any mismatch resets the bag.
//
// Persisted layout:
//
//	{"_hash": 1234567, "schema": {"id": "long", "name": "string"}}
package trained

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/config"
	"etlops/internal/operr"
	"etlops/internal/schema"
)

const (
	// HashKey holds the parameter hash inside a trained-state bag.
	HashKey = "_hash"
	// SchemaKey holds the memoized schema inside a trained-state bag.
	SchemaKey = "schema"
	// ParamsKey is the parameter under which operators receive their
	// trained-state. It never participates in the hash.
	ParamsKey = "trained_parameters"
)

// Inferrer produces a schema for a record.
type Inferrer interface {
	Infer(rec array.Record) (schema.Schema, error)
}

// Resolution is the outcome of ResolveSchema.
type Resolution struct {
	Schema schema.Schema
	State  config.Options // the updated trained-state to hand back
	Hit    bool           // the stored schema was reused
}

// StoredHash extracts the hash from a bag. JSON and YAML decoders produce
// different numeric types; all of them are accepted when they hold an integer.
func StoredHash(bag config.Options) (int64, bool) {
	switch h := bag[HashKey].(type) {
	case int64:
		return h, true
	case int:
		return int64(h), true
	case int32:
		return int64(h), true
	case uint64:
		if h > math.MaxInt64 {
			return 0, false
		}
		return int64(h), true
	case float64:
		if h != math.Trunc(h) || h < math.MinInt64 || h >= math.MaxInt64 {
			return 0, false
		}
		return int64(h), true
	case json.Number:
		n, err := h.Int64()
		return n, err == nil
	}
	return 0, false
}

// Load returns stored when its hash matches params, and otherwise a fresh bag
// holding only the new hash. hit reports which case applied.
func Load(stored, params config.Options) (bag config.Options, hit bool, err error) {
	h, err := Hash(params)
	if err != nil {
		return nil, false, err
	}
	if old, ok := StoredHash(stored); ok && old == h {
		return stored.Clone(), true, nil
	}
	return config.Options{HashKey: h}, false, nil
}

// Resolver finds the schema an infer-and-cast invocation should apply.
type Resolver struct {
	Classifier Inferrer
	Logger     *slog.Logger
}

// ResolveSchema is Resolver.Resolve with the default logger.
func ResolveSchema(stored, params config.Options, rec array.Record, cl Inferrer) (Resolution, error) {
	return Resolver{Classifier: cl}.Resolve(stored, params, rec)
}

// Resolve reuses the stored schema on a hash match. On a miss it takes the
// explicit "schema" parameter when present and otherwise runs the classifier.
// A stored schema that no longer decodes counts as a miss.
func (r Resolver) Resolve(stored, params config.Options, rec array.Record) (Resolution, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	bag, hit, err := Load(stored, params)
	if err != nil {
		return Resolution{}, err
	}

	if hit {
		if raw, ok := bag[SchemaKey]; ok {
			sch, err := schema.FromValue(plain(raw))
			if err == nil {
				return Resolution{Schema: sch, State: bag, Hit: true}, nil
			}
			log.Warn("discarding stored schema", "err", err)
			delete(bag, SchemaKey)
		}
	}

	var sch schema.Schema
	if explicit, ok := params[SchemaKey]; ok && explicit != nil {
		sch, err = schema.FromValue(plain(explicit))
		if err != nil {
			return Resolution{}, &operr.ConfigError{Param: SchemaKey, Msg: "invalid schema", Err: err}
		}
	} else {
		if r.Classifier == nil {
			return Resolution{}, errors.New("trained: no classifier configured")
		}
		sch, err = r.Classifier.Infer(rec)
		if err != nil {
			return Resolution{}, fmt.Errorf("infer schema: %w", err)
		}
	}

	bag[SchemaKey] = sch.Map()
	return Resolution{Schema: sch, State: bag, Hit: false}, nil
}

// plain unwraps named map types so schema.FromValue can read them.
func plain(v any) any {
	if o, ok := v.(config.Options); ok {
		return map[string]any(o)
	}
	return v
}
