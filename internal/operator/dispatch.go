// Package operator routes operator invocations and threads trained-state
// through them.
//
// An operator receives a record and a parameter bag and returns a new record
// plus, optionally, the trained-state it wants kept for the next call. Its
// previous trained-state arrives in the bag under "trained_parameters".
//
// Operators with variants (manage_columns, its Move column variant) pick the
// variant with Dispatch, which slices the variant's parameters and
// trained-state out of the bag and nests the returned state back in.
package operator

import (
	"context"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/config"
	"etlops/internal/operr"
	"etlops/internal/trained"
)

// Result is what an operator hands back.
type Result struct {
	Table array.Record
	// Trained is the state to pass in on the next call, or nil when the
	// operator keeps none.
	Trained config.Options
}

// Func is an operator implementation.
type Func func(ctx context.Context, rec array.Record, params config.Options) (Result, error)

// Entry binds a discriminator value to its implementation and to the key of
// its parameter sub-bag.
type Entry struct {
	Fn       Func
	ParamKey string
}

// Table maps discriminator values to entries.
type Table map[string]Entry

// Dispatch runs the entry selected by params[key].
//
// The entry receives params[entry.ParamKey] (empty when absent, an error
// when it is not a mapping) with the
// slice trained_parameters[entry.ParamKey] of the caller's state added under
// trained_parameters. The entry's returned state is nested back under
// entry.ParamKey in a copy of the caller's state, keeping sibling slots. When
// the caller passed no state and the entry returned none, Result.Trained is
// nil.
func Dispatch(ctx context.Context, key string, rec array.Record, params config.Options, table Table) (Result, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return Result{}, operr.Configf(key, "missing required parameter %s", key)
	}
	choice, _ := raw.(string)
	entry, ok := table[choice]
	if !ok || choice == "" {
		return Result{}, operr.Configf(key, "invalid choice selected for %s. %v is not supported", key, raw)
	}

	if v, ok := params[entry.ParamKey]; ok && v != nil && params.Sub(entry.ParamKey) == nil {
		return Result{}, operr.Configf(entry.ParamKey, "expected a mapping of parameters but received %v", v)
	}
	sub := params.Sub(entry.ParamKey).Clone()
	if sub == nil {
		sub = config.Options{}
	}
	incoming := params.Sub(trained.ParamsKey)
	if slot, ok := incoming[entry.ParamKey]; ok && slot != nil {
		sub[trained.ParamsKey] = slot
	} else {
		delete(sub, trained.ParamsKey)
	}

	res, err := entry.Fn(ctx, rec, sub)
	if err != nil {
		return Result{}, err
	}

	res.Trained = nest(incoming, entry.ParamKey, res.Trained)
	return res, nil
}

// nest places state under slot in a copy of incoming.
func nest(incoming config.Options, slot string, state config.Options) config.Options {
	if len(incoming) == 0 && len(state) == 0 {
		return nil
	}
	out := incoming.Clone()
	if out == nil {
		out = config.Options{}
	}
	if state != nil {
		out[slot] = state
	} else {
		delete(out, slot)
	}
	return out
}

// stateOf returns the trained-state an operator received, or nil.
func stateOf(params config.Options) config.Options {
	return params.Sub(trained.ParamsKey)
}
