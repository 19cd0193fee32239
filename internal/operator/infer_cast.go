package operator

import (
	"context"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/coerce"
	"etlops/internal/config"
	"etlops/internal/infer"
	"etlops/internal/metrics"
	"etlops/internal/operr"
	"etlops/internal/schema"
	"etlops/internal/table"
	"etlops/internal/trained"
)

// inferAndCast types every column of rec. The schema comes from the
// trained-state when its hash still matches the parameters, else from the
// "schema" parameter, else from the classifier. The returned trained-state
// memoizes it.
//
// Parameters: schema, inference_sample_size, handling_policy,
// fixed_replacement, date_pattern.
func (rt *Runtime) inferAndCast(ctx context.Context, rec array.Record, params config.Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log := rt.logger(ctx)

	n, err := intParam(params, "inference_sample_size", infer.DefaultSampleSize, false)
	if err != nil {
		return Result{}, err
	}
	if n <= 0 {
		return Result{}, operr.Configf("inference_sample_size", "must be greater than zero, got %d", n)
	}
	opt, err := castOptions(params, coerce.ISODatePattern)
	if err != nil {
		return Result{}, err
	}
	opt.Allocator = rt.allocator()

	cl := infer.New(n)
	cl.Logger = log
	if rt.Thresholds != nil {
		cl.Thresholds = *rt.Thresholds
	}
	res, err := trained.Resolver{Classifier: cl, Logger: log}.Resolve(stateOf(params), params, rec)
	if err != nil {
		return Result{}, err
	}
	metrics.RecordCache(rt.Job, stepFrom(ctx), res.Hit)
	log.Debug("schema resolved", "hit", res.Hit, "columns", res.Schema.Len())

	out, rep, err := coerce.Apply(rec, res.Schema, opt)
	if err != nil {
		return Result{}, err
	}
	rt.report(ctx, rep)
	return Result{Table: out, Trained: res.State}, nil
}

// castColumn converts a single column to data_type; every other column
// passes through.
//
// Parameters: column, data_type, handling_policy, fixed_replacement,
// date_pattern.
func (rt *Runtime) castColumn(ctx context.Context, rec array.Record, params config.Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	col, err := requiredString(params, "column")
	if err != nil {
		return Result{}, err
	}
	if err := expectColumn(rec, col, "column"); err != nil {
		return Result{}, err
	}
	name, err := requiredString(params, "data_type")
	if err != nil {
		return Result{}, err
	}
	typ, err := schema.ParseType(name)
	if err != nil {
		return Result{}, err
	}
	opt, err := castOptions(params, coerce.DefaultDatePattern)
	if err != nil {
		return Result{}, err
	}
	opt.Allocator = rt.allocator()

	var sch schema.Schema
	for _, c := range table.Names(rec) {
		if c == col {
			sch.Set(c, typ)
		} else {
			sch.Set(c, schema.Object)
		}
	}
	out, rep, err := coerce.Apply(rec, sch, opt)
	if err != nil {
		return Result{}, err
	}
	rt.report(ctx, rep)
	return Result{Table: out}, nil
}

func (rt *Runtime) report(ctx context.Context, rep coerce.Report) {
	failed := 0
	for _, n := range rep.Failed {
		failed += n
	}
	metrics.RecordRow(rt.Job, "typecast_failed", int64(failed))
	metrics.RecordRow(rt.Job, "typecast_dropped", int64(rep.Dropped))
	if failed > 0 {
		rt.logger(ctx).Info("values failed to convert",
			"converted", rep.Converted, "failed", rep.Failed, "dropped", rep.Dropped)
	}
}
