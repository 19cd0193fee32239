package operator

import (
	"context"
	"log/slog"
	"time"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"

	"etlops/internal/config"
	"etlops/internal/infer"
	"etlops/internal/logging"
	"etlops/internal/metrics"
	"etlops/internal/operr"
	"etlops/internal/trained"
)

// Kind names a top-level operator.
type Kind string

const (
	InferAndCast  Kind = "infer_and_cast_type"
	CastColumn    Kind = "cast_column_type"
	ManageColumns Kind = "manage_columns"
)

// Kinds lists every operator in a stable order.
func Kinds() []Kind {
	return []Kind{InferAndCast, CastColumn, ManageColumns}
}

// ParseKind resolves an operator name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", operr.Configf("operator", "unknown operator %q", s)
}

type stepKey struct{}

func withStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepKey{}, step)
}

func stepFrom(ctx context.Context) string {
	s, _ := ctx.Value(stepKey{}).(string)
	return s
}

// Runtime carries what the operators of one job share.
type Runtime struct {
	Job    string
	Logger *slog.Logger
	// Allocator backs every array operators build. Nil means a Go allocator.
	Allocator memory.Allocator
	// Thresholds overrides the classifier thresholds when set.
	Thresholds *infer.Thresholds
}

// NewRuntime returns a Runtime for job using the default logger.
func NewRuntime(job string) *Runtime {
	return &Runtime{Job: job, Allocator: memory.NewGoAllocator()}
}

// Func returns the implementation of k, or nil for an unknown kind.
func (rt *Runtime) Func(k Kind) Func {
	switch k {
	case InferAndCast:
		return rt.inferAndCast
	case CastColumn:
		return rt.castColumn
	case ManageColumns:
		return rt.manageColumns
	}
	return nil
}

// Run executes one configured step over rec. stored is the trained-state the
// step returned last time, or nil. The caller releases Result.Table.
func (rt *Runtime) Run(ctx context.Context, step config.Step, rec array.Record, stored config.Options) (Result, error) {
	kind, err := ParseKind(step.Operator)
	if err != nil {
		return Result{}, err
	}
	params := step.Params.Clone()
	if params == nil {
		params = config.Options{}
	}
	if stored != nil {
		params[trained.ParamsKey] = stored
	} else {
		delete(params, trained.ParamsKey)
	}

	ctx = withStep(ctx, step.Key())
	start := time.Now()
	res, err := rt.Func(kind)(ctx, rec, params)
	metrics.RecordStep(rt.Job, step.Key(), err, time.Since(start))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (rt *Runtime) logger(ctx context.Context) *slog.Logger {
	log := rt.Logger
	if log == nil {
		log = logging.FromContext(ctx)
	}
	if s := stepFrom(ctx); s != "" {
		log = log.With("step", s)
	}
	return log
}

func (rt *Runtime) allocator() memory.Allocator {
	if rt.Allocator == nil {
		return memory.NewGoAllocator()
	}
	return rt.Allocator
}
