package operator

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlops/internal/config"
	"etlops/internal/operr"
	"etlops/internal/table"
	"etlops/internal/trained"
)

// textTable builds a record of utf8 columns given as name, values pairs.
func textTable(t *testing.T, names []string, cols ...[]string) array.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	arrs := make([]array.Interface, len(cols))
	for i, c := range cols {
		arrs[i] = table.Strings(mem, c, nil)
		defer arrs[i].Release()
	}
	rec, err := table.New(names, arrs)
	require.NoError(t, err)
	return rec
}

func passThrough(ctx context.Context, rec array.Record, params config.Options) (Result, error) {
	rec.Retain()
	return Result{Table: rec}, nil
}

func TestDispatch_NoStateInNoStateOut(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()

	res, err := Dispatch(context.Background(), "op", rec, config.Options{"op": "a"}, Table{
		"a": {Fn: passThrough, ParamKey: "a_parameters"},
	})
	require.NoError(t, err)
	defer res.Table.Release()
	assert.Nil(t, res.Trained, "no trained_parameters key when nothing came in or out")

	res, err = Dispatch(context.Background(), "op", rec,
		config.Options{"op": "a", trained.ParamsKey: map[string]any{}}, Table{
			"a": {Fn: passThrough, ParamKey: "a_parameters"},
		})
	require.NoError(t, err)
	defer res.Table.Release()
	assert.Nil(t, res.Trained, "an empty incoming bag counts as none")
}

func TestDispatch_DiscriminatorErrors(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()
	tbl := Table{"a": {Fn: passThrough, ParamKey: "a_parameters"}}

	_, err := Dispatch(context.Background(), "op", rec, config.Options{}, tbl)
	require.True(t, operr.IsConfig(err))
	assert.Contains(t, err.Error(), "missing required parameter op")

	_, err = Dispatch(context.Background(), "op", rec, config.Options{"op": "zzz"}, tbl)
	require.True(t, operr.IsConfig(err))
	assert.Contains(t, err.Error(), "zzz is not supported")

	_, err = Dispatch(context.Background(), "op", rec, config.Options{"op": 3}, tbl)
	assert.True(t, operr.IsConfig(err))
}

func TestDispatch_SlicesAndNestsState(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()

	var got config.Options
	fn := func(_ context.Context, rec array.Record, params config.Options) (Result, error) {
		got = params
		rec.Retain()
		return Result{Table: rec, Trained: config.Options{"n": 2}}, nil
	}
	incoming := map[string]any{
		"a_parameters": map[string]any{"n": 1},
		"b_parameters": map[string]any{"m": 7},
	}
	sub := map[string]any{"k": "v"}
	params := config.Options{"op": "a", "a_parameters": sub, trained.ParamsKey: incoming}

	res, err := Dispatch(context.Background(), "op", rec, params, Table{"a": {Fn: fn, ParamKey: "a_parameters"}})
	require.NoError(t, err)
	defer res.Table.Release()

	assert.Equal(t, "v", got["k"])
	assert.Equal(t, map[string]any{"n": 1}, got[trained.ParamsKey])
	assert.NotContains(t, sub, trained.ParamsKey, "caller's sub-bag is not modified")

	assert.Equal(t, config.Options{
		"a_parameters": config.Options{"n": 2},
		"b_parameters": map[string]any{"m": 7},
	}, res.Trained)
	assert.Equal(t, map[string]any{"n": 1}, incoming["a_parameters"], "caller's state is not modified")
}

func TestDispatch_DroppedSlotKeepsSiblings(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()

	params := config.Options{"op": "a", trained.ParamsKey: map[string]any{
		"a_parameters": map[string]any{"n": 1},
		"b_parameters": map[string]any{"m": 7},
	}}
	res, err := Dispatch(context.Background(), "op", rec, params, Table{"a": {Fn: passThrough, ParamKey: "a_parameters"}})
	require.NoError(t, err)
	defer res.Table.Release()
	assert.Equal(t, config.Options{"b_parameters": map[string]any{"m": 7}}, res.Trained)
}

func TestDispatch_PropagatesOperatorError(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()

	fail := func(context.Context, array.Record, config.Options) (Result, error) {
		return Result{}, operr.Configf("x", "bad")
	}
	_, err := Dispatch(context.Background(), "op", rec, config.Options{"op": "a"}, Table{"a": {Fn: fail, ParamKey: "p"}})
	assert.True(t, operr.IsConfig(err))
}

func TestDispatch_SubBagMustBeMapping(t *testing.T) {
	rec := textTable(t, []string{"a"}, []string{"x"})
	defer rec.Release()
	tbl := Table{"a": {Fn: passThrough, ParamKey: "a_parameters"}}

	_, err := Dispatch(context.Background(), "op", rec, config.Options{"op": "a", "a_parameters": "x"}, tbl)
	var ce *operr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "a_parameters", ce.Param)

	res, err := Dispatch(context.Background(), "op", rec, config.Options{"op": "a", "a_parameters": nil}, tbl)
	require.NoError(t, err)
	res.Table.Release()
}
