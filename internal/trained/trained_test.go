package trained

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"etlops/internal/config"
	"etlops/internal/infer"
	"etlops/internal/operr"
	"etlops/internal/schema"
	"etlops/internal/table"
)

type countingClassifier struct {
	calls int
	inner Inferrer
}

func (c *countingClassifier) Infer(rec array.Record) (schema.Schema, error) {
	c.calls++
	return c.inner.Infer(rec)
}

func stringTable(t *testing.T, name string, vals ...string) array.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	arr := table.Strings(mem, vals, nil)
	defer arr.Release()
	rec, err := table.New([]string{name}, []array.Interface{arr})
	require.NoError(t, err)
	return rec
}

func TestHash_KeyOrderAndNumericForms(t *testing.T) {
	a, err := Hash(map[string]any{"a": 1, "b": map[string]any{"x": "y", "z": 2.0}})
	require.NoError(t, err)

	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"b":{"z":2,"x":"y"},"a":1}`), &fromJSON))
	b, err := Hash(fromJSON)
	require.NoError(t, err)

	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal([]byte("b:\n  x: y\n  z: 2\na: 1\n"), &fromYAML))
	c, err := Hash(fromYAML)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.GreaterOrEqual(t, a, int64(0))
	assert.Less(t, a, int64(1)<<53)
}

func TestHash_Sensitivity(t *testing.T) {
	base, err := Hash(map[string]any{"cols": []any{"a", "b"}, "n": 1})
	require.NoError(t, err)

	reordered, err := Hash(map[string]any{"cols": []any{"b", "a"}, "n": 1})
	require.NoError(t, err)
	assert.NotEqual(t, base, reordered, "sequence order is significant")

	changed, err := Hash(map[string]any{"cols": []any{"a", "b"}, "n": 2})
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	typed, err := Hash(map[string]any{"cols": []any{"a", "b"}, "n": "1"})
	require.NoError(t, err)
	assert.NotEqual(t, base, typed, "string and number differ")

	withState, err := Hash(map[string]any{"cols": []any{"a", "b"}, "n": 1, ParamsKey: map[string]any{"_hash": 5}})
	require.NoError(t, err)
	assert.Equal(t, base, withState, "trained state is excluded")
}

func TestHash_Unsupported(t *testing.T) {
	_, err := Hash(map[string]any{"f": func() {}})
	require.Error(t, err)
	var se *operr.SerializationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "f", se.Path)

	_, err = Hash(map[string]any{"m": map[string]any{"k": []any{1, make(chan int)}}})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "m.k[1]", se.Path)

	_, err = Hash(map[string]any{"m": map[int]string{1: "a"}})
	assert.True(t, operr.IsSerialization(err))
}

func TestStoredHash(t *testing.T) {
	for _, v := range []any{int64(9), 9, float64(9), json.Number("9"), uint64(9)} {
		h, ok := StoredHash(config.Options{HashKey: v})
		assert.True(t, ok, "%T", v)
		assert.Equal(t, int64(9), h)
	}
	_, ok := StoredHash(config.Options{HashKey: 9.5})
	assert.False(t, ok)
	_, ok = StoredHash(nil)
	assert.False(t, ok)
}

func TestLoad_ResetsOnMismatch(t *testing.T) {
	params := config.Options{"inference_sample_size": 10}
	h, err := Hash(params)
	require.NoError(t, err)

	bag, hit, err := Load(config.Options{HashKey: h, SchemaKey: map[string]any{"c": "long"}}, params)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Contains(t, bag, SchemaKey)

	bag, hit, err = Load(config.Options{HashKey: h + 1, SchemaKey: map[string]any{"c": "long"}}, params)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, config.Options{HashKey: h}, bag)
}

func TestResolve_RoundTripCache(t *testing.T) {
	cl := &countingClassifier{inner: infer.New(10)}
	params := config.Options{"inference_sample_size": 10}

	first := stringTable(t, "c", "1", "2", "3")
	defer first.Release()
	res, err := ResolveSchema(nil, params, first, cl)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, 1, cl.calls)
	typ, _ := res.Schema.Get("c")
	assert.Equal(t, schema.Long, typ)

	// Persist through JSON as a store would.
	b, err := json.Marshal(res.State)
	require.NoError(t, err)
	var stored config.Options
	require.NoError(t, json.Unmarshal(b, &stored))

	second := stringTable(t, "c", "x", "y", "z")
	defer second.Release()
	res2, err := ResolveSchema(stored, params, second, cl)
	require.NoError(t, err)
	assert.True(t, res2.Hit)
	assert.Equal(t, 1, cl.calls, "classifier must not run on a hit")
	typ, _ = res2.Schema.Get("c")
	assert.Equal(t, schema.Long, typ)

	changed := config.Options{"inference_sample_size": 20}
	res3, err := ResolveSchema(res2.State, changed, second, cl)
	require.NoError(t, err)
	assert.False(t, res3.Hit)
	assert.Equal(t, 2, cl.calls)
	typ, _ = res3.Schema.Get("c")
	assert.Equal(t, schema.String, typ)
}

func TestResolve_ExplicitSchema(t *testing.T) {
	cl := &countingClassifier{inner: infer.New(0)}
	params := config.Options{SchemaKey: map[string]any{"c": "float"}}

	rec := stringTable(t, "c", "1")
	defer rec.Release()
	res, err := ResolveSchema(nil, params, rec, cl)
	require.NoError(t, err)
	assert.Equal(t, 0, cl.calls)
	typ, _ := res.Schema.Get("c")
	assert.Equal(t, schema.Float, typ)
	assert.Equal(t, map[string]any{"c": "float"}, res.State[SchemaKey])

	_, err = ResolveSchema(nil, config.Options{SchemaKey: map[string]any{"c": "decimal"}}, rec, cl)
	assert.True(t, operr.IsConfig(err))
}

func TestResolve_CorruptStoredSchemaIsMiss(t *testing.T) {
	cl := &countingClassifier{inner: infer.New(0)}
	params := config.Options{}
	h, err := Hash(params)
	require.NoError(t, err)

	rec := stringTable(t, "c", "true", "false")
	defer rec.Release()
	res, err := ResolveSchema(config.Options{HashKey: h, SchemaKey: "garbage"}, params, rec, cl)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, 1, cl.calls)
	typ, _ := res.Schema.Get("c")
	assert.Equal(t, schema.Bool, typ)
}

type failingClassifier struct{}

func (failingClassifier) Infer(array.Record) (schema.Schema, error) {
	return schema.Schema{}, errors.New("boom")
}

func TestResolve_ClassifierError(t *testing.T) {
	rec := stringTable(t, "c", "1")
	defer rec.Release()
	_, err := ResolveSchema(nil, config.Options{}, rec, failingClassifier{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = ResolveSchema(nil, config.Options{"bad": func() {}}, rec, failingClassifier{})
	assert.True(t, operr.IsSerialization(err))
}
