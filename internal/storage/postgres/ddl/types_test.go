package ddl

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/arrow"

	"etlops/internal/storage"
)

// TestMapType verifies the Postgres column type chosen for each Arrow type
// an output table can carry.
func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dt   arrow.DataType
		want string
	}{
		{dt: arrow.PrimitiveTypes.Int64, want: "BIGINT"},
		{dt: arrow.PrimitiveTypes.Int32, want: "INTEGER"},
		{dt: arrow.FixedWidthTypes.Boolean, want: "BOOLEAN"},
		{dt: arrow.PrimitiveTypes.Float64, want: "DOUBLE PRECISION"},
		{dt: arrow.FixedWidthTypes.Date32, want: "DATE"},
		{dt: arrow.BinaryTypes.String, want: "TEXT"},
		{dt: arrow.BinaryTypes.Binary, want: "BYTEA"},
	}
	for _, tt := range tests {
		got, err := MapType(tt.dt)
		if err != nil || got != tt.want {
			t.Fatalf("MapType(%s) = %q, %v; want %q", tt.dt, got, err, tt.want)
		}
	}
	if _, err := MapType(arrow.PrimitiveTypes.Uint64); err == nil {
		t.Fatalf("MapType(uint64) error = nil, want non-nil")
	}
}

type execRecorder struct {
	storage.Repository
	sql []string
}

func (r *execRecorder) Exec(_ context.Context, sql string) error {
	r.sql = append(r.sql, sql)
	return nil
}

// TestBootstrap verifies a schema-qualified table is created from the output
// schema.
func TestBootstrap(t *testing.T) {
	t.Parallel()

	sch := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	rec := &execRecorder{}
	if err := Bootstrap(context.Background(), rec, "public.credit", sch); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"credit\" (\n  \"id\" BIGINT,\n  \"amount\" DOUBLE PRECISION\n);"
	if len(rec.sql) != 1 || rec.sql[0] != want {
		t.Fatalf("Bootstrap SQL = %q, want %q", rec.sql, want)
	}

	if err := Bootstrap(context.Background(), rec, "t", arrow.NewSchema(nil, nil)); err == nil {
		t.Fatalf("Bootstrap with empty schema error = nil")
	}
}
