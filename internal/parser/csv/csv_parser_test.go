package csv_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"

	pcsv "etlops/internal/parser/csv"
	"etlops/internal/table"
)

func column(rec array.Record, i int) []any {
	col := rec.Column(i)
	out := make([]any, col.Len())
	for r := range out {
		out[r] = table.Value(col, r)
	}
	return out
}

func TestParse_HeaderBOMAndNulls(t *testing.T) {
	in := "\uFEFFPČV ; Datum od\n10;2020-01-01\n11; \n"
	p := pcsv.NewParser(pcsv.Options{
		HasHeader: true,
		Comma:     ';',
		TrimSpace: true,
		HeaderMap: map[string]string{"PČV": "pcv"},
	})

	rec, skipped, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec.Release()

	if skipped != 0 {
		t.Fatalf("skipped=%d want 0", skipped)
	}
	if got, want := table.Names(rec), []string{"pcv", "Datum od"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v want %v", got, want)
	}
	for i := 0; i < int(rec.NumCols()); i++ {
		if !arrow.TypeEqual(rec.Column(i).DataType(), arrow.BinaryTypes.String) {
			t.Fatalf("column %d type=%s want utf8", i, rec.Column(i).DataType())
		}
	}
	if got := column(rec, 1); !reflect.DeepEqual(got, []any{"2020-01-01", nil}) {
		t.Fatalf("Datum od=%v; whitespace-only value should be null after trimming", got)
	}
}

func TestParse_NoHeaderAndNormalize(t *testing.T) {
	rec, _, err := pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader("a,b\nc,d\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec.Release()
	if got := table.Names(rec); !reflect.DeepEqual(got, []string{"_c0", "_c1"}) {
		t.Fatalf("names=%v", got)
	}
	if rec.NumRows() != 2 {
		t.Fatalf("rows=%d want 2", rec.NumRows())
	}

	rec2, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true, NormalizeHeaders: true}).
		Parse(strings.NewReader("First Name,,AGE\nx,y,1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec2.Release()
	if got := table.Names(rec2); !reflect.DeepEqual(got, []string{"first_name", "_c1", "age"}) {
		t.Fatalf("names=%v", got)
	}
}

func TestParse_SkipsBadRows(t *testing.T) {
	in := "a,b\n1,2\n3\n\"4,5\n"
	rec, skipped, err := pcsv.NewParser(pcsv.Options{HasHeader: true}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec.Release()
	if rec.NumRows() != 1 || skipped != 2 {
		t.Fatalf("rows=%d skipped=%d; want 1 and 2", rec.NumRows(), skipped)
	}
}

func TestParse_DuplicateHeader(t *testing.T) {
	_, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true}).Parse(strings.NewReader("a,a\n1,2\n"))
	if err == nil {
		t.Fatalf("duplicate header accepted")
	}
}

func TestParse_HeaderOnlyAndEmpty(t *testing.T) {
	rec, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true}).Parse(strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec.Release()
	if rec.NumRows() != 0 || rec.NumCols() != 2 {
		t.Fatalf("header-only input: rows=%d cols=%d", rec.NumRows(), rec.NumCols())
	}

	rec, _, err = pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader(""))
	if err != nil || rec != nil {
		t.Fatalf("empty input: rec=%v err=%v", rec, err)
	}
}

func TestRead_Batches(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 7; i++ {
		sb.WriteString("v\n")
	}
	var sizes []int64
	_, err := pcsv.NewParser(pcsv.Options{HasHeader: true, BatchSize: 3}).Read(context.Background(),
		strings.NewReader(sb.String()), func(rec array.Record) error {
			sizes = append(sizes, rec.NumRows())
			return nil
		})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(sizes, []int64{3, 3, 1}) {
		t.Fatalf("batch sizes=%v want [3 3 1]", sizes)
	}

	stop := errors.New("stop")
	_, err = pcsv.NewParser(pcsv.Options{HasHeader: true, BatchSize: 3}).Read(context.Background(),
		strings.NewReader(sb.String()), func(array.Record) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("callback error not returned: %v", err)
	}
}

/*
TestParse_Scrub verifies that a configured rewrite repairs a malformed
sequence even when it spans the reader's internal chunk boundary.
*/
func TestParse_Scrub(t *testing.T) {
	// The header and padding place the pattern across the 64 KiB boundary.
	pad := strings.Repeat("x", 64*1024-18)
	in := "a,b\n" + pad + `,"firma "v likvidaci""` + "\n"
	p := pcsv.NewParser(pcsv.Options{
		HasHeader: true,
		Scrub:     []pcsv.Rewrite{{From: `"v likvidaci""`, To: `(v likvidaci)"`}},
	})
	rec, skipped, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer rec.Release()
	if skipped != 0 || rec.NumRows() != 1 {
		t.Fatalf("rows=%d skipped=%d", rec.NumRows(), skipped)
	}
	if got := column(rec, 1)[0]; got != "firma (v likvidaci)" {
		t.Fatalf("b=%q", got)
	}
}
