// Package infer classifies table columns into semantic types. Columns that
// already carry a typed Arrow storage are mapped directly; text columns are
// sampled and run through a fixed threshold cascade:
//
//	numeric > 0.8 of values  -> float, or long if integers > 0.8 of numerics
//	boolean > 0.8 of values  -> bool
//	date    > 0.8 of values  -> date
//	otherwise                -> string
//
// The denominator is the count of non-null, non-empty sampled values.
package infer

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/schema"
	"etlops/internal/table"
)

// DefaultSampleSize caps how many leading rows are inspected per column.
const DefaultSampleSize = 1000

// Thresholds are the strict lower bounds used by the cascade.
type Thresholds struct {
	Numeric float64
	Integer float64 // fraction of numeric values
	Boolean float64
	Date    float64
}

// DefaultThresholds sets every threshold to 0.8.
var DefaultThresholds = Thresholds{Numeric: 0.8, Integer: 0.8, Boolean: 0.8, Date: 0.8}

// Classifier infers a schema from a bounded prefix of a record.
type Classifier struct {
	SampleSize int
	Thresholds Thresholds
	Logger     *slog.Logger
}

// New returns a Classifier with default thresholds. A non-positive sample
// size selects DefaultSampleSize.
func New(sampleSize int) *Classifier {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Classifier{SampleSize: sampleSize, Thresholds: DefaultThresholds}
}

// Infer returns one semantic type per column of rec, in column order.
func (c *Classifier) Infer(rec array.Record) (schema.Schema, error) {
	if rec == nil {
		return schema.Schema{}, errors.New("infer: no table to sample")
	}
	n := c.SampleSize
	if n <= 0 {
		n = DefaultSampleSize
	}
	th := c.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds
	}

	head := table.Head(rec, n)
	defer head.Release()

	var out schema.Schema
	for i := 0; i < int(head.NumCols()); i++ {
		name := head.ColumnName(i)
		col := head.Column(i)
		if col.DataType().ID() != arrow.STRING {
			out.Set(name, schema.FromStorage(col.DataType()))
			continue
		}
		st := Collect(col.(*array.String), 0)
		t := st.Classify(th)
		if c.Logger != nil {
			c.Logger.Debug("column classified",
				"column", name, "type", string(t),
				"sampled", st.Sampled, "total", st.Total, "numeric", st.Numeric,
				"integer", st.Integer, "boolean", st.Boolean, "date", st.Date,
				"null", st.Null, "null_like", st.NullLike)
		}
		out.Set(name, t)
	}
	return out, nil
}

// Classify runs the cascade over st.
func (st Stats) Classify(th Thresholds) schema.Type {
	if st.Total == 0 {
		return schema.String
	}
	total := float64(st.Total)
	if float64(st.Numeric)/total > th.Numeric {
		if float64(st.Integer)/float64(st.Numeric) > th.Integer {
			return schema.Long
		}
		return schema.Float
	}
	if float64(st.Boolean)/total > th.Boolean {
		return schema.Bool
	}
	if float64(st.Date)/total > th.Date {
		return schema.Date
	}
	return schema.String
}
