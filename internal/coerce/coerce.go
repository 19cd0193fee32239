// Package coerce rewrites the columns of an Arrow record to the semantic types
// of a schema. Values that fail to convert are handled by one of five
// policies (see Policy); they never produce an error.
//
// Columns typed object, and columns whose storage already is the native type
// of their semantic type, are passed through untouched: no conversion, no side
// column and no effect on row dropping.
package coerce

import (
	"fmt"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"

	"etlops/internal/operr"
	"etlops/internal/schema"
	"etlops/internal/table"
)

// Options configures a coercion run.
type Options struct {
	Policy Policy
	// Replacement is the literal used by the replace-value policies. It is
	// converted to each target type with the same rules as row values.
	Replacement any
	// DatePattern is a Java-style pattern; empty means DefaultDatePattern.
	DatePattern string
	Allocator   memory.Allocator
}

// Report summarises a run.
type Report struct {
	Converted []string       // columns that went through conversion
	Failed    map[string]int // failed rows per converted column
	Dropped   int            // rows removed under Drop
}

// Coerce is Apply without the report.
func Coerce(rec array.Record, sch schema.Schema, opt Options) (array.Record, error) {
	out, _, err := Apply(rec, sch, opt)
	return out, err
}

type columnPlan struct {
	name     string
	src      array.Interface
	target   schema.Type
	convert  valueFunc
	fallback any // converted replacement; nil under non-replacing policies

	values []any
	failed []bool
}

// Apply converts rec to sch. The returned record is new; rec is not modified.
// Configuration problems are reported before any row is read.
func Apply(rec array.Record, sch schema.Schema, opt Options) (array.Record, Report, error) {
	var rep Report
	if rec == nil {
		return nil, rep, fmt.Errorf("coerce: nil record")
	}
	policy, err := ParsePolicy(string(opt.Policy))
	if err != nil {
		return nil, rep, err
	}
	mem := opt.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	names := table.Names(rec)
	if err := sch.Validate(names); err != nil {
		return nil, rep, err
	}

	plans, err := compile(rec, sch, policy, opt)
	if err != nil {
		return nil, rep, err
	}

	rows := int(rec.NumRows())
	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}
	rep.Failed = make(map[string]int, len(plans))
	for _, p := range plans {
		rep.Converted = append(rep.Converted, p.name)
		p.values = make([]any, rows)
		p.failed = make([]bool, rows)
		for i := 0; i < rows; i++ {
			v, ok := p.convert(i)
			if !ok {
				p.failed[i] = true
				rep.Failed[p.name]++
				v = p.fallback
				if policy == Drop {
					keep[i] = false
				}
			}
			p.values[i] = v
		}
	}

	var idx []int
	if policy == Drop {
		for i, k := range keep {
			if k {
				idx = append(idx, i)
			}
		}
		rep.Dropped = rows - len(idx)
	}
	filtering := rep.Dropped > 0

	byName := make(map[string]*columnPlan, len(plans))
	for _, p := range plans {
		byName[p.name] = p
	}

	var (
		outNames []string
		outCols  []array.Interface
	)
	defer func() {
		for _, c := range outCols {
			c.Release()
		}
	}()

	for c, name := range names {
		p, converted := byName[name]
		if !converted {
			col := rec.Column(c)
			if filtering {
				taken, err := table.Take(mem, col, idx)
				if err != nil {
					return nil, rep, fmt.Errorf("coerce: column %q: %w", name, err)
				}
				col = taken
			} else {
				col.Retain()
			}
			outNames = append(outNames, name)
			outCols = append(outCols, col)
			continue
		}

		outNames = append(outNames, name)
		outCols = append(outCols, p.build(mem, idx, filtering))
		if policy.KeepsRaw() {
			outNames = append(outNames, SideColumn(name))
			outCols = append(outCols, p.buildRaw(mem))
		}
	}

	out, err := table.New(outNames, outCols)
	if err != nil {
		return nil, rep, err
	}
	return out, rep, nil
}

// compile plans every column that needs conversion, validating the policy's
// replacement literal and side-column names along the way.
func compile(rec array.Record, sch schema.Schema, policy Policy, opt Options) ([]*columnPlan, error) {
	if policy.Replaces() && opt.Replacement == nil {
		return nil, operr.Configf("fixed_replacement", "a replacement value is required for policy %q", policy)
	}

	var (
		layout   string
		layoutOK bool
		plans    []*columnPlan
	)
	for c := 0; c < int(rec.NumCols()); c++ {
		name := rec.ColumnName(c)
		col := rec.Column(c)
		target, _ := sch.Get(name)
		if target == schema.Object || target.Matches(col.DataType()) {
			continue
		}
		if !castable(kindOf(col.DataType()), target) {
			return nil, operr.Configf("schema", "column %q: cannot convert %s to %s", name, col.DataType(), target)
		}
		if target == schema.Date && !layoutOK {
			l, err := Layout(opt.DatePattern)
			if err != nil {
				return nil, err
			}
			layout, layoutOK = l, true
		}

		p := &columnPlan{name: name, src: col, target: target, convert: converter(col, target, layout)}
		if policy.Replaces() {
			v, ok := convertScalar(opt.Replacement, target, layout)
			if !ok {
				return nil, operr.Configf("fixed_replacement",
					"invalid value %v to replace non-castable data in column %q: not convertible to %s", opt.Replacement, name, target)
			}
			p.fallback = v
		}
		if policy.KeepsRaw() {
			side := SideColumn(name)
			if table.Index(rec, side) >= 0 {
				return nil, operr.Configf("handling_policy", "column %q already exists; cannot keep non-castable values of %q", side, name)
			}
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (p *columnPlan) build(mem memory.Allocator, idx []int, filtering bool) array.Interface {
	b := newBuilder(mem, p.target)
	defer b.Release()
	if filtering {
		b.Reserve(len(idx))
		for _, i := range idx {
			appendValue(b, p.values[i])
		}
	} else {
		b.Reserve(len(p.values))
		for _, v := range p.values {
			appendValue(b, v)
		}
	}
	return b.NewArray()
}

// buildRaw builds the side column: "" for converted rows, the raw source text
// for failed rows, null where the source was null.
func (p *columnPlan) buildRaw(mem memory.Allocator) array.Interface {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(len(p.failed))
	for i, failed := range p.failed {
		if !failed {
			b.Append("")
			continue
		}
		raw, ok := table.ValueString(p.src, i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(raw)
	}
	return b.NewArray()
}
