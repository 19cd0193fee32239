package operator

import (
	"context"
	"slices"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/config"
	"etlops/internal/operr"
	"etlops/internal/table"
)

// manageColumns applies one structural change picked by "operator".
func (rt *Runtime) manageColumns(ctx context.Context, rec array.Record, params config.Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Dispatch(ctx, "operator", rec, params, Table{
		"Drop column":      {Fn: dropColumn, ParamKey: "drop_column_parameters"},
		"Duplicate column": {Fn: duplicateColumn, ParamKey: "duplicate_column_parameters"},
		"Rename column":    {Fn: renameColumn, ParamKey: "rename_column_parameters"},
		"Move column":      {Fn: moveColumn, ParamKey: "move_column_parameters"},
	})
}

func moveColumn(ctx context.Context, rec array.Record, params config.Options) (Result, error) {
	return Dispatch(ctx, "move_type", rec, params, Table{
		"Move to start": {Fn: moveToStart, ParamKey: "move_to_start_parameters"},
		"Move to end":   {Fn: moveToEnd, ParamKey: "move_to_end_parameters"},
		"Move to index": {Fn: moveToIndex, ParamKey: "move_to_index_parameters"},
		"Move after":    {Fn: moveAfter, ParamKey: "move_after_parameters"},
		"Move before":   {Fn: moveBefore, ParamKey: "move_before_parameters"},
	})
}

func dropColumn(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	col, err := stringParam(params, "column_to_drop", "")
	if err != nil {
		return Result{}, err
	}
	if err := expectColumn(rec, col, "column_to_drop"); err != nil {
		return Result{}, err
	}
	names := slices.DeleteFunc(table.Names(rec), func(n string) bool { return n == col })
	return project(rec, names, nil)
}

// duplicateColumn copies input_column to new_name. An existing new_name
// column is replaced in place; otherwise the copy is appended.
func duplicateColumn(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	in, name, err := inputAndNewName(rec, params)
	if err != nil {
		return Result{}, err
	}
	if in == name {
		return Result{}, operr.Configf("new_name",
			"name for the duplicated column (%s) cannot be the same as the existing column name (%s)", name, in)
	}

	names := table.Names(rec)
	src := make([]int, len(names))
	for i := range names {
		src[i] = i
	}
	from := table.Index(rec, in)
	if j := table.Index(rec, name); j >= 0 {
		src[j] = from
	} else {
		names = append(names, name)
		src = append(src, from)
	}
	out, err := table.Select(rec, src, names)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: out}, nil
}

func renameColumn(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	in, name, err := inputAndNewName(rec, params)
	if err != nil {
		return Result{}, err
	}
	if in == name {
		return Result{}, operr.Configf("new_name", "the new name (%s) is the same as the old name (%s)", name, in)
	}
	if table.Index(rec, name) >= 0 {
		return Result{}, operr.Configf("new_name", "a column named %s already exists", name)
	}
	names := table.Names(rec)
	return project(rec, names, map[string]string{in: name})
}

func inputAndNewName(rec array.Record, params config.Options) (string, string, error) {
	in, err := stringParam(params, "input_column", "")
	if err != nil {
		return "", "", err
	}
	if err := expectColumn(rec, in, "input_column"); err != nil {
		return "", "", err
	}
	name, err := stringParam(params, "new_name", "")
	if err != nil {
		return "", "", err
	}
	if err := expectColumnName(name, "new_name"); err != nil {
		return "", "", err
	}
	return in, name, nil
}

// columnToMove returns column_to_move and the remaining names in order.
func columnToMove(rec array.Record, params config.Options) (string, []string, error) {
	col, err := stringParam(params, "column_to_move", "")
	if err != nil {
		return "", nil, err
	}
	if table.Index(rec, col) < 0 {
		return "", nil, operr.Configf("column_to_move", "invalid column selected to move. Does not exist: %q", col)
	}
	rest := slices.DeleteFunc(table.Names(rec), func(n string) bool { return n == col })
	return col, rest, nil
}

func moveToStart(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	col, rest, err := columnToMove(rec, params)
	if err != nil {
		return Result{}, err
	}
	return project(rec, slices.Insert(rest, 0, col), nil)
}

func moveToEnd(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	col, rest, err := columnToMove(rec, params)
	if err != nil {
		return Result{}, err
	}
	return project(rec, append(rest, col), nil)
}

func moveToIndex(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	idx, err := intParam(params, "index", 0, true)
	if err != nil {
		return Result{}, err
	}
	col, rest, err := columnToMove(rec, params)
	if err != nil {
		return Result{}, err
	}
	if idx < 0 || idx >= int(rec.NumCols()) {
		return Result{}, operr.Configf("index",
			"index must be at least zero and less than the number of columns (%d), got %d", rec.NumCols(), idx)
	}
	return project(rec, slices.Insert(rest, idx, col), nil)
}

func moveAfter(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	return moveRelative(rec, params, 1)
}

func moveBefore(_ context.Context, rec array.Record, params config.Options) (Result, error) {
	return moveRelative(rec, params, 0)
}

// moveRelative places column_to_move at target_column's position plus offset.
func moveRelative(rec array.Record, params config.Options, offset int) (Result, error) {
	col, rest, err := columnToMove(rec, params)
	if err != nil {
		return Result{}, err
	}
	target, err := stringParam(params, "target_column", "")
	if err != nil {
		return Result{}, err
	}
	if target == col {
		return Result{}, operr.Configf("target_column",
			"the reference column (%s) should not be the same as the column to move (%s)", target, col)
	}
	at := slices.Index(rest, target)
	if at < 0 {
		return Result{}, operr.Configf("target_column", "expected column in table however received %q", target)
	}
	return project(rec, slices.Insert(rest, at+offset, col), nil)
}

// project selects the named columns of rec in the given order, applying
// renames to the output names.
func project(rec array.Record, names []string, renames map[string]string) (Result, error) {
	idx := make([]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		idx[i] = table.Index(rec, n)
		out[i] = n
		if r, ok := renames[n]; ok {
			out[i] = r
		}
	}
	sel, err := table.Select(rec, idx, out)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: sel}, nil
}
