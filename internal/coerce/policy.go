package coerce

import (
	"strings"

	"etlops/internal/operr"
)

// Policy selects what happens to a value that fails to convert.
type Policy string

const (
	// ReplaceNull leaves a null in place of the failed value.
	ReplaceNull Policy = "replace_null"
	// ReplaceNullWithNewCol also keeps the raw value in a side column.
	ReplaceNullWithNewCol Policy = "replace_null_with_new_col"
	// ReplaceValue substitutes a fixed replacement literal.
	ReplaceValue Policy = "replace_value"
	// ReplaceValueWithNewCol substitutes the literal and keeps the raw value
	// in a side column.
	ReplaceValueWithNewCol Policy = "replace_value_with_new_col"
	// Drop removes every row in which any converted column failed.
	Drop Policy = "drop"
)

// Policies lists every policy in declaration order.
var Policies = []Policy{ReplaceNull, ReplaceNullWithNewCol, ReplaceValue, ReplaceValueWithNewCol, Drop}

// SideSuffix is appended to a column name to form its side column.
const SideSuffix = "_typecast_error"

// SideColumn returns the side column name for col.
func SideColumn(col string) string { return col + SideSuffix }

// ParsePolicy parses a policy name. The empty string selects ReplaceNull.
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReplaceNull, nil
	}
	for _, p := range Policies {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	names := make([]string, len(Policies))
	for i, p := range Policies {
		names[i] = string(p)
	}
	return "", operr.Configf("handling_policy", "%q is not supported; expected one of %s", s, strings.Join(names, ", "))
}

// KeepsRaw reports whether the policy writes a side column.
func (p Policy) KeepsRaw() bool {
	return p == ReplaceNullWithNewCol || p == ReplaceValueWithNewCol
}

// Replaces reports whether the policy substitutes a fixed literal.
func (p Policy) Replaces() bool {
	return p == ReplaceValue || p == ReplaceValueWithNewCol
}
