package infer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/arrow/array"
	"golang.org/x/text/unicode/norm"
)

// Stats holds per-column counts gathered from a sample of a text column.
type Stats struct {
	Sampled  int // rows looked at
	Null     int // actual nulls
	NullLike int // empty, whitespace-only or a textual null token
	Total    int // non-null, non-empty values; the cascade denominator
	Numeric  int
	Integer  int
	Boolean  int
	Date     int
}

// Collect gathers Stats over the first n rows of col. n <= 0 means all rows.
func Collect(col *array.String, n int) Stats {
	if n <= 0 || n > col.Len() {
		n = col.Len()
	}
	var st Stats
	for i := 0; i < n; i++ {
		st.Sampled++
		if col.IsNull(i) {
			st.Null++
			continue
		}
		st.Observe(col.Value(i))
	}
	return st
}

// Observe folds a single non-null value into the counts.
func (st *Stats) Observe(v string) {
	if IsNullLike(v) {
		st.NullLike++
	}
	if v == "" {
		return
	}
	st.Total++
	if IsNumeric(v) {
		st.Numeric++
		if IsInteger(v) {
			st.Integer++
		}
	}
	if IsBoolean(v) {
		st.Boolean++
	}
	if IsDate(v) {
		st.Date++
	}
}

var nullTokens = map[string]struct{}{
	"null": {}, "none": {}, "nil": {}, "na": {}, "nan": {},
}

// IsNullLike reports empty or whitespace-only strings and the textual null
// tokens null, none, nil, na and nan (case-insensitive, trimmed).
func IsNullLike(v string) bool {
	t := strings.ToLower(strings.TrimSpace(v))
	if t == "" {
		return true
	}
	_, ok := nullTokens[t]
	return ok
}

// IsNumeric reports whether v is a finite decimal real number. Surrounding
// whitespace and single underscores between digits are accepted; hex floats,
// infinities and NaN are not.
func IsNumeric(v string) bool {
	s, ok := cleanNumber(v)
	if !ok || strings.ContainsAny(s, "xX") {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// IsInteger reports whether v is a signed base-10 integer literal.
func IsInteger(v string) bool {
	s, ok := cleanNumber(v)
	if !ok {
		return false
	}
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// cleanNumber NFKC-normalises and trims v, then removes underscores that sit
// between two digits. ok is false if an underscore sits anywhere else.
func cleanNumber(v string) (string, bool) {
	s := strings.TrimSpace(norm.NFKC.String(v))
	if !strings.Contains(s, "_") {
		return s, s != ""
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			sb.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return sb.String(), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// IsBoolean reports a case-insensitive "true" or "false". No trimming.
func IsBoolean(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
}

// IsDate reports an ISO calendar date in exactly YYYY-MM-DD form.
func IsDate(v string) bool {
	if len(v) != len(isoDate) {
		return false
	}
	_, err := time.Parse(isoDate, v)
	return err == nil
}

const isoDate = "2006-01-02"
