package coerce

import (
	"strings"

	"etlops/internal/operr"
)

// DefaultDatePattern is used when no date pattern is configured.
const DefaultDatePattern = "dd-MM-yyyy"

// ISODatePattern matches the dates the classifier recognises.
const ISODatePattern = "yyyy-MM-dd"

// Layout translates a Java-style date pattern (the form pipeline authors
// write, e.g. "dd-MM-yyyy") into a Go time layout.
//
// Supported letters: y M L d E H h m s S a. Text in single quotes is literal
// and '' is a quote. Any other ASCII letter is a configuration error.
func Layout(pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultDatePattern
	}
	var out strings.Builder
	rs := []rune(pattern)
	for i := 0; i < len(rs); {
		r := rs[i]

		if r == '\'' {
			lit, next, err := quoted(rs, i)
			if err != nil {
				return "", err
			}
			if err := checkLiteral(lit, pattern); err != nil {
				return "", err
			}
			out.WriteString(lit)
			i = next
			continue
		}

		if !isASCIILetter(r) {
			if r >= '0' && r <= '9' {
				return "", operr.Configf("date_pattern", "%q: digits must be quoted", pattern)
			}
			out.WriteRune(r)
			i++
			continue
		}

		n := 1
		for i+n < len(rs) && rs[i+n] == r {
			n++
		}
		tok, err := token(r, n, pattern, out.String())
		if err != nil {
			return "", err
		}
		out.WriteString(tok)
		i += n
	}
	return out.String(), nil
}

func token(r rune, n int, pattern, sofar string) (string, error) {
	switch r {
	case 'y', 'u':
		if n == 2 {
			return "06", nil
		}
		return "2006", nil
	case 'M', 'L':
		switch n {
		case 1:
			return "1", nil
		case 2:
			return "01", nil
		case 3:
			return "Jan", nil
		default:
			return "January", nil
		}
	case 'd':
		switch n {
		case 1:
			return "2", nil
		case 2:
			return "02", nil
		}
	case 'E':
		if n <= 3 {
			return "Mon", nil
		}
		return "Monday", nil
	case 'H':
		if n <= 2 {
			return "15", nil
		}
	case 'h':
		switch n {
		case 1:
			return "3", nil
		case 2:
			return "03", nil
		}
	case 'm':
		switch n {
		case 1:
			return "4", nil
		case 2:
			return "04", nil
		}
	case 's':
		switch n {
		case 1:
			return "5", nil
		case 2:
			return "05", nil
		}
	case 'S':
		if strings.HasSuffix(sofar, ".") || strings.HasSuffix(sofar, ",") {
			return strings.Repeat("0", n), nil
		}
		return "", operr.Configf("date_pattern", "%q: fraction of second must follow '.' or ','", pattern)
	case 'a':
		if n == 1 {
			return "PM", nil
		}
	default:
		return "", operr.Configf("date_pattern", "%q: pattern letter %q is not supported", pattern, r)
	}
	return "", operr.Configf("date_pattern", "%q: %d repetitions of %q are not supported", pattern, n, r)
}

// quoted reads a quoted literal starting at rs[i] == '\''.
func quoted(rs []rune, i int) (lit string, next int, err error) {
	if i+1 < len(rs) && rs[i+1] == '\'' {
		return "'", i + 2, nil
	}
	var sb strings.Builder
	for j := i + 1; j < len(rs); j++ {
		if rs[j] != '\'' {
			sb.WriteRune(rs[j])
			continue
		}
		if j+1 < len(rs) && rs[j+1] == '\'' {
			sb.WriteRune('\'')
			j++
			continue
		}
		return sb.String(), j + 1, nil
	}
	return "", 0, operr.Configf("date_pattern", "%q: unterminated quote", string(rs))
}

// goLayoutWords are substrings that time.Parse would read as layout elements.
var goLayoutWords = []string{"Jan", "Mon", "MST", "PM", "pm", "Z07", "_2"}

func checkLiteral(lit, pattern string) error {
	if strings.ContainsAny(lit, "0123456789") {
		return operr.Configf("date_pattern", "%q: literal %q must not contain digits", pattern, lit)
	}
	for _, w := range goLayoutWords {
		if strings.Contains(lit, w) {
			return operr.Configf("date_pattern", "%q: literal %q is ambiguous", pattern, lit)
		}
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
