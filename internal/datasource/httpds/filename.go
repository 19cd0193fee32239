package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HashString returns the hex SHA-1 of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// InputName derives a filesystem-safe input name from a URL: the last path
// segment without its extension, followed by the cleaned query when present.
// URLs with neither fall back to a hash so distinct URLs never share trained
// state or output files.
func InputName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}

	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Trim(filenameCleaner.ReplaceAllString(base, "_"), "_")
	query := strings.Trim(filenameCleaner.ReplaceAllString(u.RawQuery, "_"), "_")

	switch {
	case base != "" && query != "":
		return base + "_" + query
	case base != "":
		return base
	case query != "":
		return query
	}
	return HashString(rawURL)
}
