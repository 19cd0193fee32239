package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"etlops/internal/config"
)

// ReadList reads a list file and returns its non-empty, non-comment lines
// in order. Lines starting with '#' after trimming are comments. Relative
// entries are resolved against the list file's directory.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Expand resolves every input named by f: Path, then Paths, then Glob
// matches (sorted), then List entries. Duplicates keep their first position.
// A glob that matches nothing is an error so a typo does not silently run
// an empty job.
func Expand(f config.SourceFile) ([]string, error) {
	var all []string
	if p := strings.TrimSpace(f.Path); p != "" {
		all = append(all, p)
	}
	all = append(all, f.Paths...)

	if f.Glob != "" {
		matches, err := filepath.Glob(f.Glob)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", f.Glob, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no files", f.Glob)
		}
		sort.Strings(matches)
		all = append(all, matches...)
	}
	if f.List != "" {
		listed, err := ReadList(f.List)
		if err != nil {
			return nil, fmt.Errorf("read list %s: %w", f.List, err)
		}
		all = append(all, listed...)
	}

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, p := range all {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("file source resolved no inputs")
	}
	return out, nil
}
