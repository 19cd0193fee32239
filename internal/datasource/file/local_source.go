// Package file resolves local pipeline inputs and opens them.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local is a filesystem data source bound to one path. It is safe for
// concurrent use.
type Local struct{ path string }

// NewLocal returns a Local data source for path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the file for reading. A context that is already done is
// reported without touching the filesystem. Filesystem errors are wrapped
// with the path and still match os.ErrNotExist and friends.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Name is the base name without extension, used to name outputs and
// trained-state namespaces.
func (l *Local) Name() string {
	base := filepath.Base(l.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
