package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported definition format")

// Loader reads a workflow definition from a file.
type Loader interface {
	Load(ctx context.Context, path string) (*Definition, error)
}

// Loaders dispatches to a Loader by file extension. Keys are lower case and
// include the leading dot.
type Loaders map[string]Loader

// Load picks the loader registered for the extension of path.
func (l Loaders) Load(ctx context.Context, path string) (*Definition, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := l[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedFormat, ext, strings.Join(l.Extensions(), ", "))
	}
	return loader.Load(ctx, path)
}

// Extensions returns the registered extensions, sorted.
func (l Loaders) Extensions() []string {
	exts := make([]string, 0, len(l))
	for ext := range l {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
