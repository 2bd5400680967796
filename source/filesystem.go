package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// FileSystem reads documents from the local filesystem.
type FileSystem struct{}

var _ Source = FileSystem{}

// List walks root (only its top level unless opts.Recursive) and returns the
// matching regular files sorted lexicographically.
func (FileSystem) List(ctx context.Context, root string, opts ListOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && opts.Matches(d.Name()) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(paths)
	return paths, nil
}

// Read returns the file contents.
func (FileSystem) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}
