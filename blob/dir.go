package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// Dir stores each name as a file in a folder, in a way that stays
// inspectable with standard tools.
type Dir struct {
	root string
}

// OpenDir opens (and creates if needed) a folder store.
func OpenDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("could not create store folder %q: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// path escapes the name so that any name maps to a single file in root.
func (d *Dir) path(name string) string {
	return filepath.Join(d.root, url.PathEscape(name))
}

func (d *Dir) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	return b, nil
}

// Put writes to a temporary file then renames it, so readers never observe a
// partially written payload.
func (d *Dir) Put(_ context.Context, name string, payload []byte) error {
	f, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %q: %w", name, err)
	}
	tmp := f.Name()
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	if err := os.Rename(tmp, d.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not commit %q: %w", name, err)
	}
	return nil
}

func (d *Dir) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not stat %q: %w", name, err)
	}
	return true, nil
}

func (d *Dir) Delete(_ context.Context, name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not delete %q: %w", name, err)
	}
	return nil
}

func (d *Dir) Close() error { return nil }
