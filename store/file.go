package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultPath = "./levgame.json"

// File persists the document as one JSON file, replaced atomically.
type File struct {
	path string
}

func NewFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &File{path: path}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Load(_ context.Context) (*Document, error) {
	payload, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, unavailable(err, "read state file")
	}
	d, err := Decode(payload)
	if err != nil {
		return nil, unavailable(err, f.path)
	}
	return d, nil
}

// Save writes to a temp file and renames it over the target.
func (f *File) Save(_ context.Context, d *Document) error {
	payload, err := Encode(d)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return unavailable(err, "write state temp file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return unavailable(err, "persist state file")
	}
	return nil
}

func (f *File) Delete(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return unavailable(err, "remove state file")
	}
	return nil
}

func (f *File) Close() error { return nil }
