// Package loader reads and writes configuration trees in JSON, TOML and
// YAML, and collects command options from the environment.
//
// Decoded trees are normalised so that every codec yields the same shapes:
// nested tables become layer.Tree, lists become []any, integers become
// int64 and dates become RFC 3339 strings.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the file at path.
	WriteFile(path string, data []byte, perm fs.FileMode) error
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to path, creating parent directories as needed.
func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// LoadFile decodes the file at path, choosing the codec from its extension.
func LoadFile(path string) (layer.Tree, error) {
	return LoadFileFS(DefaultFS(), path)
}

// LoadFileFS is LoadFile over an explicit file system.
func LoadFileFS(fsys FileSystem, path string) (layer.Tree, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	tree, err := Decode(format, data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return tree, nil
}

// WriteFile encodes tree into path, choosing the codec from its extension.
func WriteFile(path string, tree layer.Tree) error {
	return WriteFileFS(DefaultFS(), path, tree)
}

// WriteFileFS is WriteFile over an explicit file system.
func WriteFileFS(fsys FileSystem, path string, tree layer.Tree) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := Encode(format, tree)
	if err != nil {
		return err
	}

	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}
