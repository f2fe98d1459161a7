package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Format identifies a configuration file encoding.
type Format int

const (
	// FormatJSON is JSON.
	FormatJSON Format = iota
	// FormatTOML is TOML.
	FormatTOML
	// FormatYAML is YAML.
	FormatYAML
)

// ErrUnknownFormat is returned for unrecognised file extensions or names.
var ErrUnknownFormat = errors.New("unknown config format")

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Format  Format
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	src := e.Path
	if src == "" {
		src = "<" + e.Format.String() + ">"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", src, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", src, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", src, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decode parses data as a configuration tree. An empty document decodes
// to an empty tree.
func Decode(format Format, data []byte) (layer.Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return layer.Tree{}, nil
	}

	var raw any
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		raw = m
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, newParseError(format, err)
	}

	tree, ok := normalize(raw).(layer.Tree)
	if !ok {
		return nil, &ParseError{Format: format, Message: fmt.Sprintf("top level is %T, not a table", raw)}
	}
	return tree, nil
}

// Encode renders tree in the given format. Nil values are omitted since
// TOML cannot represent them.
func Encode(format Format, tree layer.Tree) ([]byte, error) {
	if tree == nil {
		tree = layer.Tree{}
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatTOML:
		return toml.Marshal(dropNils(tree))
	case FormatYAML:
		return yaml.Marshal(tree)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

func newParseError(format Format, err error) *ParseError {
	pe := &ParseError{Format: format, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	var serr *json.SyntaxError
	switch {
	case errors.As(err, &derr):
		pe.Line, pe.Column = derr.Position()
	case errors.As(err, &serr):
		pe.Message = fmt.Sprintf("%s (offset %d)", serr.Error(), serr.Offset)
	}
	return pe
}

// normalize converts codec-specific shapes into the common tree shapes.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(layer.Tree, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(layer.Tree, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		return int64(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return fmt.Sprint(t)
	default:
		return v
	}
}

func dropNils(t layer.Tree) layer.Tree {
	out := make(layer.Tree, len(t))
	for k, v := range t {
		switch val := v.(type) {
		case nil:
			continue
		case layer.Tree:
			out[k] = dropNils(val)
		default:
			out[k] = v
		}
	}
	return out
}
