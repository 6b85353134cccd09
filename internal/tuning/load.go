// Package tuning loads scoring constants from YAML or TOML files and keeps
// the active set current while the file changes on disk.
package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported tuning file format")

// Load reads a tuning file. Keys absent from the file keep their default
// values. The result is validated before it is returned.
func Load(path string) (*detector.Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	t, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes tuning data in the format named by ext (".yaml", ".yml"
// or ".toml") over the defaults.
func Parse(data []byte, ext string) (*detector.Tuning, error) {
	t := detector.DefaultTuning()

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(t); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), t)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}
