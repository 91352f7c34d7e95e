// Package yaml loads arcgisdl configuration files.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/arcgisdl"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file at path and layers its values over cfg.
// Keys absent from the file keep their current values; unknown keys are
// rejected. Durations use Go syntax, e.g. "15m".
func LoadConfig(path string, cfg *arcgisdl.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return DecodeConfig(data, cfg)
}

// DecodeConfig layers the YAML document in data over cfg.
func DecodeConfig(data []byte, cfg *arcgisdl.Config) error {
	next := *cfg
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&next); err != nil && !errors.Is(err, io.EOF) {
		return arcgisdl.Errorf(arcgisdl.EINVALID, "failed to parse config file: %v", err)
	}

	if next.LayerFormat != "" {
		f, err := arcgisdl.ParseFormat(string(next.LayerFormat))
		if err != nil {
			return err
		}
		next.LayerFormat = f
	}

	*cfg = next
	return nil
}
