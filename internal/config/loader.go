package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

// Load reads the config file at path (DefaultPath when empty), applies
// environment overrides and validates the result. Every problem is reported
// at once so a broken file is fixed in one pass.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses the config file and applies environment overrides without
// validating it.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, aaerrors.ErrConfigMissing(path)
		}
		return nil, aaerrors.ErrConfigInvalid(path, "cannot read file").WithCause(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, aaerrors.ErrConfigInvalid(path, err.Error()).WithCause(err)
	}
	cfg.Path = path
	cfg.Overridden = ApplyEnvVars(cfg)
	return cfg, nil
}

// Parse decodes config YAML. Unknown keys are rejected so typos surface
// instead of being silently ignored.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}
