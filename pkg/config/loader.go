package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TuningFile is the optional on-disk overlay for chunker/retrieval/entity
// tuning values, applied on top of environment-derived defaults. Absence of
// the file is not an error — env vars and built-in defaults stand alone.
type TuningFile struct {
	Chunker   *ChunkerConfig   `yaml:"chunker,omitempty"`
	Retrieval *RetrievalConfig `yaml:"retrieval,omitempty"`
	Entity    *EntityConfig    `yaml:"entity,omitempty"`
}

// LoadTuningFile reads and parses an optional YAML tuning file. A missing
// file returns (nil, nil); a malformed one returns ErrInvalidYAML wrapped
// with the file path.
func LoadTuningFile(path string) (*TuningFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}
	data = ExpandEnv(data)

	var tf TuningFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &tf, nil
}

// ApplyTuningFile overlays non-nil sections of a tuning file onto cfg,
// re-validating each overridden section.
func ApplyTuningFile(cfg *Config, tf *TuningFile) error {
	if tf == nil {
		return nil
	}
	if tf.Chunker != nil {
		cfg.Chunker = tf.Chunker
		if err := cfg.Chunker.Validate(); err != nil {
			return err
		}
	}
	if tf.Retrieval != nil {
		cfg.Retrieval = tf.Retrieval
		if err := cfg.Retrieval.Validate(); err != nil {
			return err
		}
	}
	if tf.Entity != nil {
		cfg.Entity = tf.Entity
		if err := cfg.Entity.Validate(); err != nil {
			return err
		}
	}
	return nil
}
