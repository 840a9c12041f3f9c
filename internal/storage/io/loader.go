package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/fieldwork/internal/model"
)

// SettingsYAMLRepository loads the application settings from YAML files.
type SettingsYAMLRepository struct {
	fs fs.FS
}

// NewSettingsYAMLRepository creates a new YAML settings repository.
func NewSettingsYAMLRepository(filesystem fs.FS) *SettingsYAMLRepository {
	return &SettingsYAMLRepository{fs: filesystem}
}

// GetSettings loads the settings from a YAML file and returns a validated domain model.
func (r *SettingsYAMLRepository) GetSettings(ctx context.Context, path string) (model.Settings, error) {
	var cfg Settings
	if err := readYAML(ctx, r.fs, path, &cfg); err != nil {
		return model.Settings{}, err
	}

	if err := cfg.validate(); err != nil {
		return model.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel(), nil
}

func readYAML(ctx context.Context, fsys fs.FS, path string, v any) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// Settings represents the YAML structure of the settings file.
type Settings struct {
	DataDir      string             `yaml:"data_dir"`
	Backend      BackendSettings    `yaml:"backend"`
	Blobs        BlobSettings       `yaml:"blobs"`
	Directions   DirectionsSettings `yaml:"directions"`
	HTTP         HTTPSettings       `yaml:"http"`
	Connectivity struct {
		Interval string `yaml:"interval"`
	} `yaml:"connectivity"`
}

// BackendSettings represents the YAML structure of the shared backend settings.
type BackendSettings struct {
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Redis string `yaml:"redis"`
}

// BlobSettings represents the YAML structure of the blob store settings.
type BlobSettings struct {
	Dir string      `yaml:"dir"`
	S3  *S3Settings `yaml:"s3,omitempty"`
}

// S3Settings represents the YAML structure of the S3 blob store settings.
type S3Settings struct {
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// DirectionsSettings represents the YAML structure of the directions API settings.
type DirectionsSettings struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// HTTPSettings represents the YAML structure of the HTTP API settings.
type HTTPSettings struct {
	Listen    string `yaml:"listen"`
	RateLimit int    `yaml:"rate_limit"`
}

func (c Settings) validate() error {
	switch model.BackendKind(c.Backend.Kind) {
	case "", model.BackendKindMemory, model.BackendKindSQLite:
	default:
		return fmt.Errorf("backend kind must be memory or sqlite, got: %q", c.Backend.Kind)
	}

	if c.Blobs.Dir != "" && c.Blobs.S3 != nil {
		return fmt.Errorf("only one blob store can be specified at a time")
	}
	if c.Blobs.S3 != nil && c.Blobs.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http rate_limit can't be negative, got: %d", c.HTTP.RateLimit)
	}

	if c.Connectivity.Interval != "" {
		d, err := time.ParseDuration(c.Connectivity.Interval)
		if err != nil {
			return fmt.Errorf("connectivity interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("connectivity interval must be positive, got: %s", d)
		}
	}

	return nil
}

func (c Settings) toModel() model.Settings {
	s := model.Settings{
		DataDir:           c.DataDir,
		Backend:           model.BackendKind(c.Backend.Kind),
		BackendDSN:        c.Backend.DSN,
		RedisAddr:         c.Backend.Redis,
		BlobDir:           c.Blobs.Dir,
		DirectionsAPIKey:  c.Directions.APIKey,
		DirectionsBaseURL: c.Directions.BaseURL,
		HTTPListen:        c.HTTP.Listen,
		HTTPRateLimit:     c.HTTP.RateLimit,
	}

	// Already validated.
	s.ConnectivityInterval, _ = time.ParseDuration(c.Connectivity.Interval)

	if c.Blobs.S3 != nil {
		s.S3 = &model.S3Settings{
			Bucket:         c.Blobs.S3.Bucket,
			Prefix:         c.Blobs.S3.Prefix,
			Region:         c.Blobs.S3.Region,
			Endpoint:       c.Blobs.S3.Endpoint,
			ForcePathStyle: c.Blobs.S3.ForcePathStyle,
		}
	}

	return s
}
