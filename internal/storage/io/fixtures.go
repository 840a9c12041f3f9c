package io

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

// FixturesYAMLRepository loads worker and job fixtures from YAML files.
type FixturesYAMLRepository struct {
	fs fs.FS
}

// NewFixturesYAMLRepository creates a new YAML fixtures repository.
func NewFixturesYAMLRepository(filesystem fs.FS) *FixturesYAMLRepository {
	return &FixturesYAMLRepository{fs: filesystem}
}

// Fixtures represents the YAML structure of a fixtures file. Jobs and workers
// use the stored document shape so they go through the same validation as the
// documents read from the backend.
type Fixtures struct {
	Workers []SeedWorker   `yaml:"workers"`
	Jobs    []document.Job `yaml:"jobs"`
}

// SeedWorker represents the YAML structure of a worker fixture.
type SeedWorker struct {
	document.Worker `yaml:",inline"`
	Password        string `yaml:"password"`
}

// GetFixtures loads the fixtures from a YAML file.
func (r *FixturesYAMLRepository) GetFixtures(ctx context.Context, path string) (model.Fixtures, error) {
	var doc Fixtures
	if err := readYAML(ctx, r.fs, path, &doc); err != nil {
		return model.Fixtures{}, err
	}

	var fx model.Fixtures
	for i, w := range doc.Workers {
		mw, err := w.ToModel()
		if err != nil {
			return model.Fixtures{}, fmt.Errorf("worker %d: %w", i, err)
		}
		fx.Workers = append(fx.Workers, model.SeedWorker{Worker: mw, Password: w.Password})
	}

	for i, j := range doc.Jobs {
		mj, err := j.ToModel()
		if err != nil {
			return model.Fixtures{}, fmt.Errorf("job %d: %w", i, err)
		}
		fx.Jobs = append(fx.Jobs, mj)
	}

	return fx, nil
}
