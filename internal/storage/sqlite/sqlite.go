// Package sqlite is the local device storage on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
	"github.com/slok/fieldwork/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository stores the stage progress, the job snapshots and the local
// key values.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository opens the database and applies the migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if _, err := migrator.Up(); err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Debugf("SQLite repository ready at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the database so other repositories can share the connection.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

// GetProgress returns the workflow state of a worker on a job.
func (r *Repository) GetProgress(ctx context.Context, jobID, workerID string) (*model.StageProgress, error) {
	query := `
		SELECT active, details, navigate, service, complete, route
		FROM stage_progress
		WHERE job_id = ? AND worker_id = ?
	`

	p := model.StageProgress{JobID: jobID, WorkerID: workerID}
	var active string
	var route sql.NullString
	err := r.db.QueryRowContext(ctx, query, jobID, workerID).Scan(
		&active,
		&p.Flags.Details,
		&p.Flags.Navigate,
		&p.Flags.Service,
		&p.Flags.Complete,
		&route,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("progress of %s on job %s: %w", workerID, jobID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query progress: %w", err)
	}

	p.Active, err = model.ParseStage(active)
	if err != nil {
		return nil, fmt.Errorf("stored progress: %w", err)
	}
	if route.Valid {
		var rt model.Route
		if err := json.Unmarshal([]byte(route.String), &rt); err != nil {
			return nil, fmt.Errorf("could not decode stored route: %w", err)
		}
		p.Route = &rt
	}

	return &p, nil
}

// SaveProgress creates or replaces the workflow state of a worker on a job.
func (r *Repository) SaveProgress(ctx context.Context, p model.StageProgress) error {
	var route sql.NullString
	if p.Route != nil {
		data, err := json.Marshal(p.Route)
		if err != nil {
			return fmt.Errorf("could not encode route: %w", err)
		}
		route = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO stage_progress (job_id, worker_id, active, details, navigate, service, complete, route)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, worker_id) DO UPDATE SET
			active = excluded.active,
			details = excluded.details,
			navigate = excluded.navigate,
			service = excluded.service,
			complete = excluded.complete,
			route = excluded.route
	`
	_, err := r.db.ExecContext(ctx, query,
		p.JobID, p.WorkerID, string(p.Active),
		p.Flags.Details, p.Flags.Navigate, p.Flags.Service, p.Flags.Complete,
		route,
	)
	if err != nil {
		return fmt.Errorf("could not save progress: %w", err)
	}

	return nil
}

// DeleteProgress removes the workflow state of a worker on a job.
func (r *Repository) DeleteProgress(ctx context.Context, jobID, workerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stage_progress WHERE job_id = ? AND worker_id = ?`, jobID, workerID)
	if err != nil {
		return fmt.Errorf("could not delete progress: %w", err)
	}
	return nil
}

// PutJob stores a job snapshot, replacing the previous one.
func (r *Repository) PutJob(ctx context.Context, j model.Job) error {
	data, err := document.EncodeJob(j)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_cache (id, start_date, document) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET start_date = excluded.start_date, document = excluded.document
	`
	if _, err := r.db.ExecContext(ctx, query, j.ID, j.StartDate.UnixNano(), data); err != nil {
		return fmt.Errorf("could not cache job: %w", err)
	}

	return nil
}

// GetJob returns a cached job snapshot.
func (r *Repository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT document FROM job_cache WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cached job %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query cached job: %w", err)
	}

	j, err := document.DecodeJob(data)
	if err != nil {
		return nil, fmt.Errorf("cached job %s: %w", id, err)
	}

	return &j, nil
}

// ListJobs returns the cached job snapshots, newest start date first.
// Snapshots that no longer decode are skipped.
func (r *Repository) ListJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, document FROM job_cache ORDER BY start_date DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query cached jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("could not scan cached job: %w", err)
		}

		j, err := document.DecodeJob(data)
		if err != nil {
			r.logger.Warningf("Ignoring invalid cached job %s: %s", id, err)
			continue
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate cached jobs: %w", err)
	}

	return jobs, nil
}

// ClearJobs removes every cached job snapshot.
func (r *Repository) ClearJobs(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_cache`); err != nil {
		return fmt.Errorf("could not clear job cache: %w", err)
	}
	return nil
}

// GetValue returns a stored value.
func (r *Repository) GetValue(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query key: %w", err)
	}
	return v, nil
}

// SetValue stores a value.
func (r *Repository) SetValue(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("could not store key: %w", err)
	}
	return nil
}

// DeleteValue removes a stored value, missing keys are ignored.
func (r *Repository) DeleteValue(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("could not delete key: %w", err)
	}
	return nil
}

var (
	_ storage.ProgressRepository = &Repository{}
	_ storage.JobCache           = &Repository{}
	_ storage.KV                 = &Repository{}
)
