package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

func jobToRow(j model.Job) (jobRow, error) {
	data, err := document.EncodeJob(j)
	if err != nil {
		return jobRow{}, err
	}

	return jobRow{
		ID:         j.ID,
		JobNo:      j.JobNo,
		CustomerID: j.CustomerID,
		Status:     string(j.Status),
		StartDate:  j.StartDate.UTC(),
		Version:    j.Version,
		Document:   data,
	}, nil
}

func jobWorkerRows(j model.Job) []jobWorkerRow {
	rows := make([]jobWorkerRow, 0, len(j.AssignedWorkers))
	for _, w := range j.AssignedWorkers {
		rows = append(rows, jobWorkerRow{JobID: j.ID, WorkerID: w.WorkerID})
	}
	return rows
}

// ListJobs lists the jobs matching the query, newest start date first.
func (s *Store) ListJobs(ctx context.Context, q backend.JobQuery) ([]model.Job, error) {
	query := s.db.WithContext(ctx).Model(&jobRow{})
	if q.WorkerID != "" {
		query = query.Where("id IN (?)", s.db.Model(&jobWorkerRow{}).Select("job_id").Where("worker_id = ?", q.WorkerID))
	}
	if q.CustomerID != "" {
		query = query.Where("customer_id = ?", q.CustomerID)
	}

	var rows []jobRow
	if err := query.Order("start_date desc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}

	jobs := make([]model.Job, 0, len(rows))
	for _, r := range rows {
		j, err := document.DecodeJob(r.Document)
		if err != nil {
			return nil, fmt.Errorf("stored job %s: %w", r.ID, err)
		}
		jobs = append(jobs, j)
	}

	return jobs, nil
}

// GetJob returns a job.
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var row jobRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get job: %w", err)
	}

	j, err := document.DecodeJob(row.Document)
	if err != nil {
		return nil, fmt.Errorf("stored job %s: %w", id, err)
	}

	return &j, nil
}

// CreateJob creates a job.
func (s *Store) CreateJob(ctx context.Context, j model.Job) error {
	if j.Version == 0 {
		j.Version = 1
	}
	row, err := jobToRow(j)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("job %s: %w", j.ID, model.ErrAlreadyExists)
			}
			return fmt.Errorf("could not create job: %w", err)
		}

		if ws := jobWorkerRows(j); len(ws) > 0 {
			if err := tx.Create(&ws).Error; err != nil {
				return fmt.Errorf("could not create job assignments: %w", err)
			}
		}
		return nil
	})
}

// UpdateJob replaces a job using optimistic versioning.
func (s *Store) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
	expected := j.Version
	j.Version++
	row, err := jobToRow(j)
	if err != nil {
		return model.Job{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&jobRow{}).
			Where("id = ? AND version = ?", j.ID, expected).
			Updates(map[string]any{
				"job_no":      row.JobNo,
				"customer_id": row.CustomerID,
				"status":      row.Status,
				"start_date":  row.StartDate,
				"document":    row.Document,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("could not update job: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&jobRow{}).Where("id = ?", j.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("could not check job: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("job %s: %w", j.ID, model.ErrNotFound)
			}
			return fmt.Errorf("job %s is not at version %d: %w", j.ID, expected, model.ErrConflict)
		}

		if err := tx.Where("job_id = ?", j.ID).Delete(&jobWorkerRow{}).Error; err != nil {
			return fmt.Errorf("could not clear job assignments: %w", err)
		}
		if ws := jobWorkerRows(j); len(ws) > 0 {
			if err := tx.Create(&ws).Error; err != nil {
				return fmt.Errorf("could not create job assignments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Job{}, err
	}

	return j, nil
}
