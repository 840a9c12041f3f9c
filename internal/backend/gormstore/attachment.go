package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

// GetAttendance returns the attendance of a worker for a day.
func (s *Store) GetAttendance(ctx context.Context, workerID, day string) (*model.Attendance, error) {
	var row attendanceRow
	if err := s.db.WithContext(ctx).First(&row, "worker_id = ? AND day = ?", workerID, day).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("attendance of %s on %s: %w", workerID, day, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get attendance: %w", err)
	}

	a, err := document.DecodeAttendance(row.Document)
	if err != nil {
		return nil, fmt.Errorf("stored attendance of %s on %s: %w", workerID, day, err)
	}
	return &a, nil
}

// SaveAttendance creates or replaces an attendance record.
func (s *Store) SaveAttendance(ctx context.Context, a model.Attendance) error {
	data, err := document.EncodeAttendance(a)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&attendanceRow{WorkerID: a.WorkerID, Day: a.Day, Document: data}).Error
	if err != nil {
		return fmt.Errorf("could not save attendance: %w", err)
	}
	return nil
}

// SaveSignature creates or replaces a signature.
func (s *Store) SaveSignature(ctx context.Context, sig model.Signature) error {
	row := signatureRow{
		JobID:     sig.JobID,
		Kind:      string(sig.Kind),
		WorkerID:  sig.WorkerID,
		URL:       sig.URL,
		SignedBy:  sig.SignedBy,
		Timestamp: sig.Timestamp.UTC(),
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("could not save signature: %w", err)
	}
	return nil
}

// GetSignature returns a signature.
func (s *Store) GetSignature(ctx context.Context, jobID string, kind model.SignatureKind, workerID string) (*model.Signature, error) {
	var row signatureRow
	err := s.db.WithContext(ctx).First(&row, "job_id = ? AND kind = ? AND worker_id = ?", jobID, string(kind), workerID).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%s signature of %s on job %s: %w", kind, workerID, jobID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get signature: %w", err)
	}

	return &model.Signature{
		JobID:     row.JobID,
		Kind:      model.SignatureKind(row.Kind),
		WorkerID:  row.WorkerID,
		URL:       row.URL,
		SignedBy:  row.SignedBy,
		Timestamp: row.Timestamp.UTC(),
	}, nil
}

// AddImage adds an image to a job.
func (s *Store) AddImage(ctx context.Context, img model.Image) error {
	row := imageRow{
		ID:          img.ID,
		JobID:       img.JobID,
		URL:         img.URL,
		Description: img.Description,
		UploadedBy:  img.UploadedBy,
		CreatedAt:   img.CreatedAt.UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("image %s: %w", img.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not add image: %w", err)
	}
	return nil
}

// ListImages returns the images of a job, newest first.
func (s *Store) ListImages(ctx context.Context, jobID string) ([]model.Image, error) {
	var rows []imageRow
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not list images: %w", err)
	}

	imgs := make([]model.Image, 0, len(rows))
	for _, r := range rows {
		imgs = append(imgs, model.Image{
			ID:          r.ID,
			JobID:       r.JobID,
			URL:         r.URL,
			Description: r.Description,
			UploadedBy:  r.UploadedBy,
			CreatedAt:   r.CreatedAt.UTC(),
		})
	}
	return imgs, nil
}

// DeleteImage removes an image of a job.
func (s *Store) DeleteImage(ctx context.Context, jobID, imageID string) error {
	res := s.db.WithContext(ctx).Where("job_id = ? AND id = ?", jobID, imageID).Delete(&imageRow{})
	if res.Error != nil {
		return fmt.Errorf("could not delete image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("image %s on job %s: %w", imageID, jobID, model.ErrNotFound)
	}
	return nil
}
