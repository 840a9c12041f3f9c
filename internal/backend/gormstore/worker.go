package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

func (s *Store) getWorker(ctx context.Context, where string, arg string) (*model.Worker, error) {
	var row workerRow
	if err := s.db.WithContext(ctx).First(&row, where, arg).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("worker %s: %w", arg, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get worker: %w", err)
	}

	w, err := document.DecodeWorker(row.Document)
	if err != nil {
		return nil, fmt.Errorf("stored worker %s: %w", row.ID, err)
	}
	return &w, nil
}

// GetWorker returns a worker.
func (s *Store) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	return s.getWorker(ctx, "id = ?", id)
}

// GetWorkerByUID returns the worker of an identity.
func (s *Store) GetWorkerByUID(ctx context.Context, uid string) (*model.Worker, error) {
	return s.getWorker(ctx, "uid = ?", uid)
}

// CreateWorker creates a worker.
func (s *Store) CreateWorker(ctx context.Context, w model.Worker) error {
	data, err := document.EncodeWorker(w)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Create(&workerRow{ID: w.ID, UID: w.UID, Document: data}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("worker %s: %w", w.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not create worker: %w", err)
	}

	return nil
}

// SetPresence sets the online presence of a worker.
func (s *Store) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row workerRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return fmt.Errorf("worker %s: %w", id, model.ErrNotFound)
			}
			return fmt.Errorf("could not get worker: %w", err)
		}

		w, err := document.DecodeWorker(row.Document)
		if err != nil {
			return fmt.Errorf("stored worker %s: %w", id, err)
		}
		w.Online = online
		w.LastSeen = &at

		data, err := document.EncodeWorker(w)
		if err != nil {
			return err
		}
		if err := tx.Model(&workerRow{}).Where("id = ?", id).Update("document", data).Error; err != nil {
			return fmt.Errorf("could not update worker: %w", err)
		}
		return nil
	})
}
