package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
)

// ActionRepositoryConfig is the configuration for the SQLite offline action repository.
type ActionRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *ActionRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.ActionRepository"})
	return nil
}

// ActionRepository is a SQLite implementation of storage.ActionRepository.
// The autoincrement sequence keeps the insertion order.
type ActionRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewActionRepository creates a new SQLite offline action repository.
func NewActionRepository(cfg ActionRepositoryConfig) (*ActionRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ActionRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AppendAction stores an action at the tail of the queue.
func (r *ActionRepository) AppendAction(ctx context.Context, a model.OfflineAction) (model.OfflineAction, error) {
	query := `INSERT INTO offline_actions (id, type, payload, created_at) VALUES (?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, a.ID, string(a.Type), a.Payload, a.Timestamp.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: offline_actions.") {
			return model.OfflineAction{}, fmt.Errorf("action %s: %w", a.ID, model.ErrAlreadyExists)
		}
		return model.OfflineAction{}, fmt.Errorf("could not insert action: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return model.OfflineAction{}, fmt.Errorf("could not get action sequence: %w", err)
	}
	a.Seq = seq

	r.logger.Debugf("Queued %s action %s with sequence %d", a.Type, a.ID, seq)
	return a, nil
}

// ListActions returns the queued actions in insertion order.
func (r *ActionRepository) ListActions(ctx context.Context) ([]model.OfflineAction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, id, type, payload, created_at FROM offline_actions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query actions: %w", err)
	}
	defer rows.Close()

	var actions []model.OfflineAction
	for rows.Next() {
		var a model.OfflineAction
		var t string
		var createdAt int64
		if err := rows.Scan(&a.Seq, &a.ID, &t, &a.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan action: %w", err)
		}
		a.Type = model.ActionType(t)
		a.Timestamp = time.Unix(0, createdAt).UTC()
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate actions: %w", err)
	}

	return actions, nil
}

// DeleteAction removes an action from the queue.
func (r *ActionRepository) DeleteAction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offline_actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete action: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("action %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Removed action %s", id)
	return nil
}

var _ storage.ActionRepository = &ActionRepository{}
