// Package gormstore is the shared backend on a SQL database through GORM.
// Documents are stored as JSON with the columns needed to query them.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
)

type credentialRow struct {
	UID          string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte `gorm:"not null"`
	CreatedAt    time.Time
}

type jobRow struct {
	ID         string    `gorm:"primaryKey;size:64"`
	JobNo      string    `gorm:"index;not null"`
	CustomerID string    `gorm:"index"`
	Status     string    `gorm:"type:varchar(20);not null"`
	StartDate  time.Time `gorm:"index;not null"`
	Version    int       `gorm:"not null;default:1"`
	Document   []byte    `gorm:"not null"`
	UpdatedAt  time.Time
}

type jobWorkerRow struct {
	JobID    string `gorm:"primaryKey;size:64"`
	WorkerID string `gorm:"primaryKey;size:64;index"`
}

type workerRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	UID      string `gorm:"uniqueIndex;not null"`
	Document []byte `gorm:"not null"`
}

type attendanceRow struct {
	WorkerID string `gorm:"primaryKey;size:64"`
	Day      string `gorm:"primaryKey;size:10"`
	Document []byte `gorm:"not null"`
}

type signatureRow struct {
	JobID     string `gorm:"primaryKey;size:64"`
	Kind      string `gorm:"primaryKey;size:20"`
	WorkerID  string `gorm:"primaryKey;size:64"`
	URL       string `gorm:"not null"`
	SignedBy  string
	Timestamp time.Time
}

type imageRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	JobID       string `gorm:"index;not null"`
	URL         string `gorm:"not null"`
	Description string
	UploadedBy  string
	CreatedAt   time.Time `gorm:"index"`
}

// Open opens a SQLite database and migrates the backend schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the backend schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&credentialRow{},
		&jobRow{},
		&jobWorkerRow{},
		&workerRow{},
		&attendanceRow{},
		&signatureRow{},
		&imageRow{},
	)
	if err != nil {
		return fmt.Errorf("could not migrate backend schema: %w", err)
	}
	return nil
}

// StoreConfig is the configuration for the GORM backend store.
type StoreConfig struct {
	DB     *gorm.DB
	Logger log.Logger
	// BcryptCost is the password hashing cost, defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func (c *StoreConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.GORM"})

	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return nil
}

// Store is a GORM implementation of the shared backend.
type Store struct {
	db         *gorm.DB
	logger     log.Logger
	bcryptCost int
}

// NewStore returns a new GORM backend store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		db:         cfg.DB,
		logger:     cfg.Logger,
		bcryptCost: cfg.BcryptCost,
	}, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("could not get database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

var (
	_ backend.Identity             = &Store{}
	_ backend.JobRepository        = &Store{}
	_ backend.WorkerRepository     = &Store{}
	_ backend.AttendanceRepository = &Store{}
	_ backend.AttachmentRepository = &Store{}
	_ backend.Pinger               = &Store{}
)
