// Package device builds the dependencies of a worker device: the shared
// backend clients, the device storage and the offline machinery on top of them.
package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/backend/blob"
	"github.com/slok/fieldwork/internal/backend/directions"
	"github.com/slok/fieldwork/internal/backend/gormstore"
	"github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/backend/redis"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/metrics"
	metricsprometheus "github.com/slok/fieldwork/internal/metrics/prometheus"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/secret"
	"github.com/slok/fieldwork/internal/session"
	"github.com/slok/fieldwork/internal/storage/sqlite"
)

// Config is the configuration of a device.
type Config struct {
	// DataDir holds the device database and, by default, the SQLite backend and the blobs.
	DataDir string
	Backend model.BackendKind
	// BackendDSN is the SQLite backend database path.
	BackendDSN string
	// RedisAddr enables the realtime job updates through redis.
	RedisAddr string
	BlobDir   string
	// S3 uploads the files to S3 instead of the blob dir.
	S3               *model.S3Settings
	DirectionsAPIKey string
	DirectionsURL    string
	// Offline forces the offline mode, writes are queued.
	Offline              bool
	ConnectivityInterval time.Duration
	// Passphrase encrypts the device secrets, defaults to one derived from the host.
	Passphrase string
	// Registry receives the device metrics, a new one is created when missing.
	Registry *prometheus.Registry
	Logger   log.Logger
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}

	switch c.Backend {
	case "":
		c.Backend = model.BackendKindSQLite
	case model.BackendKindSQLite, model.BackendKindMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.BackendDSN == "" {
		c.BackendDSN = filepath.Join(c.DataDir, "backend.db")
	}

	if c.Passphrase == "" {
		host, _ := os.Hostname()
		c.Passphrase = "fieldwork:" + host + ":" + c.DataDir
	}

	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// DevicePath is the path of the device database.
func (c Config) DevicePath() string { return filepath.Join(c.DataDir, "device.db") }

// SharedBackend is everything the shared backend serves.
type SharedBackend interface {
	backend.Identity
	backend.JobRepository
	backend.WorkerRepository
	backend.AttendanceRepository
	backend.AttachmentRepository
	backend.Pinger
}

// Device are the dependencies of a worker device.
type Device struct {
	Backend    SharedBackend
	Jobs       backend.JobRepository
	Blobs      backend.BlobStore
	Directions backend.Directions
	// Watcher is nil without a realtime broker.
	Watcher      backend.JobWatcher
	Storage      *sqlite.Repository
	Queue        *offline.Queue
	Replayer     *offline.BackendReplayer
	Source       *jobsource.Source
	Operator     *jobops.Operator
	Tracker      *lifecycle.Tracker
	Sessions     *session.Manager
	Connectivity connectivity.Checker
	// Observer is nil when the offline mode is forced.
	Observer *connectivity.Observer
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases the resources of the device.
func (d *Device) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closers = nil
	return firstErr
}

// Session returns the signed in worker.
func (d *Device) Session(ctx context.Context) (session.Session, error) {
	return d.Sessions.Current(ctx)
}

// New builds a device.
func New(ctx context.Context, cfg Config) (_ *Device, err error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := cfg.Logger

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create data dir: %w", err)
	}

	d := &Device{Registry: cfg.Registry}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	var rec metrics.Recorder = metricsprometheus.NewRecorder(d.Registry)

	// Shared backend.
	switch cfg.Backend {
	case model.BackendKindMemory:
		b, err := memory.NewBackend(memory.BackendConfig{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create memory backend: %w", err)
		}
		d.Backend = b
		d.Blobs = b
	default:
		db, err := gormstore.Open(cfg.BackendDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			d.closers = append(d.closers, sqlDB.Close)
		}
		s, err := gormstore.NewStore(gormstore.StoreConfig{DB: db, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create backend store: %w", err)
		}
		d.Backend = s
	}

	// Realtime job updates.
	var pub backend.JobPublisher
	switch {
	case cfg.RedisAddr != "":
		client, err := redis.NewClient(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, closeRedis(client))
		broker, err := redis.NewBroker(redis.BrokerConfig{Client: client, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create redis broker: %w", err)
		}
		pub, d.Watcher = broker, broker
	case cfg.Backend == model.BackendKindMemory:
		broker := memory.NewBroker(logger)
		pub, d.Watcher = broker, broker
	}
	d.Jobs = d.Backend
	if pub != nil {
		d.Jobs = backend.NewNotifyingJobRepository(d.Backend, pub, logger)
	}

	// Blob storage.
	switch {
	case cfg.S3 != nil && cfg.S3.Bucket != "":
		uploader, err := blob.NewS3Uploader(blob.S3Config{
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		d.Blobs, err = blob.NewS3Store(blob.S3StoreConfig{Uploader: uploader, Bucket: cfg.S3.Bucket, Prefix: cfg.S3.Prefix, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create s3 blob store: %w", err)
		}
	case d.Blobs == nil || cfg.BlobDir != "":
		dir := cfg.BlobDir
		if dir == "" {
			dir = filepath.Join(cfg.DataDir, "blobs")
		}
		d.Blobs, err = blob.NewFSStore(blob.FSStoreConfig{Dir: dir, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create blob store: %w", err)
		}
	}

	// Directions.
	if cfg.DirectionsAPIKey != "" {
		d.Directions, err = directions.NewClient(directions.ClientConfig{APIKey: cfg.DirectionsAPIKey, BaseURL: cfg.DirectionsURL, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create directions client: %w", err)
		}
	} else {
		logger.Debugf("No directions API key, using straight line routes")
		d.Directions = memory.Directions{}
	}

	// Connectivity.
	if cfg.Offline {
		d.Connectivity = connectivity.Static(false)
	} else {
		d.Observer, err = connectivity.NewObserver(connectivity.ObserverConfig{
			Pinger:   d.Backend,
			Interval: cfg.ConnectivityInterval,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create connectivity observer: %w", err)
		}
		d.Connectivity = d.Observer
	}

	// Device storage.
	d.Storage, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: cfg.DevicePath(), Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create device storage: %w", err)
	}
	d.closers = append(d.closers, d.Storage.Close)

	actions, err := sqlite.NewActionRepository(sqlite.ActionRepositoryConfig{DB: d.Storage.DB(), Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create action repository: %w", err)
	}
	d.Queue, err = offline.NewQueue(offline.QueueConfig{Repository: actions, Metrics: rec, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create offline queue: %w", err)
	}

	d.Source, err = jobsource.NewSource(jobsource.SourceConfig{
		Jobs:         d.Jobs,
		Cache:        d.Storage,
		Connectivity: d.Connectivity,
		Queue:        d.Queue,
		Drain: func(ctx context.Context) error {
			_, err := d.Queue.Drain(ctx, d.Replayer)
			return err
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create job source: %w", err)
	}

	d.Operator, err = jobops.NewOperator(jobops.OperatorConfig{Jobs: d.Jobs, Attachments: d.Backend, Blobs: d.Blobs, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create job operator: %w", err)
	}
	d.Replayer, err = offline.NewBackendReplayer(d.Operator, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create replayer: %w", err)
	}

	d.Tracker, err = lifecycle.NewTracker(lifecycle.TrackerConfig{Repository: d.Storage, Metrics: rec, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create stage tracker: %w", err)
	}

	secrets, err := secret.NewStore(d.Storage, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("could not create secret store: %w", err)
	}
	d.Sessions, err = session.NewManager(session.ManagerConfig{
		Identity:     d.Backend,
		Workers:      d.Backend,
		Secrets:      secrets,
		Connectivity: d.Connectivity,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create session manager: %w", err)
	}

	return d, nil
}

func closeRedis(c rueidis.Client) func() error {
	return func() error {
		c.Close()
		return nil
	}
}
