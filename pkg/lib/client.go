package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/fieldwork/internal/device"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

const defaultDataDir = ".fieldwork"

// BackendType identifies the shared backend implementation.
type BackendType string

const (
	// BackendSQLite stores the shared backend in a SQLite database.
	BackendSQLite BackendType = "sqlite"

	// BackendMemory keeps the shared backend in memory, it is lost on Close.
	// Use this for testing without infrastructure dependencies.
	BackendMemory BackendType = "memory"
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} uses ~/.fieldwork as the data dir
// with the SQLite backend on it.
type Config struct {
	// DataDir is the directory of the device data.
	// Default: ~/.fieldwork.
	DataDir string

	// Backend selects the shared backend.
	// Default: [BackendSQLite].
	Backend BackendType

	// BackendDSN is the SQLite backend database path.
	// Default: backend.db on the data dir.
	BackendDSN string

	// Offline forces the offline mode, writes are queued until [Client.Sync].
	Offline bool

	// Passphrase encrypts the device secrets.
	// Default: derived from the host and the data dir.
	Passphrase string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, defaultDataDir)
	}

	if c.Backend == "" {
		c.Backend = BackendSQLite
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for a worker device.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	dev    *device.Device
	logger log.Logger
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the databases:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dev, err := device.New(ctx, device.Config{
		DataDir:    cfg.DataDir,
		Backend:    model.BackendKind(cfg.Backend),
		BackendDSN: cfg.BackendDSN,
		Offline:    cfg.Offline,
		Passphrase: cfg.Passphrase,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create device: %w", err))
	}

	return &Client{
		dev:    dev,
		logger: cfg.Logger,
	}, nil
}

// Close releases resources held by the client, including the databases.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	return c.dev.Close()
}

// Online reports if the backend is reachable.
func (c *Client) Online(ctx context.Context) bool {
	return c.dev.Connectivity.Check(ctx)
}
