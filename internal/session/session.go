// Package session owns the signed in worker. The Session value is passed
// explicitly to every use case and the Manager is the only one writing it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

const (
	workerIDKey = "worker-id"
	userKey     = "user"
)

// Session is the signed in worker.
type Session struct {
	WorkerID string
	UID      string
	Email    string
	FullName string
	// Offline is true when the session was opened without reaching the backend.
	Offline bool
}

// SecretStore stores device secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type cachedUser struct {
	WorkerID     string `json:"workerId"`
	UID          string `json:"uid"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	PasswordHash []byte `json:"passwordHash"`
}

// ManagerConfig is the configuration for the session manager.
type ManagerConfig struct {
	Identity     backend.Identity
	Workers      backend.WorkerRepository
	Secrets      SecretStore
	Connectivity connectivity.Checker
	Logger       log.Logger
	// BcryptCost is the cost of the hash used for offline sign in.
	BcryptCost int
	Now        func() time.Time
}

func (c *ManagerConfig) defaults() error {
	if c.Identity == nil {
		return fmt.Errorf("identity is required")
	}
	if c.Workers == nil {
		return fmt.Errorf("workers repository is required")
	}
	if c.Secrets == nil {
		return fmt.Errorf("secret store is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "session.Manager"})

	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Manager signs workers in and out.
type Manager struct {
	identity     backend.Identity
	workers      backend.WorkerRepository
	secrets      SecretStore
	connectivity connectivity.Checker
	logger       log.Logger
	bcryptCost   int
	now          func() time.Time
	mu           sync.Mutex
}

// NewManager returns a new session manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		identity:     cfg.Identity,
		workers:      cfg.Workers,
		secrets:      cfg.Secrets,
		connectivity: cfg.Connectivity,
		logger:       cfg.Logger,
		bcryptCost:   cfg.BcryptCost,
		now:          cfg.Now,
	}, nil
}

// SignIn signs a worker in. Without connectivity, the last signed in worker
// on the device can sign in again with the same credentials.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("please enter both email and password: %w", model.ErrNotValid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectivity.Check(ctx) {
		return m.offlineSignIn(ctx, email, password)
	}

	id, err := m.identity.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, fmt.Errorf("could not sign in: %w", err)
	}

	w, err := m.workers.GetWorkerByUID(ctx, id.UID)
	if err != nil {
		return Session{}, fmt.Errorf("could not get worker profile: %w", err)
	}

	s := Session{
		WorkerID: w.ID,
		UID:      id.UID,
		Email:    id.Email,
		FullName: w.FullName,
	}

	if err := m.store(ctx, s, password); err != nil {
		return Session{}, err
	}

	logger := m.logger.WithCtxValues(ctx).WithValues(log.Kv{"worker-id": s.WorkerID})
	if err := m.workers.SetPresence(ctx, s.WorkerID, true, m.now()); err != nil {
		logger.Warningf("Could not mark worker online: %s", err)
	}
	logger.Infof("Worker signed in")

	return s, nil
}

func (m *Manager) store(ctx context.Context, s Session, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	data, err := json.Marshal(cachedUser{
		WorkerID:     s.WorkerID,
		UID:          s.UID,
		Email:        s.Email,
		FullName:     s.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("could not encode user: %w", err)
	}

	if err := m.secrets.Set(ctx, workerIDKey, s.WorkerID); err != nil {
		return fmt.Errorf("could not store worker id: %w", err)
	}
	if err := m.secrets.Set(ctx, userKey, string(data)); err != nil {
		return fmt.Errorf("could not store user: %w", err)
	}

	return nil
}

func (m *Manager) cachedUser(ctx context.Context) (*cachedUser, error) {
	data, err := m.secrets.Get(ctx, userKey)
	if err != nil {
		return nil, err
	}

	var u cachedUser
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("could not decode cached user: %w", err)
	}
	return &u, nil
}

func (m *Manager) offlineSignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := m.cachedUser(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		m.logger.Warningf("Could not load cached user: %s", err)
	}
	if u == nil || !strings.EqualFold(u.Email, email) {
		return Session{}, fmt.Errorf("offline sign in is only possible for the last signed in worker: %w", model.ErrOffline)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return Session{}, fmt.Errorf("offline sign in: %w", model.ErrUnauthenticated)
	}

	if err := m.secrets.Set(ctx, workerIDKey, u.WorkerID); err != nil {
		return Session{}, fmt.Errorf("could not store worker id: %w", err)
	}
	m.logger.WithCtxValues(ctx).WithValues(log.Kv{"worker-id": u.WorkerID}).Infof("Worker signed in offline")

	return Session{
		WorkerID: u.WorkerID,
		UID:      u.UID,
		Email:    u.Email,
		FullName: u.FullName,
		Offline:  true,
	}, nil
}

// Current returns the session stored on the device, model.ErrNoSession if
// no worker is signed in.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	workerID, err := m.secrets.Get(ctx, workerIDKey)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Session{}, model.ErrNoSession
		}
		return Session{}, fmt.Errorf("could not get worker id: %w", err)
	}

	s := Session{WorkerID: workerID}
	u, err := m.cachedUser(ctx)
	if err != nil {
		m.logger.Debugf("No cached user: %s", err)
		return s, nil
	}
	if u.WorkerID == workerID {
		s.UID = u.UID
		s.Email = u.Email
		s.FullName = u.FullName
	}

	return s, nil
}

// SignOut signs the worker out and removes the worker from the device.
// Backend failures are logged, the local session is always removed.
func (m *Manager) SignOut(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.logger.WithCtxValues(ctx).WithValues(log.Kv{"worker-id": s.WorkerID})
	if m.connectivity.Check(ctx) {
		if err := m.workers.SetPresence(ctx, s.WorkerID, false, m.now()); err != nil {
			logger.Warningf("Could not mark worker offline: %s", err)
		}
		if err := m.identity.SignOut(ctx, s.UID); err != nil {
			logger.Warningf("Could not sign out from identity service: %s", err)
		}
	}

	for _, k := range []string{workerIDKey, userKey} {
		if err := m.secrets.Delete(ctx, k); err != nil {
			return fmt.Errorf("could not remove %s: %w", k, err)
		}
	}
	logger.Infof("Worker signed out")

	return nil
}
