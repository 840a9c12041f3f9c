// Package connectivity knows if the shared backend is reachable and reports
// the online/offline transitions.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
)

// Checker knows if the device is online.
type Checker interface {
	Check(ctx context.Context) bool
}

// Static is a checker with a fixed state, used when connectivity is forced.
type Static bool

func (s Static) Check(context.Context) bool { return bool(s) }

// ObserverConfig is the configuration for the connectivity observer.
type ObserverConfig struct {
	Pinger   backend.Pinger
	Interval time.Duration
	Timeout  time.Duration
	Logger   log.Logger
}

func (c *ObserverConfig) defaults() error {
	if c.Pinger == nil {
		return fmt.Errorf("pinger is required")
	}
	if c.Interval == 0 {
		c.Interval = 10 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "connectivity.Observer"})
	return nil
}

// Observer probes the backend and notifies subscribers when the state changes.
type Observer struct {
	pinger   backend.Pinger
	interval time.Duration
	timeout  time.Duration
	logger   log.Logger

	mu     sync.Mutex
	known  bool
	online bool
	subs   map[int]func(online bool)
	nextID int
}

// NewObserver returns a new connectivity observer.
func NewObserver(cfg ObserverConfig) (*Observer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Observer{
		pinger:   cfg.Pinger,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		subs:     map[int]func(bool){},
	}, nil
}

// Check probes the backend, updates the state and returns if it's online.
func (o *Observer) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	err := o.pinger.Ping(ctx)
	online := err == nil
	if err != nil {
		o.logger.Debugf("Backend ping failed: %s", err)
	}

	o.mu.Lock()
	changed := !o.known || o.online != online
	o.known = true
	o.online = online
	subs := make([]func(bool), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	if changed {
		o.logger.Infof("Connectivity changed, online: %t", online)
		for _, fn := range subs {
			fn(online)
		}
	}

	return online
}

// Online returns the last known state, false if the backend was never probed.
func (o *Observer) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Subscribe registers a function called on every state change. The returned
// function removes the subscription.
func (o *Observer) Subscribe(fn func(online bool)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
		})
	}
}

// Run probes the backend periodically until the context is cancelled.
func (o *Observer) Run(ctx context.Context) error {
	t := time.NewTicker(o.interval)
	defer t.Stop()

	for {
		o.Check(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
