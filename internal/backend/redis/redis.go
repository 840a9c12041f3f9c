// Package redis publishes and watches job change events on Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

const (
	defaultPrefix = "fieldwork:jobs:"
	bufferSize    = 64
)

// NewClient returns a Redis client for an address.
func NewClient(addr string) (rueidis.Client, error) {
	c, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create redis client: %w", err)
	}
	return c, nil
}

type event struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Version int    `json:"version"`
	At      string `json:"at"`
}

// BrokerConfig is the configuration for the Redis job event broker.
type BrokerConfig struct {
	Client rueidis.Client
	// Prefix is the prefix of the job channels.
	Prefix string
	Logger log.Logger
}

func (c *BrokerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("redis client is required")
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.RedisBroker"})
	return nil
}

// Broker publishes job events on one channel per job.
type Broker struct {
	client rueidis.Client
	prefix string
	logger log.Logger
}

// NewBroker returns a new Redis job event broker.
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Broker{
		client: cfg.Client,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
	}, nil
}

// Publish publishes a job event.
func (b *Broker) Publish(ctx context.Context, e backend.JobEvent) error {
	data, err := json.Marshal(event{
		JobID:   e.JobID,
		Status:  string(e.Status),
		Version: e.Version,
		At:      e.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("could not encode job event: %w", err)
	}

	cmd := b.client.B().Publish().Channel(b.prefix + e.JobID).Message(string(data)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("could not publish job event: %w", err)
	}

	return nil
}

// Subscribe subscribes to the events of a job, or all the jobs when the ID is empty.
func (b *Broker) Subscribe(ctx context.Context, jobID string) (backend.Subscription, error) {
	var cmd rueidis.Completed
	if jobID == "" {
		cmd = b.client.B().Psubscribe().Pattern(b.prefix + "*").Build()
	} else {
		cmd = b.client.B().Subscribe().Channel(b.prefix + jobID).Build()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		ch:     make(chan backend.JobEvent, bufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	logger := b.logger.WithValues(log.Kv{"job-id": jobID})
	go func() {
		defer close(s.done)
		defer close(s.ch)

		err := b.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
			e, err := decodeEvent(msg.Message)
			if err != nil {
				logger.Warningf("Ignoring invalid job event on %s: %s", msg.Channel, err)
				return
			}
			if e.JobID == "" {
				e.JobID = strings.TrimPrefix(msg.Channel, b.prefix)
			}

			select {
			case s.ch <- e:
			default:
				logger.Warningf("Subscriber is slow, dropping event of job %s", e.JobID)
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Errorf("Job event subscription ended: %s", err)
		}
	}()

	return s, nil
}

func decodeEvent(data string) (backend.JobEvent, error) {
	var e event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return backend.JobEvent{}, err
	}

	at, err := time.Parse(time.RFC3339Nano, e.At)
	if err != nil {
		return backend.JobEvent{}, fmt.Errorf("invalid event time: %w", err)
	}

	return backend.JobEvent{
		JobID:   e.JobID,
		Status:  model.JobStatus(e.Status),
		Version: e.Version,
		At:      at,
	}, nil
}

type subscription struct {
	ch     chan backend.JobEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan backend.JobEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

var (
	_ backend.JobPublisher = &Broker{}
	_ backend.JobWatcher   = &Broker{}
)
