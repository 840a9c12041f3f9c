package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
)

const subscriptionBuffer = 64

// Broker is an in-process job change event broker.
type Broker struct {
	subs   map[*subscription]struct{}
	mu     sync.Mutex
	logger log.Logger
}

// NewBroker returns a new in-process broker.
func NewBroker(logger log.Logger) *Broker {
	if logger == nil {
		logger = log.Noop
	}

	return &Broker{
		subs:   map[*subscription]struct{}{},
		logger: logger.WithValues(log.Kv{"svc": "backend.MemoryBroker"}),
	}
}

// Publish delivers an event to the matching subscriptions. Slow subscribers
// whose buffer is full miss the event.
func (b *Broker) Publish(ctx context.Context, e backend.JobEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		if s.jobID != "" && s.jobID != e.JobID {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.logger.Warningf("subscription buffer full, dropping event of job %s", e.JobID)
		}
	}

	return nil
}

// Subscribe subscribes to the changes of a job, all jobs if the ID is empty.
// The subscription is closed when the context is done.
func (b *Broker) Subscribe(ctx context.Context, jobID string) (backend.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("could not subscribe: %w", err)
	}

	s := &subscription{
		jobID: jobID,
		ch:    make(chan backend.JobEvent, subscriptionBuffer),
		done:  make(chan struct{}),
	}
	s.unsubscribe = func() {
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

// Subscriptions returns the number of live subscriptions.
func (b *Broker) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type subscription struct {
	jobID       string
	ch          chan backend.JobEvent
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Events() <-chan backend.JobEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.unsubscribe()
		close(s.done)
	})
	return nil
}

var (
	_ backend.JobPublisher = &Broker{}
	_ backend.JobWatcher   = &Broker{}
)
