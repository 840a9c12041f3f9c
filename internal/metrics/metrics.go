package metrics

import (
	"context"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// Recorder knows how to record application metrics.
type Recorder interface {
	StageDecision(ctx context.Context, target model.Stage, allowed bool, reason string)
	ActionEnqueued(ctx context.Context, t model.ActionType, persisted bool)
	QueueDrained(ctx context.Context, replayed, remaining int, duration time.Duration, success bool)
}

// Noop is a recorder that doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) StageDecision(context.Context, model.Stage, bool, string)    {}
func (noop) ActionEnqueued(context.Context, model.ActionType, bool)      {}
func (noop) QueueDrained(context.Context, int, int, time.Duration, bool) {}
