package lib

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/app/sync"
)

// PendingActions lists the actions queued while offline, oldest first.
func (c *Client) PendingActions(ctx context.Context) ([]OfflineAction, error) {
	res, err := c.sync(ctx, true)
	if err != nil {
		return nil, err
	}
	return res.Pending, nil
}

// Sync replays the queued actions on the backend in order. Replaying stops on
// the first failure, the failed action and the ones after it stay queued and
// the error is returned along with the result.
func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	return c.sync(ctx, false)
}

func (c *Client) sync(ctx context.Context, dryRun bool) (*SyncResult, error) {
	svc, err := sync.NewService(sync.ServiceConfig{
		Queue:        c.dev.Queue,
		Replayer:     c.dev.Replayer,
		Connectivity: c.dev.Connectivity,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, sync.Request{DryRun: dryRun})
	result := &SyncResult{
		Online:   res.Online,
		Replayed: res.Replayed,
		Pending:  fromInternalActions(res.Pending),
	}
	return result, mapError(err)
}

// DiscardAction removes a pending offline action without replaying it. An
// action the backend keeps rejecting blocks the ones queued after it until
// it is discarded.
func (c *Client) DiscardAction(ctx context.Context, id string) error {
	return mapError(c.dev.Queue.Discard(ctx, id))
}
