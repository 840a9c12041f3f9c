package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/fieldwork/internal/app/sync"
	"github.com/slok/fieldwork/internal/device"
)

type SyncCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	dryRun  bool
	watch   bool
	discard []string
	format  string
}

// NewSyncCommand returns the sync command.
func NewSyncCommand(rootCmd *RootCommand, app *kingpin.Application) *SyncCommand {
	c := &SyncCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("sync", "Replay the offline actions on the backend.")
	c.Cmd.Flag("dry-run", "Only list the pending actions.").BoolVar(&c.dryRun)
	c.Cmd.Flag("watch", "Keep running and sync every time connectivity comes back.").BoolVar(&c.watch)
	c.Cmd.Flag("discard", "ID of a pending action to drop without replaying it, can be repeated.").StringsVar(&c.discard)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c SyncCommand) Name() string { return c.Cmd.FullCommand() }

func (c SyncCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := sync.NewService(sync.ServiceConfig{
		Queue:        d.Queue,
		Replayer:     d.Replayer,
		Connectivity: d.Connectivity,
		Logger:       c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	if c.watch && !c.dryRun {
		if d.Observer == nil {
			return fmt.Errorf("watching requires connectivity, remove the offline flag")
		}
		return c.runWatch(ctx, svc, d)
	}

	res, syncErr := svc.Run(ctx, sync.Request{DryRun: c.dryRun, Discard: c.discard})

	p := c.rootCmd.printer(c.format)
	if c.format == formatTable {
		if res.Discarded > 0 {
			_ = p.PrintMessage(fmt.Sprintf("Discarded %d actions", res.Discarded))
		}
		switch {
		case !res.Online:
			_ = p.PrintMessage("Offline, nothing replayed")
		case !c.dryRun:
			_ = p.PrintMessage(fmt.Sprintf("Replayed %d actions", res.Replayed))
		}
	}
	if err := p.PrintQueue(res.Pending); err != nil {
		return err
	}

	return syncErr
}

func (c SyncCommand) runWatch(ctx context.Context, svc *sync.Service, d *device.Device) error {
	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error { return d.Observer.Run(ctx) },
			func(_ error) { cancel() },
		)
	}

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				c.rootCmd.Logger.Infof("Watching connectivity to sync offline actions")
				return svc.Watch(ctx, d.Observer)
			},
			func(_ error) { cancel() },
		)
	}

	return g.Run()
}
