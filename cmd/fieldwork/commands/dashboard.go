package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/dashboard"
)

type DashboardCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewDashboardCommand returns the dashboard command.
func NewDashboardCommand(rootCmd *RootCommand, app *kingpin.Application) *DashboardCommand {
	c := &DashboardCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("dashboard", "Show the summary of the assigned jobs.")
	formatFlag(c.Cmd, &c.format)
	return c
}

func (c DashboardCommand) Name() string { return c.Cmd.FullCommand() }

func (c DashboardCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := dashboard.NewService(dashboard.ServiceConfig{
		Source:     d.Source,
		Workers:    d.Backend,
		Attendance: d.Backend,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, dashboard.Request{Session: s})
	if err != nil {
		return fmt.Errorf("could not load dashboard: %w", err)
	}

	p := c.rootCmd.printer(c.format)
	if c.format == formatTable {
		if res.Worker != nil {
			_ = p.PrintMessage(fmt.Sprintf("Hello %s", res.Worker.FullName))
		}
		if res.Cached {
			_ = p.PrintMessage("Offline, showing cached jobs")
		}
	}
	return p.PrintDashboard(res.Dashboard)
}
