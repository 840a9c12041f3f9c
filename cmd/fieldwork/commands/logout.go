package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/logout"
)

type LogoutCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewLogoutCommand returns the logout command.
func NewLogoutCommand(rootCmd *RootCommand, app *kingpin.Application) *LogoutCommand {
	c := &LogoutCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("logout", "Sign out, clocking out if still on shift.")
	return c
}

func (c LogoutCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogoutCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := logout.NewService(logout.ServiceConfig{
		Sessions:     d.Sessions,
		Attendance:   d.Backend,
		Connectivity: d.Connectivity,
		Logger:       c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, logout.Request{Session: s})
	if err != nil {
		return fmt.Errorf("could not sign out: %w", err)
	}

	p := c.rootCmd.printer(formatTable)
	if res.AutoClockedOut {
		_ = p.PrintMessage("Clocked out")
	}
	return p.PrintMessage("Signed out")
}
