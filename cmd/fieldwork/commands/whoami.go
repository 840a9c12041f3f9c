package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type WhoamiCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewWhoamiCommand returns the whoami command.
func NewWhoamiCommand(rootCmd *RootCommand, app *kingpin.Application) *WhoamiCommand {
	c := &WhoamiCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("whoami", "Show the signed in worker.")
	return c
}

func (c WhoamiCommand) Name() string { return c.Cmd.FullCommand() }

func (c WhoamiCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	return c.rootCmd.printer(formatTable).PrintMessage(fmt.Sprintf("%s <%s> (worker %s)", s.FullName, s.Email, s.WorkerID))
}
