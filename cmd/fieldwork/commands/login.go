package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/login"
)

type LoginCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	email    string
	password string
}

// NewLoginCommand returns the login command.
func NewLoginCommand(rootCmd *RootCommand, app *kingpin.Application) *LoginCommand {
	c := &LoginCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("login", "Sign in as a worker.")
	c.Cmd.Flag("email", "Worker email.").Short('e').StringVar(&c.email)
	c.Cmd.Flag("password", "Worker password.").Short('p').StringVar(&c.password)

	return c
}

func (c LoginCommand) Name() string { return c.Cmd.FullCommand() }

func (c LoginCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	svc, err := login.NewService(login.ServiceConfig{
		Sessions: d.Sessions,
		Jobs:     d.Source,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	s, err := svc.Run(ctx, login.Request{Email: c.email, Password: c.password})
	if err != nil {
		return fmt.Errorf("could not sign in: %w", err)
	}

	msg := fmt.Sprintf("Signed in as %s", or(s.FullName, s.Email))
	if s.Offline {
		msg += " (offline)"
	}
	return c.rootCmd.printer(formatTable).PrintMessage(msg)
}
