package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/attendance"
)

type AttendanceCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	action string
	format string
}

// NewAttendanceCommand returns the attendance command.
func NewAttendanceCommand(rootCmd *RootCommand, app *kingpin.Application) *AttendanceCommand {
	c := &AttendanceCommand{rootCmd: rootCmd}

	actions := make([]string, 0, len(attendance.Actions()))
	for _, a := range attendance.Actions() {
		actions = append(actions, string(a))
	}

	c.Cmd = app.Command("attendance", "Clock in, clock out and breaks of today's shift.")
	c.Cmd.Arg("action", "Attendance action.").Default(string(attendance.ActionStatus)).EnumVar(&c.action, actions...)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c AttendanceCommand) Name() string { return c.Cmd.FullCommand() }

func (c AttendanceCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Session(ctx)
	if err != nil {
		return err
	}

	svc, err := attendance.NewService(attendance.ServiceConfig{
		Repository:   d.Backend,
		Connectivity: d.Connectivity,
		Logger:       c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, attendance.Request{Session: s, Action: attendance.Action(c.action)})
	if err != nil {
		return fmt.Errorf("could not %s: %w", c.action, err)
	}

	return c.rootCmd.printer(c.format).PrintAttendance(res.Attendance, res.Working)
}
