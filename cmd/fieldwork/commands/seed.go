package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/seed"
	"github.com/slok/fieldwork/internal/device"
	storageio "github.com/slok/fieldwork/internal/storage/io"
)

type SeedCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file string
}

// NewSeedCommand returns the seed command.
func NewSeedCommand(rootCmd *RootCommand, app *kingpin.Application) *SeedCommand {
	c := &SeedCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("seed", "Load workers and jobs from a YAML fixtures file into the backend.")
	c.Cmd.Arg("file", "Fixtures file.").Required().StringVar(&c.file)

	return c
}

func (c SeedCommand) Name() string { return c.Cmd.FullCommand() }

func (c SeedCommand) Run(ctx context.Context) error {
	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := seedFixtures(ctx, c.rootCmd, d, c.file)
	if err != nil {
		return err
	}

	return c.rootCmd.printer(formatTable).PrintMessage(fmt.Sprintf("Seeded %d workers and %d jobs, %d skipped", res.Workers, res.Jobs, res.Skipped))
}

func seedFixtures(ctx context.Context, rootCmd *RootCommand, d *device.Device, file string) (seed.Result, error) {
	svc, err := seed.NewService(seed.ServiceConfig{
		Fixtures: storageio.NewFixturesYAMLRepository(os.DirFS(filepath.Dir(file))),
		Identity: d.Backend,
		Workers:  d.Backend,
		Jobs:     d.Jobs,
		Logger:   rootCmd.Logger,
	})
	if err != nil {
		return seed.Result{}, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, seed.Request{Path: filepath.Base(file)})
	if err != nil {
		return seed.Result{}, fmt.Errorf("could not seed fixtures: %w", err)
	}
	return res, nil
}
