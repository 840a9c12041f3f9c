package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/labstack/echo/v4"
	"github.com/oklog/run"

	"github.com/slok/fieldwork/internal/app/customers"
	"github.com/slok/fieldwork/internal/app/dashboard"
	"github.com/slok/fieldwork/internal/app/joblist"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/app/sync"
	"github.com/slok/fieldwork/internal/device"
	fieldworkhttp "github.com/slok/fieldwork/internal/http"
)

const shutdownTimeout = 10 * time.Second

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listen    string
	rateLimit int
	fixtures  string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	settings := rootCmd.Settings
	c.Cmd = app.Command("serve", "Serve the worker views over an HTTP API.")
	c.Cmd.Flag("listen", "Listen address.").Default(or(settings.HTTPListen, ":8080")).StringVar(&c.listen)
	c.Cmd.Flag("rate-limit", "API requests per minute per client, 0 disables it.").Default(fmt.Sprint(settings.HTTPRateLimit)).IntVar(&c.rateLimit)
	c.Cmd.Flag("fixtures", "Seed the backend with a fixtures file before serving.").StringVar(&c.fixtures)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	d, err := newDeps(ctx, *c.rootCmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if c.fixtures != "" {
		res, err := seedFixtures(ctx, c.rootCmd, d, c.fixtures)
		if err != nil {
			return err
		}
		logger.Infof("Seeded %d workers and %d jobs", res.Workers, res.Jobs)
	}

	syncSvc, err := sync.NewService(sync.ServiceConfig{Queue: d.Queue, Replayer: d.Replayer, Connectivity: d.Connectivity, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create sync service: %w", err)
	}

	h, err := c.newHandler(d, syncSvc)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	fieldworkhttp.Register(e, h, fieldworkhttp.RoutesConfig{
		RateLimitPerMinute: c.rateLimit,
		Gatherer:           d.Registry,
	})

	var g run.Group

	g.Add(
		func() error {
			logger.Infof("HTTP server listening on %s", c.listen)
			if err := e.Start(c.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		func(_ error) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = e.Shutdown(ctx)
		},
	)

	if d.Observer != nil {
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
				func() error { return syncSvc.Watch(ctx, d.Observer) },
				func(_ error) { cancel() },
			)
		}
	}

	// Stop with the command context.
	g.Add(
		func() error {
			<-ctx.Done()
			return nil
		},
		func(_ error) {},
	)

	return g.Run()
}

func (c ServeCommand) newHandler(d *device.Device, syncSvc *sync.Service) (*fieldworkhttp.Handler, error) {
	logger := c.rootCmd.Logger

	jl, err := joblist.NewService(joblist.ServiceConfig{Source: d.Source, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create job list service: %w", err)
	}
	js, err := jobshow.NewService(jobshow.ServiceConfig{Source: d.Source, Tracker: d.Tracker, Attachments: d.Backend, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create job show service: %w", err)
	}
	st, err := stage.NewService(stage.ServiceConfig{Source: d.Source, Tracker: d.Tracker, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create stage service: %w", err)
	}
	cs, err := customers.NewService(customers.ServiceConfig{Source: d.Source, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create customers service: %w", err)
	}
	db, err := dashboard.NewService(dashboard.ServiceConfig{Source: d.Source, Workers: d.Backend, Attendance: d.Backend, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create dashboard service: %w", err)
	}

	h, err := fieldworkhttp.NewHandler(fieldworkhttp.HandlerConfig{
		Sessions:     d.Sessions,
		Jobs:         jl,
		Job:          js,
		Stage:        st,
		Customers:    cs,
		Dashboard:    db,
		Queue:        syncSvc,
		Connectivity: d.Connectivity,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create http handler: %w", err)
	}
	return h, nil
}
