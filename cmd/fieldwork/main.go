package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/fieldwork/cmd/fieldwork/commands"
	"github.com/slok/fieldwork/internal/alert"
	"github.com/slok/fieldwork/internal/log"
	loglogrus "github.com/slok/fieldwork/internal/log/logrus"
	"github.com/slok/fieldwork/internal/model"
	storageio "github.com/slok/fieldwork/internal/storage/io"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"

	configEnvVar = "FIELDWORK_CONFIG"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	settings, err := loadSettings(ctx, args[1:])
	if err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}

	app := kingpin.New("fieldwork", "Field service worker client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app, settings)

	// Setup commands (registers flags).
	loginCmd := commands.NewLoginCommand(rootCmd, app)
	logoutCmd := commands.NewLogoutCommand(rootCmd, app)
	whoamiCmd := commands.NewWhoamiCommand(rootCmd, app)
	attendanceCmd := commands.NewAttendanceCommand(rootCmd, app)
	dashboardCmd := commands.NewDashboardCommand(rootCmd, app)
	syncCmd := commands.NewSyncCommand(rootCmd, app)
	seedCmd := commands.NewSeedCommand(rootCmd, app)
	serveCmd := commands.NewServeCommand(rootCmd, app)

	// Job subcommands share a parent command.
	jobsCmd := app.Command("jobs", "Manage the assigned jobs.")
	jobListCmd := commands.NewJobListCommand(rootCmd, jobsCmd)
	jobShowCmd := commands.NewJobShowCommand(rootCmd, jobsCmd)
	jobStartCmd := commands.NewJobStartCommand(rootCmd, jobsCmd)
	jobStageCmd := commands.NewJobStageCommand(rootCmd, jobsCmd)
	jobNavigateCmd := commands.NewJobNavigateCommand(rootCmd, jobsCmd)
	jobServiceCmd := commands.NewJobServiceCommand(rootCmd, jobsCmd)
	jobAttachCmd := commands.NewJobAttachCommand(rootCmd, jobsCmd)
	jobCompleteCmd := commands.NewJobCompleteCommand(rootCmd, jobsCmd)
	jobWatchCmd := commands.NewJobWatchCommand(rootCmd, jobsCmd)

	customersCmd := app.Command("customers", "Browse the customers of the jobs.")
	customerListCmd := commands.NewCustomerListCommand(rootCmd, customersCmd)
	customerShowCmd := commands.NewCustomerShowCommand(rootCmd, customersCmd)

	cmds := map[string]commands.Command{
		loginCmd.Name():        loginCmd,
		logoutCmd.Name():       logoutCmd,
		whoamiCmd.Name():       whoamiCmd,
		attendanceCmd.Name():   attendanceCmd,
		dashboardCmd.Name():    dashboardCmd,
		syncCmd.Name():         syncCmd,
		seedCmd.Name():         seedCmd,
		serveCmd.Name():        serveCmd,
		jobListCmd.Name():      jobListCmd,
		jobShowCmd.Name():      jobShowCmd,
		jobStartCmd.Name():     jobStartCmd,
		jobStageCmd.Name():     jobStageCmd,
		jobNavigateCmd.Name():  jobNavigateCmd,
		jobServiceCmd.Name():   jobServiceCmd,
		jobAttachCmd.Name():    jobAttachCmd,
		jobCompleteCmd.Name():  jobCompleteCmd,
		jobWatchCmd.Name():     jobWatchCmd,
		customerListCmd.Name(): customerListCmd,
		customerShowCmd.Name(): customerShowCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that print views so logs don't mix
	// with the printer output. Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"dashboard":      true,
		"attendance":     true,
		"jobs list":      true,
		"jobs show":      true,
		"jobs stage":     true,
		"jobs navigate":  true,
		"customers list": true,
		"customers show": true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(*rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					rootCmd.Logger.Errorf("%q command failed: %s", cmdName, err)
					return &commandError{cmd: cmdName, err: err}
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// commandError is a failed command execution, it is shown to the worker as an alert.
type commandError struct {
	cmd string
	err error
}

func (e *commandError) Error() string { return fmt.Sprintf("%q command failed: %s", e.cmd, e.err) }
func (e *commandError) Unwrap() error { return e.err }

// loadSettings loads the YAML settings file selected with the config flag, the
// config env var or, if it exists, the one on the default data dir.
func loadSettings(ctx context.Context, args []string) (model.Settings, error) {
	path, explicit := configPath(args)
	if path == "" {
		path = filepath.Join(commands.DefaultDataDir(), "config.yaml")
	}

	repo := storageio.NewSettingsYAMLRepository(os.DirFS(filepath.Dir(path)))
	settings, err := repo.GetSettings(ctx, filepath.Base(path))
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return model.Settings{}, nil
		}
		return model.Settings{}, err
	}

	return settings, nil
}

// configPath looks for the config file before the flags are parsed, flag
// defaults depend on its settings.
func configPath(args []string) (path string, explicit bool) {
	for i, arg := range args {
		switch {
		case arg == "--config" && i+1 < len(args):
			return args[i+1], true
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config="), true
		}
	}

	if p := os.Getenv(configEnvVar); p != "" {
		return p, true
	}

	return "", false
}

// getLogger returns the application logger.
func getLogger(config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	// A missing .env file is fine, the environment is used as is.
	_ = godotenv.Load()

	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		var cmdErr *commandError
		if errors.As(err, &cmdErr) {
			a := alert.FromError(cmdErr.err)
			fmt.Fprintf(os.Stderr, "%s: %s\n", a.Title, a.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}
