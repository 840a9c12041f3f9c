package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// DefaultDataDir is the directory of the device data when not configured.
func DefaultDataDir() string {
	return filepath.Join(homedir.HomeDir(), ".fieldwork")
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigFile string
	DataDir    string
	Passphrase string
	Offline    bool

	Backend          string
	BackendDSN       string
	RedisAddr        string
	BlobDir          string
	S3Bucket         string
	S3Prefix         string
	S3Region         string
	S3Endpoint       string
	S3PathStyle      bool
	DirectionsAPIKey string
	DirectionsURL    string

	// Global instances.
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   log.Logger
	Settings model.Settings
}

// NewRootCommand initializes the main root configuration. The settings loaded
// from the config file are used as flag defaults, so flags and env vars take
// precedence over them.
func NewRootCommand(app *kingpin.Application, settings model.Settings) *RootCommand {
	c := &RootCommand{Settings: settings}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to the YAML settings file.").StringVar(&c.ConfigFile)

	dataDir := or(settings.DataDir, DefaultDataDir())
	app.Flag("data-dir", "Directory of the device data.").Default(dataDir).StringVar(&c.DataDir)
	app.Flag("passphrase", "Passphrase of the device secrets, defaults to one derived from the host.").StringVar(&c.Passphrase)
	app.Flag("offline", "Force the offline mode, writes are queued until the next sync.").BoolVar(&c.Offline)

	backendKind := or(string(settings.Backend), string(model.BackendKindSQLite))
	app.Flag("backend", "Shared backend implementation.").Default(backendKind).EnumVar(&c.Backend, string(model.BackendKindSQLite), string(model.BackendKindMemory))
	app.Flag("backend-dsn", "Shared backend SQLite database, defaults to backend.db on the data dir.").Default(settings.BackendDSN).StringVar(&c.BackendDSN)
	app.Flag("redis-addr", "Redis address for realtime job updates.").Default(settings.RedisAddr).StringVar(&c.RedisAddr)

	app.Flag("blob-dir", "Directory of the uploaded files, defaults to blobs on the data dir.").Default(settings.BlobDir).StringVar(&c.BlobDir)
	var s3 model.S3Settings
	if settings.S3 != nil {
		s3 = *settings.S3
	}
	app.Flag("s3-bucket", "Upload files to this S3 bucket instead of the blob dir.").Default(s3.Bucket).StringVar(&c.S3Bucket)
	app.Flag("s3-prefix", "Key prefix of the S3 uploads.").Default(s3.Prefix).StringVar(&c.S3Prefix)
	app.Flag("s3-region", "S3 region.").Default(s3.Region).StringVar(&c.S3Region)
	app.Flag("s3-endpoint", "S3 compatible endpoint.").Default(s3.Endpoint).StringVar(&c.S3Endpoint)
	app.Flag("s3-path-style", "Use S3 path style addressing.").Default(fmt.Sprint(s3.ForcePathStyle)).BoolVar(&c.S3PathStyle)

	app.Flag("directions-api-key", "Google Directions API key, straight line routes are used without it.").Default(settings.DirectionsAPIKey).StringVar(&c.DirectionsAPIKey)
	app.Flag("directions-url", "Directions API URL.").Default(settings.DirectionsBaseURL).StringVar(&c.DirectionsURL)

	return c
}

// printer returns the printer of an output format.
func (r RootCommand) printer(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(r.Stdout)
	}
	return printer.NewTablePrinter(r.Stdout)
}

func formatFlag(cmd *kingpin.CmdClause, v *string) {
	cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(v, formatTable, formatJSON)
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
