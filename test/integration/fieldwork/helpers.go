package fieldwork

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/fieldwork/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "fieldwork"
	}

	// go test changes the CWD to the test package directory, relative paths
	// would point to the wrong place.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("FIELDWORK_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("fieldwork binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "FIELDWORK_INTEGRATION"
		envBinary     = "FIELDWORK_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Device is an isolated worker device with its own data dir. The device
// database and the shared SQLite backend both live there.
type Device struct {
	Config  Config
	DataDir string
}

// NewDevice returns a device on a temporary data dir.
func NewDevice(t *testing.T, config Config) Device {
	t.Helper()
	return Device{Config: config, DataDir: t.TempDir()}
}

// Run runs a fieldwork command on the device.
func (d Device) Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	env := []string{
		"FIELDWORK_DATA_DIR=" + d.DataDir,
		"FIELDWORK_PASSPHRASE=integration",
		"FIELDWORK_CONFIG=",
	}
	res, err := testutils.Run(ctx, testutils.Command{
		Binary: d.Config.Binary,
		Args:   args,
		Env:    env,
		NoLog:  true,
	})
	return res.Stdout, res.Stderr, err
}

// RunJSON runs a fieldwork command on the device and decodes its JSON output.
func (d Device) RunJSON(ctx context.Context, v any, args ...string) error {
	stdout, stderr, err := d.Run(ctx, append(args, "--format", "json")...)
	if err != nil {
		return fmt.Errorf("%w: %s", err, stderr)
	}
	return testutils.Result{Stdout: stdout, Stderr: stderr}.JSON(v)
}

// WriteFile writes a file on the device data dir and returns its path.
func (d Device) WriteFile(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(d.DataDir, name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("could not write %s: %s", name, err)
	}
	return p
}
