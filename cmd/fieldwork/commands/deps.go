package commands

import (
	"context"

	"github.com/slok/fieldwork/internal/device"
	"github.com/slok/fieldwork/internal/model"
)

// newDeps builds the device dependencies from the root configuration.
func newDeps(ctx context.Context, r RootCommand) (*device.Device, error) {
	cfg := device.Config{
		DataDir:              r.DataDir,
		Backend:              model.BackendKind(r.Backend),
		BackendDSN:           r.BackendDSN,
		RedisAddr:            r.RedisAddr,
		BlobDir:              r.BlobDir,
		DirectionsAPIKey:     r.DirectionsAPIKey,
		DirectionsURL:        r.DirectionsURL,
		Offline:              r.Offline,
		ConnectivityInterval: r.Settings.ConnectivityInterval,
		Passphrase:           r.Passphrase,
		Logger:               r.Logger,
	}
	if r.S3Bucket != "" {
		cfg.S3 = &model.S3Settings{
			Bucket:         r.S3Bucket,
			Prefix:         r.S3Prefix,
			Region:         r.S3Region,
			Endpoint:       r.S3Endpoint,
			ForcePathStyle: r.S3PathStyle,
		}
	}

	return device.New(ctx, cfg)
}
