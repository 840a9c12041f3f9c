package model

import "time"

// BackendKind is the shared backend implementation.
type BackendKind string

const (
	BackendKindMemory BackendKind = "memory"
	BackendKindSQLite BackendKind = "sqlite"
)

// Settings is the file based configuration of the application. Zero values
// are left to the defaults of each component.
type Settings struct {
	DataDir string

	Backend    BackendKind
	BackendDSN string
	RedisAddr  string

	BlobDir string
	S3      *S3Settings

	DirectionsAPIKey  string
	DirectionsBaseURL string

	HTTPListen string
	// HTTPRateLimit is the API requests per minute allowed per client.
	HTTPRateLimit int

	ConnectivityInterval time.Duration
}

// S3Settings configures the S3 blob store.
type S3Settings struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

// SeedWorker is a worker fixture with its sign in password.
type SeedWorker struct {
	Worker   Worker
	Password string
}

// Fixtures are the workers and jobs loaded into an empty backend.
type Fixtures struct {
	Workers []SeedWorker
	Jobs    []Job
}
