package arx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/saetre/arx/blobstore"
	miniostore "github.com/saetre/arx/blobstore/minio"
	s3store "github.com/saetre/arx/blobstore/s3"
	"github.com/saetre/arx/snapshot"
	"gopkg.in/yaml.v3"
)

// Config is the declarative form of the checker options.
//
//	log_level: info
//	log_format: json
//	workers: 4
//	snapshots:
//	  budget_bytes: 67108864
//	  compression: zstd
//	spill:
//	  kind: local
//	  path: /var/lib/arx/snapshots
type Config struct {
	LogLevel  string          `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string          `yaml:"log_format" validate:"omitempty,oneof=text json"`
	Workers   int             `yaml:"workers" validate:"gte=0"`
	RunID     string          `yaml:"run_id"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Spill     *SpillConfig    `yaml:"spill"`
}

// SnapshotsConfig configures the snapshot history.
type SnapshotsConfig struct {
	Disabled      bool    `yaml:"disabled"`
	Budget        int64   `yaml:"budget_bytes" validate:"gte=0"`
	DatasetRatio  float64 `yaml:"dataset_ratio" validate:"gte=0,lte=1"`
	SnapshotRatio float64 `yaml:"snapshot_ratio" validate:"gte=0,lte=1"`
	Compression   string  `yaml:"compression" validate:"omitempty,oneof=none lz4 zstd"`
}

// SpillConfig selects the blob store snapshots are written through to.
type SpillConfig struct {
	Kind          string `yaml:"kind" validate:"required,oneof=memory local minio s3"`
	Path          string `yaml:"path" validate:"required_if=Kind local"`
	Bucket        string `yaml:"bucket" validate:"required_if=Kind minio,required_if=Kind s3"`
	Endpoint      string `yaml:"endpoint" validate:"required_if=Kind minio"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Secure        bool   `yaml:"secure"`
	IOBytesPerSec int64  `yaml:"io_bytes_per_sec" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseConfig decodes and validates a YAML configuration. Unknown fields
// are rejected.
func ParseConfig(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode config: %w", ErrInvalidArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(b)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: invalid config: %w", ErrInvalidArgument, err)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options converts the configuration into checker options. Remote blob
// stores are connected here.
func (c *Config) Options(ctx context.Context) ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var opts []Option
	if c.LogLevel != "" || c.LogFormat != "" {
		level := parseLevel(c.LogLevel)
		if c.LogFormat == "json" {
			opts = append(opts, WithLogger(NewJSONLogger(level)))
		} else {
			opts = append(opts, WithLogger(NewTextLogger(level)))
		}
	}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	if c.RunID != "" {
		opts = append(opts, WithRunID(c.RunID))
	}

	s := c.Snapshots
	if s.Disabled {
		return append(opts, WithoutSnapshots()), nil
	}
	if s.Budget > 0 {
		opts = append(opts, WithSnapshotBudget(s.Budget))
	}
	if s.DatasetRatio > 0 || s.SnapshotRatio > 0 {
		def := applyOptions(nil)
		dataset, snap := def.datasetRatio, def.snapshotRatio
		if s.DatasetRatio > 0 {
			dataset = s.DatasetRatio
		}
		if s.SnapshotRatio > 0 {
			snap = s.SnapshotRatio
		}
		opts = append(opts, WithSnapshotThresholds(dataset, snap))
	}
	if s.Compression != "" {
		c, err := snapshot.ParseCompression(s.Compression)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		opts = append(opts, WithCompression(c))
	}

	if c.Spill != nil {
		store, err := c.Spill.store(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithBlobStore(store))
		if c.Spill.IOBytesPerSec > 0 {
			opts = append(opts, WithSpillRate(c.Spill.IOBytesPerSec))
		}
	}
	return opts, nil
}

func (s *SpillConfig) store(ctx context.Context) (blobstore.Store, error) {
	switch s.Kind {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "local":
		if err := os.MkdirAll(s.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create spill dir: %w", err)
		}
		return blobstore.NewLocalStore(s.Path), nil
	case "minio":
		client, err := minio.New(s.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
			Secure: s.Secure,
			Region: s.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, s.Bucket, s.Prefix), nil
	case "s3":
		var opts []s3store.Option
		if s.Prefix != "" {
			opts = append(opts, s3store.WithPrefix(s.Prefix))
		}
		if s.Region != "" {
			opts = append(opts, s3store.WithRegion(s.Region))
		}
		if s.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(s.Endpoint))
		}
		return s3store.New(ctx, s.Bucket, opts...)
	}
	return nil, fmt.Errorf("%w: unknown spill kind %q", ErrInvalidArgument, s.Kind)
}
