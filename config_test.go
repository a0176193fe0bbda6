package arx_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/saetre/arx"
	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "empty", yaml: ""},
		{
			name: "full",
			yaml: `
log_level: debug
log_format: json
workers: 4
run_id: nightly
snapshots:
  budget_bytes: 1048576
  dataset_ratio: 0.3
  snapshot_ratio: 0.7
  compression: zstd
spill:
  kind: minio
  endpoint: localhost:9000
  bucket: arx
  prefix: snapshots
`,
		},
		{name: "unknown field", yaml: "workerz: 4", wantErr: true},
		{name: "bad level", yaml: "log_level: verbose", wantErr: true},
		{name: "ratio out of range", yaml: "snapshots:\n  dataset_ratio: 1.5", wantErr: true},
		{name: "bad compression", yaml: "snapshots:\n  compression: gzip", wantErr: true},
		{name: "local without path", yaml: "spill:\n  kind: local", wantErr: true},
		{name: "s3 without bucket", yaml: "spill:\n  kind: s3", wantErr: true},
		{name: "minio without endpoint", yaml: "spill:\n  kind: minio\n  bucket: b", wantErr: true},
		{name: "unknown kind", yaml: "spill:\n  kind: ftp", wantErr: true},
		{name: "malformed", yaml: "workers: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := arx.ParseConfig([]byte(tt.yaml))
			if tt.wantErr {
				assert.ErrorIs(t, err, arx.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestParseConfig_Fields(t *testing.T) {
	cfg, err := arx.ParseConfig([]byte(`
workers: 2
snapshots:
  disabled: true
spill:
  kind: s3
  bucket: data
  region: eu-west-1
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.Snapshots.Disabled)
	require.NotNil(t, cfg.Spill)
	assert.Equal(t, "s3", cfg.Spill.Kind)
	assert.Equal(t, "data", cfg.Spill.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Spill.Region)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\n"), 0o600))

	cfg, err := arx.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)

	_, err = arx.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Options(t *testing.T) {
	ctx := context.Background()
	spill := filepath.Join(t.TempDir(), "spill")

	cfg, err := arx.ParseConfig([]byte(`
run_id: cfg-run
snapshots:
  dataset_ratio: 1
  snapshot_ratio: 1
  compression: none
spill:
  kind: local
  path: ` + spill + `
`))
	require.NoError(t, err)

	opts, err := cfg.Options(ctx)
	require.NoError(t, err)

	f := testutil.Adult()
	c, err := arx.New(dataOf(f), f.Hierarchies, model.RequireCount, opts...)
	require.NoError(t, err)

	res, err := c.Check(ctx, model.Levels{0, 0, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Captured)

	names, err := blobstore.NewLocalStore(spill).List(ctx, "cfg-run/")
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestConfig_OptionsDisabled(t *testing.T) {
	cfg, err := arx.ParseConfig([]byte("snapshots:\n  disabled: true\n  dataset_ratio: 1"))
	require.NoError(t, err)
	opts, err := cfg.Options(context.Background())
	require.NoError(t, err)

	f := testutil.Adult()
	c, err := arx.New(dataOf(f), f.Hierarchies, model.RequireCount, opts...)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), model.Levels{2, 1, 5}, nil)
	require.NoError(t, err)
	assert.False(t, res.Captured)
	assert.Equal(t, 0, c.Snapshots())
}
