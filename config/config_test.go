package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/titanic/pipeline"
	"github.com/YuminosukeSato/titanic/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parameters.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// chdir moves into an empty directory so DefaultFile is not picked up.
func chdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "data/train.csv", cfg.Data.Path)
	assert.Equal(t, pipeline.LabelColumn, cfg.Data.Label)
	assert.Equal(t, BackendSQLite, cfg.Tracking.Backend)
	assert.Equal(t, "titanic", cfg.Tracking.Experiment)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File)

	// split parameters are never defaulted
	assert.Empty(t, cfg.Parameters)
	assert.Nil(t, cfg.Model.RandomState)
}

func TestLoad_File(t *testing.T) {
	chdir(t)
	path := writeConfig(t, `
data:
  path: /data/titanic.csv
parameters:
  test_size: 0.25
  random_state: 7
model:
  random_state: 11
  n_estimators: 20
tracking:
  backend: memory
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/data/titanic.csv", cfg.Data.Path)
	assert.Equal(t, 0.25, cfg.Parameters["test_size"])
	assert.EqualValues(t, 7, cfg.Parameters["random_state"])
	require.NotNil(t, cfg.Model.RandomState)
	assert.Equal(t, int64(11), *cfg.Model.RandomState)
	assert.Equal(t, 20, cfg.Model.NEstimators)
	assert.Equal(t, BackendMemory, cfg.Tracking.Backend)

	sp, err := pipeline.ParseSplitParams(cfg.Parameters)
	require.NoError(t, err)
	assert.Equal(t, pipeline.SplitParams{TestSize: 0.25, RandomState: 7}, sp)
}

func TestLoad_Precedence(t *testing.T) {
	chdir(t)
	path := writeConfig(t, `
parameters:
  test_size: 0.25
  random_state: 7
tracking:
  experiment: from_file
`)
	t.Setenv("TITANIC_TRACKING__EXPERIMENT", "from_env")
	t.Setenv("TITANIC_PARAMETERS__RANDOM_STATE", "13")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--test-size", "0.3", "--tracking-backend", "memory"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Tracking.Experiment, "env overrides the file")
	assert.Equal(t, int64(13), cfg.Parameters["random_state"], "numeric env values are parsed")
	assert.Equal(t, 0.3, cfg.Parameters["test_size"], "flags override the file")
	assert.Equal(t, BackendMemory, cfg.Tracking.Backend)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	chdir(t)
	path := writeConfig(t, `
parameters:
  test_size: 0.25
  random_state: 7
`)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Parameters["test_size"])
	assert.Nil(t, cfg.Model.RandomState)
}

func TestLoad_ModelSeedFlag(t *testing.T) {
	chdir(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--model-seed", "5", "--n-jobs", "2"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.NotNil(t, cfg.Model.RandomState)
	assert.Equal(t, int64(5), *cfg.Model.RandomState)
	assert.Equal(t, 2, cfg.Model.NJobs)
}

func TestLoad_DefaultFile(t *testing.T) {
	chdir(t)
	require.NoError(t, os.MkdirAll("conf", 0o755))
	require.NoError(t, os.WriteFile(DefaultFile, []byte("tracking:\n  experiment: default_file\n"), 0600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, cfg.File)
	assert.Equal(t, "default_file", cfg.Tracking.Experiment)
}

func TestLoad_Errors(t *testing.T) {
	chdir(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), nil)
	require.Error(t, err)

	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"unknown backend", "tracking:\n  backend: mlflow\n", "tracking.backend"},
		{"influx without url", "tracking:\n  backend: influxdb\n", "tracking.influx.url"},
		{"empty experiment", "tracking:\n  experiment: \" \"\n", "tracking.experiment"},
		{"bad log level", "log:\n  level: verbose\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestNormalizeParameters(t *testing.T) {
	got := normalizeParameters(pipeline.Parameters{
		"test_size":    "0.2",
		"random_state": "42",
		"name":         "titanic",
		"kept":         3,
	})
	assert.Equal(t, pipeline.Parameters{
		"test_size":    0.2,
		"random_state": int64(42),
		"name":         "titanic",
		"kept":         3,
	}, got)
}
