// Package config loads the pipeline configuration.
//
// Sources are layered, later ones winning:
//
//	defaults < YAML file < TITANIC_* environment variables < command-line flags
//
// Environment variables use a double underscore for nesting, so
// TITANIC_TRACKING__BACKEND sets tracking.backend and
// TITANIC_PARAMETERS__RANDOM_STATE sets parameters.random_state.
//
// The split parameters (parameters.test_size, parameters.random_state) have
// no defaults. Leaving them out is reported when the pipeline runs.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/titanic/pipeline"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/pkg/log"
	"github.com/YuminosukeSato/titanic/tracking"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TITANIC_"

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "conf/parameters.yml"

// Tracking backends.
const (
	BackendSQLite = "sqlite"
	BackendInflux = "influxdb"
	BackendMemory = "memory"
)

// Config is the full CLI configuration.
type Config struct {
	Data       DataConfig           `koanf:"data"`
	Parameters pipeline.Parameters  `koanf:"parameters"`
	Model      pipeline.ModelConfig `koanf:"model"`
	Tracking   TrackingConfig       `koanf:"tracking"`
	Log        LogConfig            `koanf:"log"`
	Report     ReportConfig         `koanf:"report"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// DataConfig locates the training table.
type DataConfig struct {
	Path  string `koanf:"path"`
	Label string `koanf:"label"`
}

// TrackingConfig selects and configures the tracking backend.
type TrackingConfig struct {
	Backend    string                `koanf:"backend"`
	Path       string                `koanf:"path"`
	Experiment string                `koanf:"experiment"`
	Influx     tracking.InfluxConfig `koanf:"influx"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ReportConfig configures the feature importance chart. An empty path
// disables it.
type ReportConfig struct {
	Path string `koanf:"path"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"data.path":           "data/train.csv",
		"data.label":          pipeline.LabelColumn,
		"tracking.backend":    BackendSQLite,
		"tracking.path":       "titanic.db",
		"tracking.experiment": "titanic",
		"log.level":           "info",
		"log.format":          "console",
		"report.path":         "",
	}
}

// flagKeys maps flag names registered by BindFlags to config keys.
var flagKeys = map[string]string{
	"data":             "data.path",
	"label":            "data.label",
	"test-size":        "parameters.test_size",
	"random-state":     "parameters.random_state",
	"model-seed":       "model.random_state",
	"n-estimators":     "model.n_estimators",
	"n-jobs":           "model.n_jobs",
	"tracking-backend": "tracking.backend",
	"tracking-path":    "tracking.path",
	"experiment":       "tracking.experiment",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"report":           "report.path",
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("data", "", "path to the training CSV")
	fs.String("label", "", "label column name")
	fs.Float64("test-size", 0, "fraction of rows held out for evaluation")
	fs.Int64("random-state", 0, "seed for the train/test split")
	fs.Int64("model-seed", 0, "seed for the random forest (unseeded when not set)")
	fs.Int("n-estimators", 0, "number of trees")
	fs.Int("n-jobs", 0, "parallel workers for training (-1 for all CPUs)")
	fs.String("tracking-backend", "", "tracking backend: sqlite, influxdb or memory")
	fs.String("tracking-path", "", "SQLite tracking database path")
	fs.String("experiment", "", "experiment name")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: json or console")
	fs.String("report", "", "write a feature importance chart to this path (.png or .svg)")
}

// Load reads configuration from cfgFile (or DefaultFile when empty), the
// environment and flags. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.File = path
	cfg.Parameters = normalizeParameters(cfg.Parameters)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns TITANIC_TRACKING__INFLUX__URL into tracking.influx.url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// normalizeParameters converts numeric strings, as delivered by environment
// variables, into int64 or float64.
func normalizeParameters(in pipeline.Parameters) pipeline.Parameters {
	if in == nil {
		return pipeline.Parameters{}
	}
	out := make(pipeline.Parameters, len(in))
	for key, v := range in {
		s, ok := v.(string)
		if !ok {
			out[key] = v
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[key] = n
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[key] = f
		} else {
			out[key] = v
		}
	}
	return out
}

// Validate checks the settings that are fixed before the pipeline runs.
func (c *Config) Validate() error {
	switch c.Tracking.Backend {
	case BackendSQLite:
		if c.Tracking.Path == "" {
			return errors.NewConfigurationError("tracking.path", "must be set for the sqlite backend", nil)
		}
	case BackendInflux:
		if err := c.Tracking.Influx.Validate(); err != nil {
			return err
		}
	case BackendMemory:
	default:
		return errors.NewConfigurationError("tracking.backend", "must be sqlite, influxdb or memory", c.Tracking.Backend)
	}

	if strings.TrimSpace(c.Tracking.Experiment) == "" {
		return errors.NewConfigurationError("tracking.experiment", "must not be empty", nil)
	}
	if c.Data.Label == "" {
		return errors.NewConfigurationError("data.label", "must not be empty", nil)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewConfigurationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		return errors.NewConfigurationError("log.format", "must be json or console", c.Log.Format)
	}
	return nil
}
