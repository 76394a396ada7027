package cli

import (
	"github.com/google/uuid"

	"github.com/YuminosukeSato/titanic/config"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/pkg/log"
	"github.com/YuminosukeSato/titanic/tracking"
)

// session is one tracked run on the configured backend.
type session struct {
	runID  string
	sink   tracking.Sink
	memory *tracking.MemorySink
	finish func(runErr error) error
}

// openSession creates a run on the configured tracking backend.
func openSession(cfg *config.Config, logger log.Logger) (*session, error) {
	experiment := cfg.Tracking.Experiment

	switch cfg.Tracking.Backend {
	case config.BackendSQLite:
		store := tracking.NewSQLiteStore(tracking.WithStoreLogger(logger))
		if err := store.Open(cfg.Tracking.Path); err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		run, err := store.CreateRun(experiment)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return &session{
			runID: run.ID(),
			sink:  run,
			finish: func(runErr error) error {
				status := tracking.RunStatusFinished
				if runErr != nil {
					status = tracking.RunStatusFailed
				}
				endErr := run.End(status, runErr)
				if err := store.Close(); err != nil && endErr == nil {
					endErr = errors.Wrap(err, "close tracking store")
				}
				return endErr
			},
		}, nil

	case config.BackendInflux:
		runID := uuid.NewString()
		sink, closeFn, err := tracking.OpenInflux(cfg.Tracking.Influx, runID, experiment)
		if err != nil {
			return nil, err
		}
		return &session{
			runID: runID,
			sink:  sink,
			finish: func(error) error {
				closeFn()
				return nil
			},
		}, nil

	case config.BackendMemory:
		mem := tracking.NewMemorySink()
		return &session{
			runID:  uuid.NewString(),
			sink:   mem,
			memory: mem,
			finish: func(error) error { return nil },
		}, nil
	}
	return nil, errors.NewConfigurationError("tracking.backend", "must be sqlite, influxdb or memory", cfg.Tracking.Backend)
}
