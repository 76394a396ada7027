package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/dataset"
	"github.com/YuminosukeSato/titanic/pipeline"
	"github.com/YuminosukeSato/titanic/pkg/log"
	"github.com/YuminosukeSato/titanic/report"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Split, train and evaluate",
		Long: `Run loads the training CSV, splits it with parameters.test_size and
parameters.random_state, fits a random forest and records the F1 score of the
test partition to the tracking backend.`,
		Example: `  titanic run --data data/train.csv --test-size 0.2 --random-state 42
  titanic run --config conf/parameters.yml --tracking-backend memory --report importances.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}
}

func (a *app) run(cmd *cobra.Command) error {
	cfg := a.cfg
	start := time.Now()

	ds, err := dataset.LoadCSV(cfg.Data.Path)
	if err != nil {
		return err
	}

	sess, err := openSession(cfg, a.logger)
	if err != nil {
		return err
	}
	logger := a.logger.With(
		log.RunIDKey, sess.runID,
		log.ExperimentKey, cfg.Tracking.Experiment,
		log.BackendKey, cfg.Tracking.Backend,
	)
	logger.Debug("dataset loaded",
		"path", cfg.Data.Path,
		log.SamplesKey, ds.NRows(),
		log.FeaturesKey, ds.NCols()-1,
	)

	res, runErr := pipeline.Run(ds, cfg.Parameters, cfg.Model, sess.sink, logger,
		pipeline.WithLabelColumn(cfg.Data.Label))
	if err := sess.finish(runErr); err != nil {
		logger.Error("could not close the tracking run", err)
	}
	if runErr != nil {
		logger.Error("run failed", runErr)
		return runErr
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Run %s: F1 score %.3f (train=%d, test=%d) in %s\n",
		sess.runID, res.F1, res.TrainSamples, res.TestSamples, time.Since(start).Round(time.Millisecond))

	if sess.memory != nil {
		for _, p := range sess.memory.Params() {
			_, _ = fmt.Fprintf(out, "  param  %-20s %v\n", p.Name, p.Value)
		}
		for _, m := range sess.memory.Metrics() {
			_, _ = fmt.Fprintf(out, "  metric %-20s %.6f\n", m.Name, m.Value)
		}
	}

	if cfg.Report.Path != "" {
		fi, ok := res.Model.(model.FeatureImporter)
		if !ok {
			logger.Warn("model has no feature importances; skipping report")
			return nil
		}
		if err := report.SaveFeatureImportances(cfg.Report.Path, res.FeatureNames, fi.FeatureImportances()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Feature importances written to %s\n", cfg.Report.Path)
	}
	return nil
}
