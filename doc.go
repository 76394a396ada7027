// Package titanic trains and evaluates a survival classifier for the Titanic
// passenger table.
//
// The work is a three-stage pipeline:
//
//	split  →  train  →  evaluate
//
// Split separates the "Survived" label from the features and partitions the
// rows with a fixed test fraction and seed. Train fits a random forest on the
// training partition. Evaluate predicts the held-out rows, computes the F1
// score with 1 as the positive class and records it.
//
// Every stage reports to an experiment tracking sink supplied by the caller:
//
//	test_size, random_state        (params, after the split)
//	F1 score                       (metric, after evaluation)
//	time of prediction             (param, after evaluation)
//
// # Quick Start
//
//	ds, err := dataset.LoadCSV("data/train.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger, _ := log.Setup(os.Stderr, "info", "console")
//	sink := tracking.NewMemorySink()
//
//	params := pipeline.Parameters{"test_size": 0.2, "random_state": 42}
//	res, err := pipeline.Run(ds, params, pipeline.ModelConfig{}, sink, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("F1 score: %.3f\n", res.F1)
//
// # Packages
//
//   - pipeline: the Splitter, Trainer and Evaluator stages and Run
//   - dataset: named numeric columns loaded from CSV
//   - model_selection: seeded train/test partitioning
//   - sklearn/tree, sklearn/ensemble: CART decision trees and random forests
//   - metrics: binary classification metrics (F1, precision, recall, accuracy)
//   - tracking: the Sink interface with memory, SQLite and InfluxDB backends
//   - report: feature importance charts
//   - config: layered configuration (defaults, YAML, environment, flags)
//   - core/model, core/parallel: estimator interfaces and worker fan-out
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The titanic command in cmd/titanic wires these together:
//
//	titanic run --data data/train.csv --test-size 0.2 --random-state 42
//	titanic runs
//
// # Error Handling
//
// Failures are typed and carry stack traces:
//
//	var cfgErr *errors.ConfigurationError
//	if errors.As(err, &cfgErr) {
//	    fmt.Println("missing or invalid:", cfgErr.Key)
//	}
//
// A failed stage stops the run. Later stages write nothing to the sink.
package titanic
