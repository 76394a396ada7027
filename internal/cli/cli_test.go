package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/tracking"
)

// writePassengers writes a 100-row CSV with a roughly balanced Survived column.
func writePassengers(t *testing.T, dir string, label string) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "PassengerId,Pclass,Age,Fare,%s\n", label)
	for i := 0; i < 100; i++ {
		survived := (i * 7) % 10 / 5
		fmt.Fprintf(&b, "%d,%d,%d,%.2f,%d\n", i+1, 1+i%3, 18+i%50, 7.25+float64(30*survived+i%13), survived)
	}
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "titanic v"+Version)
}

func TestRunCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	data := writePassengers(t, dir, "Survived")
	db := filepath.Join(dir, "tracking.db")
	chart := filepath.Join(dir, "importances.png")

	out, logs, err := execute(t, "run",
		"--data", data,
		"--test-size", "0.2",
		"--random-state", "42",
		"--model-seed", "1",
		"--n-estimators", "10",
		"--tracking-path", db,
		"--report", chart,
		"--log-format", "json",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "train=80, test=20")
	assert.Contains(t, out, "Feature importances written to")
	assert.Contains(t, logs, "Model has an F1 score of ")

	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	store := tracking.NewSQLiteStore()
	require.NoError(t, store.Open(db))
	defer store.Close()
	runs, err := store.ListRuns("titanic")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, tracking.RunStatusFinished, runs[0].Status)
	assert.Equal(t, "0.2", runs[0].Params["test_size"])
	assert.Equal(t, "42", runs[0].Params["random_state"])
	assert.NotEmpty(t, runs[0].Params["time of prediction"])
	assert.Contains(t, runs[0].Metrics, "F1 score")

	listing, _, err := execute(t, "runs", "--tracking-path", db)
	require.NoError(t, err)
	assert.Contains(t, listing, runs[0].ID)
	assert.Contains(t, listing, "FINISHED")
	assert.Contains(t, listing, "┌")
	assert.Contains(t, listing, "(1 runs)")
}

func TestRunCommand_FailedRunIsRecorded(t *testing.T) {
	dir := t.TempDir()
	data := writePassengers(t, dir, "Died")
	db := filepath.Join(dir, "tracking.db")

	_, _, err := execute(t, "run",
		"--data", data,
		"--test-size", "0.2",
		"--random-state", "42",
		"--tracking-path", db,
	)
	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)

	listing, _, err := execute(t, "runs", "--tracking-path", db)
	require.NoError(t, err)
	assert.Contains(t, listing, "FAILED")
}

func TestRunCommand_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	data := writePassengers(t, dir, "Survived")

	out, _, err := execute(t, "run",
		"--data", data,
		"--test-size", "0.25",
		"--random-state", "7",
		"--n-estimators", "5",
		"--tracking-backend", "memory",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "train=75, test=25")
	assert.Contains(t, out, "param  test_size")
	assert.Contains(t, out, "metric F1 score")
}

func TestRunCommand_MissingSeed(t *testing.T) {
	dir := t.TempDir()
	data := writePassengers(t, dir, "Survived")

	_, _, err := execute(t, "run",
		"--data", data,
		"--test-size", "0.2",
		"--tracking-backend", "memory",
	)
	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "random_state", cfgErr.Key)
}

func TestRunsCommand_NeedsSQLite(t *testing.T) {
	_, _, err := execute(t, "runs", "--tracking-backend", "memory")
	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestDescribeCommand(t *testing.T) {
	data := writePassengers(t, t.TempDir(), "Survived")

	out, _, err := execute(t, "describe", "--data", data)
	require.NoError(t, err)
	for _, col := range []string{"PassengerId", "Pclass", "Age", "Fare", "Survived"} {
		assert.Contains(t, out, col)
	}
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "MEAN")
	// 100 rows, one per passenger
	assert.Contains(t, out, "│   100 │")
}
