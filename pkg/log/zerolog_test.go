package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo, WithoutTimestamp())

	logger.Debug("hidden")
	logger.Info("shown", SamplesKey, 100)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "shown", lines[0]["message"])
	assert.EqualValues(t, 100, lines[0][SamplesKey])
	assert.NotContains(t, lines[0], "time")
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug, WithoutTimestamp()).
		With(ComponentKey, "pipeline", RunIDKey, "run-1")

	logger.Debug("split done", TrainSamplesKey, 80)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "pipeline", lines[0][ComponentKey])
	assert.Equal(t, "run-1", lines[0][RunIDKey])
	assert.EqualValues(t, 80, lines[0][TrainSamplesKey])
}

func TestZerologLogger_ErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo, WithoutTimestamp())

	err := errors.NewConfigurationError("test_size", "missing required parameter", nil)
	logger.Error("split failed", err, OperationKey, OperationSplit)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Contains(t, lines[0][ErrAttrKey], "test_size")
	assert.Equal(t, OperationSplit, lines[0][OperationKey])

	detail, ok := lines[0][DetailAttrKey].(map[string]interface{})
	require.True(t, ok, "error detail should be an object")
	assert.Equal(t, "ConfigurationError", detail["type"])
	assert.Equal(t, "test_size", detail["key"])
}

func TestZerologLogger_OddFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo, WithoutTimestamp())

	logger.Info("odd", "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "dangling", lines[0][badKey])
}

func TestZerologLogger_Enabled(t *testing.T) {
	logger := NewZerologLogger(&bytes.Buffer{}, LevelWarn)

	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelWarn))
	assert.True(t, logger.Enabled(ctx, LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var cfgErr *errors.ConfigurationError
				require.True(t, errors.As(err, &cfgErr))
				assert.Equal(t, "log.level", cfgErr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetup(t *testing.T) {
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })

	t.Run("unknown format", func(t *testing.T) {
		_, err := Setup(&bytes.Buffer{}, "info", "xml")
		var cfgErr *errors.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "log.format", cfgErr.Key)
	})

	t.Run("routes warnings", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := Setup(&buf, "warn", "json")
		require.NoError(t, err)

		errors.Warn(errors.NewUndefinedMetricWarning("F-score", "no predicted samples", 0))

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "warn", lines[0]["level"])
		warning, ok := lines[0]["warning"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "UndefinedMetricWarning", warning["type"])
	})
}

func TestTestLogger(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	scoped := logger.With(ComponentKey, "evaluator")

	logger.Debug("ignored")
	scoped.Info("Model has an F1 score of 0.750.", F1ScoreKey, 0.75)
	scoped.Error("failed", errors.New("boom"))

	assert.Equal(t, []string{"Model has an F1 score of 0.750."}, logger.Messages(LevelInfo))
	assert.True(t, logger.ContainsField(ComponentKey, "evaluator"))
	assert.True(t, logger.ContainsField(F1ScoreKey, 0.75))
	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))
	assert.False(t, logger.ContainsMessage("ignored"))

	logger.Clear()
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
