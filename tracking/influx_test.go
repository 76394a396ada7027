package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

type mockWriteAPI struct {
	WritePointFunc func(ctx context.Context, point ...*write.Point) error
	WrittenPoints  []*write.Point
}

func (m *mockWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	m.WrittenPoints = append(m.WrittenPoints, point...)
	if m.WritePointFunc != nil {
		return m.WritePointFunc(ctx, point...)
	}
	return nil
}

func (m *mockWriteAPI) WriteRecord(ctx context.Context, line ...string) error { return nil }
func (m *mockWriteAPI) EnableBatching()                                       {}
func (m *mockWriteAPI) Flush(ctx context.Context) error                       { return nil }

func pointTags(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, t := range p.TagList() {
		tags[t.Key] = t.Value
	}
	return tags
}

func pointFields(p *write.Point) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

func TestInfluxSink_WritesTaggedPoints(t *testing.T) {
	mock := &mockWriteAPI{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sink := NewInfluxSink(mock, "run-1", "titanic", WithInfluxClock(func() time.Time { return fixed }))

	require.NoError(t, sink.LogParam("test_size", 0.2))
	require.NoError(t, sink.LogMetric("F1 score", 0.75))
	require.Len(t, mock.WrittenPoints, 2)

	param := mock.WrittenPoints[0]
	assert.Equal(t, Measurement, param.Name())
	assert.Equal(t, map[string]string{
		"run_id":     "run-1",
		"experiment": "titanic",
		"kind":       "param",
		"name":       "test_size",
	}, pointTags(param))
	assert.Equal(t, "0.2", pointFields(param)["param"])
	assert.Equal(t, fixed, param.Time())

	metric := mock.WrittenPoints[1]
	assert.Equal(t, "metric", pointTags(metric)["kind"])
	assert.Equal(t, "F1 score", pointTags(metric)["name"])
	assert.Equal(t, 0.75, pointFields(metric)["metric"])
}

func TestInfluxSink_PropagatesWriteErrors(t *testing.T) {
	mock := &mockWriteAPI{
		WritePointFunc: func(ctx context.Context, point ...*write.Point) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "writes should be bounded by a timeout")
			return errors.New("connection refused")
		},
	}
	sink := NewInfluxSink(mock, "run-1", "titanic")

	err := sink.LogMetric("F1 score", 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), Measurement)
}

func TestInfluxConfig_Validate(t *testing.T) {
	full := InfluxConfig{URL: "http://localhost:8086", Token: "t", Org: "o", Bucket: "b"}
	require.NoError(t, full.Validate())

	missing := full
	missing.Bucket = ""
	err := missing.Validate()
	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "tracking.influx.bucket", cfgErr.Key)

	_, _, err = OpenInflux(InfluxConfig{}, "run-1", "titanic")
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "tracking.influx.url", cfgErr.Key)
}
