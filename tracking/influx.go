package tracking

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// Measurement is the InfluxDB measurement every tracking point is written to.
const Measurement = "titanic_tracking"

// Point field names. Params and metrics use different fields because
// InfluxDB fixes a field's type per measurement.
const (
	paramField  = "param"
	metricField = "metric"
)

// InfluxConfig holds the connection settings for InfluxSink.
type InfluxConfig struct {
	URL    string `koanf:"url"`
	Token  string `koanf:"token"`
	Org    string `koanf:"org"`
	Bucket string `koanf:"bucket"`
}

// Validate reports the first missing connection setting.
func (c InfluxConfig) Validate() error {
	switch {
	case c.URL == "":
		return errors.NewConfigurationError("tracking.influx.url", "must be set for the influxdb backend", nil)
	case c.Token == "":
		return errors.NewConfigurationError("tracking.influx.token", "must be set for the influxdb backend", nil)
	case c.Org == "":
		return errors.NewConfigurationError("tracking.influx.org", "must be set for the influxdb backend", nil)
	case c.Bucket == "":
		return errors.NewConfigurationError("tracking.influx.bucket", "must be set for the influxdb backend", nil)
	}
	return nil
}

// InfluxSink writes each param and metric as a point tagged with the run id,
// the experiment, the record kind and the record name.
type InfluxSink struct {
	writeAPI   api.WriteAPIBlocking
	runID      string
	experiment string
	now        func() time.Time
	timeout    time.Duration
}

var _ Sink = (*InfluxSink)(nil)

// InfluxOption configures an InfluxSink.
type InfluxOption func(*InfluxSink)

// WithInfluxClock overrides the point timestamp source.
func WithInfluxClock(now func() time.Time) InfluxOption {
	return func(s *InfluxSink) { s.now = now }
}

// WithWriteTimeout bounds each blocking write.
func WithWriteTimeout(d time.Duration) InfluxOption {
	return func(s *InfluxSink) { s.timeout = d }
}

// NewInfluxSink creates a sink on top of a blocking write API.
func NewInfluxSink(writeAPI api.WriteAPIBlocking, runID, experiment string, opts ...InfluxOption) *InfluxSink {
	s := &InfluxSink{
		writeAPI:   writeAPI,
		runID:      runID,
		experiment: experiment,
		now:        time.Now,
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenInflux connects to InfluxDB and returns a sink plus a function that
// closes the underlying client.
func OpenInflux(cfg InfluxConfig, runID, experiment string, opts ...InfluxOption) (*InfluxSink, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	sink := NewInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), runID, experiment, opts...)
	return sink, client.Close, nil
}

// LogParam implements Sink.
func (s *InfluxSink) LogParam(name string, value any) error {
	return s.write(s.point("param", name).AddField(paramField, FormatValue(value)))
}

// LogMetric implements Sink.
func (s *InfluxSink) LogMetric(name string, value float64) error {
	return s.write(s.point("metric", name).AddField(metricField, value))
}

func (s *InfluxSink) point(kind, name string) *write.Point {
	return influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("run_id", s.runID).
		AddTag("experiment", s.experiment).
		AddTag("kind", kind).
		AddTag("name", name).
		SetTime(s.now())
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return errors.Wrapf(err, "write %s point", Measurement)
	}
	return nil
}
