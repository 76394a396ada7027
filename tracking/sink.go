// Package tracking records experiment parameters and metrics.
//
// The pipeline writes through the Sink interface only. Implementations:
//
//   - MemorySink keeps records in memory, for tests and dry runs.
//   - *Run (from SQLiteStore.CreateRun) persists records in a local SQLite file.
//   - InfluxSink writes each record as an InfluxDB point.
//   - Tee fans one stream of records out to several sinks.
package tracking

import (
	"fmt"
	"strconv"
	"sync"
)

// Sink accepts key/value records for one run.
type Sink interface {
	// LogParam records a configuration value.
	LogParam(name string, value any) error
	// LogMetric records a numeric result.
	LogMetric(name string, value float64) error
}

// Param is a recorded parameter.
type Param struct {
	Name  string
	Value any
}

// Metric is a recorded metric.
type Metric struct {
	Name  string
	Value float64
}

// FormatValue renders a parameter value the way it is stored by persistent sinks.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}

// MemorySink records every call in order. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	params  []Param
	metrics []Metric
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// LogParam implements Sink.
func (m *MemorySink) LogParam(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, Param{Name: name, Value: value})
	return nil
}

// LogMetric implements Sink.
func (m *MemorySink) LogMetric(name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, Metric{Name: name, Value: value})
	return nil
}

// Params returns the recorded parameters in call order.
func (m *MemorySink) Params() []Param {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Param, len(m.params))
	copy(out, m.params)
	return out
}

// Metrics returns the recorded metrics in call order.
func (m *MemorySink) Metrics() []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Metric, len(m.metrics))
	copy(out, m.metrics)
	return out
}

// Param returns the last value recorded for name.
func (m *MemorySink) Param(name string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.params) - 1; i >= 0; i-- {
		if m.params[i].Name == name {
			return m.params[i].Value, true
		}
	}
	return nil, false
}

// Metric returns the last value recorded for name.
func (m *MemorySink) Metric(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.metrics) - 1; i >= 0; i-- {
		if m.metrics[i].Name == name {
			return m.metrics[i].Value, true
		}
	}
	return 0, false
}

// Len returns the total number of records.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.params) + len(m.metrics)
}

type tee []Sink

// Tee returns a Sink that writes each record to every sink in order and stops
// at the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) LogParam(name string, value any) error {
	for _, s := range t {
		if err := s.LogParam(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) LogMetric(name string, value float64) error {
	for _, s := range t {
		if err := s.LogMetric(name, value); err != nil {
			return err
		}
	}
	return nil
}
