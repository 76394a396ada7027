package tracking

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/pkg/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore persists experiments, runs, params and metrics in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger log.Logger
	now    func() time.Time
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithStoreLogger routes store and migration messages to logger.
func WithStoreLogger(logger log.Logger) StoreOption {
	return func(s *SQLiteStore) { s.logger = logger }
}

// WithStoreClock overrides the clock used for timestamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore creates a new, unopened store.
func NewSQLiteStore(opts ...StoreOption) *SQLiteStore {
	s := &SQLiteStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewZerologLogger(io.Discard, log.LevelError)
	}
	return s
}

// Open opens the database at path. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.Wrap(err, "open sqlite database")
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "ping sqlite database")
	}

	s.db = db
	s.path = path
	s.logger.Debug("tracking store opened", "path", path)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs all pending schema migrations.
func (s *SQLiteStore) Migrate() error {
	if s.db == nil {
		return errors.New("database not opened")
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{s.logger})
	if err := goose.SetDialect("sqlite"); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (s *SQLiteStore) MigrationVersion() (int64, error) {
	if s.db == nil {
		return 0, errors.New("database not opened")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, errors.Wrap(err, "set migration dialect")
	}
	return goose.GetDBVersion(s.db)
}

func generateID() string {
	return uuid.New().String()
}

// experimentID returns the id of the named experiment, creating it if needed.
func (s *SQLiteStore) experimentID(name string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM experiments WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrap(err, "look up experiment")
	}

	id = generateID()
	if _, err := s.db.Exec(
		`INSERT INTO experiments (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, s.now().UTC().UnixMilli(),
	); err != nil {
		return "", errors.Wrap(err, "create experiment")
	}
	return id, nil
}

// CreateRun starts a new run in the named experiment.
func (s *SQLiteStore) CreateRun(experiment string) (*Run, error) {
	if s.db == nil {
		return nil, errors.New("database not opened")
	}
	if strings.TrimSpace(experiment) == "" {
		return nil, errors.NewConfigurationError("tracking.experiment", "must not be empty", nil)
	}

	expID, err := s.experimentID(experiment)
	if err != nil {
		return nil, err
	}

	run := &Run{
		store:      s,
		id:         generateID(),
		experiment: experiment,
		startedAt:  s.now().UTC(),
	}
	if _, err := s.db.Exec(
		`INSERT INTO runs (id, experiment_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.id, expID, RunStatusRunning, run.startedAt.UnixMilli(),
	); err != nil {
		return nil, errors.Wrap(err, "create run")
	}

	s.logger.Debug("tracking run created", log.RunIDKey, run.id, log.ExperimentKey, experiment)
	return run, nil
}

// Run is an active run. It implements Sink.
type Run struct {
	store      *SQLiteStore
	id         string
	experiment string
	startedAt  time.Time
}

var _ Sink = (*Run)(nil)

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// Experiment returns the experiment name.
func (r *Run) Experiment() string { return r.experiment }

// LogParam implements Sink. A parameter can be logged once per run; logging the
// same value again is a no-op and a different value is an error.
func (r *Run) LogParam(name string, value any) error {
	v := FormatValue(value)

	var existing string
	err := r.store.db.QueryRow(`SELECT value FROM params WHERE run_id = ? AND key = ?`, r.id, name).Scan(&existing)
	switch {
	case err == nil && existing == v:
		return nil
	case err == nil:
		return errors.Newf("param %q already logged for run %s with value %q", name, r.id, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return errors.Wrapf(err, "look up param %q", name)
	}

	if _, err := r.store.db.Exec(
		`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)`, r.id, name, v,
	); err != nil {
		return errors.Wrapf(err, "log param %q", name)
	}
	return nil
}

// LogMetric implements Sink. Repeated calls append to the metric's history.
func (r *Run) LogMetric(name string, value float64) error {
	if _, err := r.store.db.Exec(
		`INSERT INTO metrics (run_id, key, value, step, logged_at)
		 VALUES (?, ?, ?, (SELECT COUNT(*) FROM metrics WHERE run_id = ? AND key = ?), ?)`,
		r.id, name, value, r.id, name, r.store.now().UTC().UnixMilli(),
	); err != nil {
		return errors.Wrapf(err, "log metric %q", name)
	}
	return nil
}

// End marks the run as finished or failed. cause is stored for failed runs.
func (r *Run) End(status RunStatus, cause error) error {
	var msg sql.NullString
	if cause != nil {
		msg = sql.NullString{String: cause.Error(), Valid: true}
	}
	res, err := r.store.db.Exec(
		`UPDATE runs SET status = ?, ended_at = ?, error = ? WHERE id = ?`,
		status, r.store.now().UTC().UnixMilli(), msg, r.id,
	)
	if err != nil {
		return errors.Wrap(err, "end run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrRunNotFound, "end run %s", r.id)
	}
	return nil
}

// RunRecord is a stored run with its params and the latest value of each metric.
type RunRecord struct {
	ID         string
	Experiment string
	Status     RunStatus
	StartedAt  time.Time
	EndedAt    *time.Time
	Error      string
	Params     map[string]string
	Metrics    map[string]float64
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(id string) (*RunRecord, error) {
	if s.db == nil {
		return nil, errors.New("database not opened")
	}
	records, err := s.queryRuns(`WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrRunNotFound, "run %s", id)
	}
	return records[0], nil
}

// ListRuns returns the runs of an experiment, newest first. An empty experiment
// name lists every run.
func (s *SQLiteStore) ListRuns(experiment string) ([]*RunRecord, error) {
	if s.db == nil {
		return nil, errors.New("database not opened")
	}
	if experiment == "" {
		return s.queryRuns("")
	}
	return s.queryRuns(`WHERE e.name = ?`, experiment)
}

func (s *SQLiteStore) queryRuns(where string, args ...any) ([]*RunRecord, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT r.id, e.name, r.status, r.started_at, r.ended_at, r.error
		 FROM runs r JOIN experiments e ON e.id = r.experiment_id
		 %s ORDER BY r.started_at DESC, r.rowid DESC`, where), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}

	var records []*RunRecord
	for rows.Next() {
		var (
			rec       RunRecord
			startedAt int64
			endedAt   sql.NullInt64
			errMsg    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Experiment, &rec.Status, &startedAt, &endedAt, &errMsg); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan run")
		}
		rec.StartedAt = time.UnixMilli(startedAt).UTC()
		if endedAt.Valid {
			t := time.UnixMilli(endedAt.Int64).UTC()
			rec.EndedAt = &t
		}
		rec.Error = errMsg.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "iterate runs")
	}
	rows.Close()

	for _, rec := range records {
		if err := s.loadRecords(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *SQLiteStore) loadRecords(rec *RunRecord) error {
	rec.Params = make(map[string]string)
	rec.Metrics = make(map[string]float64)

	rows, err := s.db.Query(`SELECT key, value FROM params WHERE run_id = ?`, rec.ID)
	if err != nil {
		return errors.Wrap(err, "query params")
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan param")
		}
		rec.Params[k] = v
	}
	rows.Close()

	rows, err = s.db.Query(
		`SELECT key, value FROM metrics m
		 WHERE run_id = ? AND step = (SELECT MAX(step) FROM metrics WHERE run_id = m.run_id AND key = m.key)`,
		rec.ID)
	if err != nil {
		return errors.Wrap(err, "query metrics")
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return errors.Wrap(err, "scan metric")
		}
		rec.Metrics[k] = v
	}
	return rows.Err()
}

// gooseLogger adapts log.Logger to goose's logger interface.
type gooseLogger struct {
	logger log.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), log.ComponentKey, "migrations")
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), log.ComponentKey, "migrations")
}
