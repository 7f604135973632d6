// Package audit keeps a Postgres trail of submission attempts. It hooks
// into the form engine as an observer; a failed insert is logged and
// never reaches the applicant.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/database"
	"grant-portal/internal/common/errors"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/metrics"
	"grant-portal/internal/form"

	"github.com/google/uuid"
)

const DefaultTable = "submission_audit"

// StatusDiscarded marks attempts whose result was dropped by a reset.
const StatusDiscarded = "discarded"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	Table string
	// WriteTimeout bounds each insert so a slow database cannot hold up
	// the form after a submission.
	WriteTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Table: DefaultTable, WriteTimeout: 5 * time.Second}
}

func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Audit.Table != "" {
		c.Table = cfg.Audit.Table
	}
	return c
}

func (c *Config) Validate() error {
	if !tableName.MatchString(c.Table) {
		return errors.NewConfigInvalidError(fmt.Sprintf("audit.table %q is not a valid table name", c.Table))
	}
	return nil
}

// Entry is one row of the audit table.
type Entry struct {
	ID         string
	RequestID  string
	Status     string
	Message    string
	HTTPStatus int
	DurationMs int64
	Details    map[string]interface{}
	CreatedAt  time.Time
}

type Recorder struct {
	db     *database.PostgresClient
	logger logger.Logger
	config *Config
	now    func() time.Time
}

var _ form.Observer = (*Recorder)(nil)

func NewRecorder(db *database.PostgresClient, log logger.Logger, config *Config) (*Recorder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Recorder{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
		config: config,
		now:    time.Now,
	}, nil
}

// EnsureSchema creates the audit table when it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			request_id  TEXT NOT NULL,
			status      TEXT NOT NULL,
			message     TEXT NOT NULL DEFAULT '',
			http_status INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			details     JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL
		)`, r.config.Table))
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}
	return nil
}

// SubmissionFinished writes one row for record. Errors are logged only.
func (r *Recorder) SubmissionFinished(ctx context.Context, record form.Record) {
	if err := r.Write(ctx, EntryFor(record, r.now())); err != nil {
		metrics.AuditWrites.WithLabelValues("failed").Inc()
		r.logger.Warn("Audit insert failed", map[string]interface{}{
			"requestId": record.RequestID,
			"error":     err,
		})
		return
	}
	metrics.AuditWrites.WithLabelValues("ok").Inc()
}

// Write inserts e. The insert runs on its own deadline and ignores the
// caller's cancellation, since the submission it describes already happened.
func (r *Recorder) Write(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.WriteTimeout)
	defer cancel()

	details, err := json.Marshal(e.Details)
	if err != nil || e.Details == nil {
		details = []byte("{}")
	}

	_, err = r.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, request_id, status, message, http_status, duration_ms, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.config.Table),
		e.ID, e.RequestID, e.Status, e.Message, e.HTTPStatus, e.DurationMs, details, e.CreatedAt,
	)
	if err != nil {
		return errors.NewAuditWriteFailedError(err)
	}
	return nil
}

// Recent returns the newest limit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT id, request_id, status, message, http_status, duration_ms, details, created_at
		FROM %s ORDER BY created_at DESC LIMIT $1`, r.config.Table), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Status, &e.Message, &e.HTTPStatus, &e.DurationMs, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				r.logger.Debug("Ignoring malformed audit details", map[string]interface{}{"id": e.ID})
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntryFor converts an engine record into a row.
func EntryFor(record form.Record, at time.Time) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		RequestID:  record.RequestID,
		Status:     record.State.String(),
		Message:    record.Message,
		HTTPStatus: record.HTTPStatus,
		DurationMs: record.Duration.Milliseconds(),
		Details:    map[string]interface{}{},
		CreatedAt:  at.UTC(),
	}
	if record.Discarded {
		e.Status = StatusDiscarded
	}
	if record.Err != nil {
		e.Details["error"] = record.Err.Error()
		if se, ok := errors.AsStandardError(record.Err); ok {
			e.Details["errorCode"] = string(se.Code)
			e.Details["retryable"] = se.Retryable
		}
	}
	return e
}
