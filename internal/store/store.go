// File: internal/store/store.go
// Description: SQLite-backed submission log and learned field-pattern cache.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/forms"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Schema for the submission log. Applied on open; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	form_url TEXT NOT NULL,
	provider TEXT NOT NULL,
	detection_method TEXT NOT NULL,
	confidence REAL NOT NULL,
	student_name TEXT NOT NULL,
	student_id TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	screenshot_before TEXT,
	screenshot_filled TEXT,
	screenshot_after TEXT,
	dom_snapshot TEXT,
	processing_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_ts ON submissions(timestamp);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);

CREATE TABLE IF NOT EXISTS field_patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	form_signature TEXT NOT NULL UNIQUE,
	provider TEXT NOT NULL,
	mapping_json TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store persists submission records and learned field mappings. Safe for
// concurrent use through database/sql's connection pooling.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates (or opens) the SQLite database at the configured path and
// applies the schema. The parent directory is created if missing; the special
// path ":memory:" yields an ephemeral database for tests.
func Open(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission log: %w", err)
	}
	// SQLite tolerates exactly one writer; serialize access at the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, log: logger.Named("store")}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one submission attempt. Every pipeline invocation calls this
// exactly once, regardless of outcome.
func (s *Store) Record(ctx context.Context, sub *forms.Submission) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			timestamp, form_url, provider, detection_method, confidence,
			student_name, student_id, status, error_message,
			screenshot_before, screenshot_filled, screenshot_after,
			dom_snapshot, processing_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Timestamp.UnixMilli(), sub.FormURL, string(sub.Provider),
		string(sub.DetectionMethod), sub.Confidence,
		sub.StudentName, sub.StudentID, string(sub.Status), sub.ErrorMessage,
		sub.ScreenshotBefore, sub.ScreenshotFilled, sub.ScreenshotAfter,
		sub.DOMSnapshot, sub.ProcessingTime.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		sub.ID = id
	}

	s.log.Debug("Submission recorded.",
		zap.Int64("id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.String("url", sub.FormURL))
	return nil
}

// Recent returns the most recent submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]forms.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, form_url, provider, detection_method, confidence,
		       student_name, student_id, status, error_message,
		       screenshot_before, screenshot_filled, screenshot_after,
		       dom_snapshot, processing_ms
		FROM submissions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []forms.Submission
	for rows.Next() {
		var sub forms.Submission
		var ts, procMS int64
		var errMsg, shotBefore, shotFilled, shotAfter, dom sql.NullString
		if err := rows.Scan(&sub.ID, &ts, &sub.FormURL, &sub.Provider,
			&sub.DetectionMethod, &sub.Confidence,
			&sub.StudentName, &sub.StudentID, &sub.Status, &errMsg,
			&shotBefore, &shotFilled, &shotAfter, &dom, &procMS); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		sub.Timestamp = time.UnixMilli(ts)
		sub.ProcessingTime = time.Duration(procMS) * time.Millisecond
		sub.ErrorMessage = errMsg.String
		sub.ScreenshotBefore = shotBefore.String
		sub.ScreenshotFilled = shotFilled.String
		sub.ScreenshotAfter = shotAfter.String
		sub.DOMSnapshot = dom.String
		out = append(out, sub)
	}
	return out, rows.Err()
}

// StatsSince aggregates submission outcomes recorded at or after the cutoff.
func (s *Store) StatsSince(ctx context.Context, since time.Time) (*forms.DailyStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(processing_ms), 0)
		FROM submissions WHERE timestamp >= ?`,
		string(forms.StatusSuccess), string(forms.StatusFailed),
		string(forms.StatusCaptcha), since.UnixMilli())

	var stats forms.DailyStats
	var avgMS float64
	if err := row.Scan(&stats.Total, &stats.Successful, &stats.Failed,
		&stats.Captcha, &avgMS); err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	stats.AvgProcessingTime = time.Duration(avgMS * float64(time.Millisecond))
	return &stats, nil
}

// SaveFieldPattern upserts a learned field mapping keyed by the form's
// signature, bumping the success counter on conflict.
func (s *Store) SaveFieldPattern(ctx context.Context, p *forms.FieldPattern) error {
	mappingJSON, err := json.Marshal(p.Mapping)
	if err != nil {
		return fmt.Errorf("failed to encode field mapping: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO field_patterns (form_signature, provider, mapping_json, success_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(form_signature) DO UPDATE SET
			mapping_json = excluded.mapping_json,
			success_count = field_patterns.success_count + 1,
			updated_at = excluded.updated_at`,
		p.FormSignature, string(p.Provider), string(mappingJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to save field pattern: %w", err)
	}
	return nil
}

// FieldPattern loads the learned mapping for a form signature, or nil when
// the form has not been seen before.
func (s *Store) FieldPattern(ctx context.Context, signature string) (*forms.FieldPattern, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, form_signature, provider, mapping_json, success_count, created_at, updated_at
		FROM field_patterns WHERE form_signature = ?`, signature)

	var p forms.FieldPattern
	var mappingJSON string
	var created, updated int64
	err := row.Scan(&p.ID, &p.FormSignature, &p.Provider, &mappingJSON,
		&p.SuccessCount, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load field pattern: %w", err)
	}

	if err := json.Unmarshal([]byte(mappingJSON), &p.Mapping); err != nil {
		return nil, fmt.Errorf("failed to decode field mapping: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created)
	p.UpdatedAt = time.UnixMilli(updated)
	return &p, nil
}
