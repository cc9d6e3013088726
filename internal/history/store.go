package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrInvalidTransition is returned when a render-job update would violate the
// job status lifecycle.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store manages publish history and render-job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, "slate.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the history database.
func (s *Store) Path() string {
	return s.path
}

// RecordPublish inserts a publish record and returns it with its assigned id.
func (s *Store) RecordPublish(ctx context.Context, rec PublishRecord) (*PublishRecord, error) {
	now := time.Now().UTC()
	rec.CreatedAt = now

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO publish_records (
            run_id, name, path, publish_path, version,
            template, entity_type, entity_id, tracking_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Name,
		rec.Path,
		nullableString(rec.PublishPath),
		rec.Version,
		nullableString(rec.Template),
		nullableString(rec.EntityType),
		rec.EntityID,
		rec.TrackingID,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert publish record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("publish record id: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// ListPublishes returns the most recent publish records, newest first.
func (s *Store) ListPublishes(ctx context.Context, limit int) ([]PublishRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, name, path, publish_path, version,
                template, entity_type, entity_id, tracking_id, created_at
           FROM publish_records ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query publish records: %w", err)
	}
	defer rows.Close()

	records := make([]PublishRecord, 0, limit)
	for rows.Next() {
		rec, err := scanPublish(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EnqueueRenderJob persists a new job in the queued state.
func (s *Store) EnqueueRenderJob(ctx context.Context, job RenderJob) (*RenderJob, error) {
	if job.ID == "" {
		return nil, errors.New("render job requires an id")
	}
	now := time.Now().UTC()
	job.Status = JobStatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	cameras, err := json.Marshal(job.Cameras)
	if err != nil {
		return nil, fmt.Errorf("encode cameras: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO render_jobs (
            id, publish_record_id, tracking_id, take_name, cameras,
            render_local, status, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.PublishRecordID,
		job.TrackingID,
		job.Take,
		string(cameras),
		boolToInt(job.RenderLocal),
		job.Status,
		nullableString(job.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert render job: %w", err)
	}
	return &job, nil
}

// NextQueuedJob returns the oldest queued render job, or nil when the queue
// is empty.
func (s *Store) NextQueuedJob(ctx context.Context) (*RenderJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		selectJobColumns+` WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
		JobStatusQueued,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob fetches a render job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*RenderJob, error) {
	row := s.db.QueryRowContext(ctx, selectJobColumns+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("render job %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns render jobs, optionally filtered by status, newest first.
func (s *Store) ListJobs(ctx context.Context, status JobStatus) ([]RenderJob, error) {
	query := selectJobColumns
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query render jobs: %w", err)
	}
	defer rows.Close()

	var jobs []RenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus moves a job to a new status, enforcing lifecycle rules.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, to JobStatus, errorMessage string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(job.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, to)
	}

	now := time.Now().UTC()
	var submittedAt any
	if to == JobStatusSubmitted {
		submittedAt = now.Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE render_jobs
            SET status = ?, error_message = ?, updated_at = ?,
                submitted_at = COALESCE(?, submitted_at)
          WHERE id = ?`,
		to,
		nullableString(errorMessage),
		now.Format(time.RFC3339Nano),
		submittedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("update render job: %w", err)
	}
	return nil
}

const selectJobColumns = `SELECT id, publish_record_id, tracking_id, take_name, cameras,
        render_local, status, error_message, created_at, updated_at, submitted_at
   FROM render_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublish(row rowScanner) (PublishRecord, error) {
	var rec PublishRecord
	var publishPath, template, entityType sql.NullString
	var createdAt string
	if err := row.Scan(
		&rec.ID, &rec.RunID, &rec.Name, &rec.Path, &publishPath, &rec.Version,
		&template, &entityType, &rec.EntityID, &rec.TrackingID, &createdAt,
	); err != nil {
		return PublishRecord{}, fmt.Errorf("scan publish record: %w", err)
	}
	rec.PublishPath = publishPath.String
	rec.Template = template.String
	rec.EntityType = entityType.String
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

func scanJob(row rowScanner) (RenderJob, error) {
	var job RenderJob
	var cameras string
	var renderLocal int
	var errorMessage, submittedAt sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&job.ID, &job.PublishRecordID, &job.TrackingID, &job.Take, &cameras,
		&renderLocal, &job.Status, &errorMessage, &createdAt, &updatedAt, &submittedAt,
	); err != nil {
		return RenderJob{}, err
	}
	if err := json.Unmarshal([]byte(cameras), &job.Cameras); err != nil {
		return RenderJob{}, fmt.Errorf("decode cameras for job %s: %w", job.ID, err)
	}
	job.RenderLocal = renderLocal != 0
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	if submittedAt.Valid {
		ts := parseTime(submittedAt.String)
		job.SubmittedAt = &ts
	}
	return job, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
