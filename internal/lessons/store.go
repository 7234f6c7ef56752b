package lessons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lectern/internal/config"
)

// ErrNotFound indicates the lesson id is unknown.
var ErrNotFound = errors.New("lesson not found")

// ErrAlreadyProcessed indicates the lesson already carries a committed success.
// Replayed jobs use it to skip reprocessing instead of disturbing the record.
var ErrAlreadyProcessed = errors.New("lesson already processed")

// Store manages lesson persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the lessons database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "lessons.db")
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
	if err := store.initSchema(context.Background()); err != nil {
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

// Create inserts a new lesson in pending state with its immutable source key.
func (s *Store) Create(ctx context.Context, id, sourceKey string) (*Lesson, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("lesson id required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO lessons (id, source_key, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(sourceKey),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lesson: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a lesson by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Lesson, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	lesson, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return lesson, nil
}

// List returns lessons filtered by status set (or all lessons when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Lesson, error) {
	baseQuery := `SELECT ` + lessonColumns + ` FROM lessons`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var result []*Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, lesson)
	}
	return result, rows.Err()
}

// MarkProcessing transitions the lesson into processing and clears any error
// from a prior attempt. A lesson already in processed state is never demoted:
// the call returns ErrAlreadyProcessed so a replayed job can reuse the
// committed result instead of running again.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE lessons
         SET status = ?, processing_error = NULL, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusProcessing,
		timestamp,
		id,
		StatusProcessed,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lesson == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
}

// MarkProcessed commits the terminal success state with the derived artifact
// locations. Re-invoking on an already processed lesson is a no-op, so retried
// jobs cannot disturb a committed result.
func (s *Store) MarkProcessed(ctx context.Context, id, manifestKey, thumbnailKey string, durationSeconds int) error {
	if strings.TrimSpace(manifestKey) == "" {
		return errors.New("manifest key required for processed state")
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE lessons
         SET status = ?, manifest_key = ?, thumbnail_key = ?, duration_seconds = ?,
             processed_at = ?, processing_error = NULL, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusProcessed,
		manifestKey,
		nullableString(thumbnailKey),
		durationSeconds,
		now,
		now,
		id,
		StatusProcessed,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return requireRowOrStatus(ctx, s, res, id, StatusProcessed)
}

// MarkFailed commits the failure state with a human-readable message.
// Idempotent for identical failures, and a no-op on a processed lesson so a
// straggling replay cannot overwrite a committed success.
func (s *Store) MarkFailed(ctx context.Context, id, errorMessage string) error {
	errorMessage = strings.TrimSpace(errorMessage)
	if errorMessage == "" {
		errorMessage = "processing failed without error detail"
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE lessons
         SET status = ?, processing_error = ?, updated_at = ?
         WHERE id = ? AND status != ? AND NOT (status = ? AND processing_error = ?)`,
		StatusFailed,
		errorMessage,
		timestamp,
		id,
		StatusProcessed,
		StatusFailed,
		errorMessage,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lesson == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// Zero rows with an existing lesson means either the identical failure is
	// already recorded or the lesson is processed; both are safe no-ops.
	return nil
}

// Stats returns a count of lessons grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM lessons GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("lesson stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const lessonColumns = "id, source_key, status, manifest_key, thumbnail_key, duration_seconds, processed_at, processing_error, created_at, updated_at"

func scanLesson(scanner interface{ Scan(dest ...any) error }) (*Lesson, error) {
	var (
		id              string
		sourceKey       string
		statusStr       string
		manifestKey     sql.NullString
		thumbnailKey    sql.NullString
		durationSeconds int
		processedRaw    sql.NullString
		processingError sql.NullString
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&id,
		&sourceKey,
		&statusStr,
		&manifestKey,
		&thumbnailKey,
		&durationSeconds,
		&processedRaw,
		&processingError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	lesson := &Lesson{
		ID:              id,
		SourceKey:       sourceKey,
		Status:          Status(statusStr),
		ManifestKey:     manifestKey.String,
		ThumbnailKey:    thumbnailKey.String,
		DurationSeconds: durationSeconds,
		ProcessingError: processingError.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		lesson.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		lesson.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			lesson.ProcessedAt = &processed
		}
	}
	return lesson, nil
}

// requireRowOrStatus treats a zero-row terminal update as success when the
// lesson already sits in the target state, and as ErrNotFound otherwise.
func requireRowOrStatus(ctx context.Context, s *Store, res sql.Result, id string, want Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lesson == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if lesson.Status != want {
		return fmt.Errorf("lesson %s not updated from status %s", id, lesson.Status)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
