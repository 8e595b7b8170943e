package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipeforge/internal/content"
)

const translationJobColumns = "id, entity_type, entity_id, target_lang, status, priority, retry_count, max_retries, quality_score, error_message, next_attempt_at, created_at, started_at, completed_at, updated_at"

// translationDequeueOrder runs urgent jobs first and, within a priority, the
// most recently created job first.
const translationDequeueOrder = "priority ASC, created_at DESC, id DESC"

func scanTranslationJob(scanner rowScanner) (*content.TranslationJob, error) {
	var (
		j            content.TranslationJob
		entityType   string
		status       string
		quality      sql.NullFloat64
		errorMessage sql.NullString
		nextAttempt  sql.NullString
		createdRaw   string
		startedAt    sql.NullString
		completedAt  sql.NullString
		updatedRaw   string
	)
	if err := scanner.Scan(
		&j.ID, &entityType, &j.EntityID, &j.TargetLang, &status, &j.Priority, &j.RetryCount, &j.MaxRetries,
		&quality, &errorMessage, &nextAttempt, &createdRaw, &startedAt, &completedAt, &updatedRaw,
	); err != nil {
		return nil, err
	}
	j.EntityType = content.EntityType(entityType)
	j.Status = content.TranslationStatus(status)
	j.QualityScore = parseNullFloat(quality)
	j.ErrorMessage = errorMessage.String
	j.NextAttemptAt = parseNullTime(nextAttempt)
	j.CreatedAt = parseTime(createdRaw)
	j.StartedAt = parseNullTime(startedAt)
	j.CompletedAt = parseNullTime(completedAt)
	j.UpdatedAt = parseTime(updatedRaw)
	return &j, nil
}

// InsertTranslationJob creates a pending job unless one is already pending or
// processing for the same (entity type, entity id, target language). In that
// case the existing job is returned with created=false.
func (s *Store) InsertTranslationJob(ctx context.Context, job *content.TranslationJob) (*content.TranslationJob, bool, error) {
	if job == nil {
		return nil, false, errors.New("insert translation job: nil job")
	}
	ctx = ensureContext(ctx)
	now := s.now()
	candidate := *job
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.Status = content.TranslationPending
	if candidate.MaxRetries < 0 {
		candidate.MaxRetries = content.DefaultMaxRetries
	}
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	res, err := s.execWithRetry(ctx,
		`INSERT INTO translation_jobs (`+translationJobColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL, NULL, NULL, ?, NULL, NULL, ?)
        ON CONFLICT DO NOTHING`,
		candidate.ID, string(candidate.EntityType), candidate.EntityID, candidate.TargetLang,
		string(candidate.Status), candidate.Priority, candidate.MaxRetries, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, false, mapWriteError("insert translation job", err)
	}
	ok, err := affected(res)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return &candidate, true, nil
	}
	existing, err := s.ActiveTranslationJob(ctx, candidate.EntityType, candidate.EntityID, candidate.TargetLang)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ActiveTranslationJob returns the pending or processing job for a tuple.
func (s *Store) ActiveTranslationJob(ctx context.Context, entityType content.EntityType, entityID, lang string) (*content.TranslationJob, error) {
	ctx = ensureContext(ctx)
	row := s.conn().queryRow(ctx,
		"SELECT "+translationJobColumns+" FROM translation_jobs WHERE entity_type = ? AND entity_id = ? AND target_lang = ? AND status IN ('pending', 'processing')",
		string(entityType), entityID, lang,
	)
	job, err := scanTranslationJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("active translation job", fmt.Sprintf("%s/%s/%s", entityType, entityID, lang))
	}
	if err != nil {
		return nil, fmt.Errorf("active translation job: %w", err)
	}
	return job, nil
}

// GetTranslationJob fetches a translation job.
func (s *Store) GetTranslationJob(ctx context.Context, id string) (*content.TranslationJob, error) {
	return getTranslationJob(ensureContext(ctx), s.conn(), id)
}

func getTranslationJob(ctx context.Context, c conn, id string) (*content.TranslationJob, error) {
	row := c.queryRow(ctx, "SELECT "+translationJobColumns+" FROM translation_jobs WHERE id = ?", id)
	job, err := scanTranslationJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("translation job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get translation job: %w", err)
	}
	return job, nil
}

// TranslationJobFilter narrows ListTranslationJobs.
type TranslationJobFilter struct {
	Statuses   []content.TranslationStatus
	EntityType content.EntityType
	EntityID   string
	TargetLang string
	// DueBefore skips jobs whose next attempt lies after the given time.
	DueBefore *time.Time
	Limit     int
}

// ListTranslationJobs lists jobs in dequeue order.
func (s *Store) ListTranslationJobs(ctx context.Context, filter TranslationJobFilter) ([]*content.TranslationJob, error) {
	ctx = ensureContext(ctx)
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		args = append(args, stringArgs(filter.Statuses)...)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, string(filter.EntityType))
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.TargetLang != "" {
		where = append(where, "target_lang = ?")
		args = append(args, filter.TargetLang)
	}
	if filter.DueBefore != nil {
		where = append(where, "(next_attempt_at IS NULL OR next_attempt_at <= ?)")
		args = append(args, formatTime(*filter.DueBefore))
	}
	query := "SELECT " + translationJobColumns + " FROM translation_jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + translationDequeueOrder
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list translation jobs: %w", err)
	}
	defer rows.Close()
	var jobs []*content.TranslationJob
	for rows.Next() {
		job, err := scanTranslationJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// TranslationTransition describes side effects applied with a status change.
type TranslationTransition struct {
	// ErrorMessage replaces the stored message; an empty string clears it.
	ErrorMessage   *string
	IncrementRetry bool
	// NextAttemptAt replaces the stored retry time; a nil pointer inside a
	// non-nil SetNextAttempt clears it.
	SetNextAttempt bool
	NextAttemptAt  *time.Time
	QualityScore   *float64
	MarkStarted    bool
	MarkCompleted  bool
}

// TransitionTranslationJob moves a job to `to` only if it is currently in one
// of `from`, reporting whether it happened. Returning a job to an active
// status while another active job exists for the tuple is a conflict.
func (s *Store) TransitionTranslationJob(ctx context.Context, id string, from []content.TranslationStatus, to content.TranslationStatus, opts TranslationTransition) (bool, error) {
	return transitionTranslationJob(ensureContext(ctx), s, s.conn(), id, from, to, opts)
}

func transitionTranslationJob(ctx context.Context, s *Store, c conn, id string, from []content.TranslationStatus, to content.TranslationStatus, opts TranslationTransition) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition translation job: no source statuses")
	}
	now := formatTime(s.now())
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(to), now}
	if opts.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, nullableString(*opts.ErrorMessage))
	}
	if opts.IncrementRetry {
		sets = append(sets, "retry_count = retry_count + 1")
	}
	if opts.SetNextAttempt {
		sets = append(sets, "next_attempt_at = ?")
		args = append(args, nullableTime(opts.NextAttemptAt))
	}
	if opts.QualityScore != nil {
		sets = append(sets, "quality_score = ?")
		args = append(args, *opts.QualityScore)
	}
	if opts.MarkStarted {
		sets = append(sets, "started_at = ?")
		args = append(args, now)
	}
	if opts.MarkCompleted {
		sets = append(sets, "completed_at = ?")
		args = append(args, now)
	}
	args = append(args, id)
	args = append(args, stringArgs(from)...)
	var (
		res sql.Result
		err error
	)
	query := "UPDATE translation_jobs SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status IN (" + makePlaceholders(len(from)) + ")"
	if c.q == s.db {
		res, err = s.execWithRetry(ctx, query, args...)
	} else {
		res, err = c.exec(ctx, query, args...)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return false, conflict("transition translation job", "another job for this entity and language is already active", err)
		}
		return false, fmt.Errorf("transition translation job: %w", err)
	}
	return affected(res)
}

// SetTranslationPriority updates the priority of a job in one of the allowed statuses.
func (s *Store) SetTranslationPriority(ctx context.Context, id string, priority int, allowed []content.TranslationStatus) (bool, error) {
	args := []any{priority, formatTime(s.now()), id}
	args = append(args, stringArgs(allowed)...)
	res, err := s.execWithRetry(ctx,
		"UPDATE translation_jobs SET priority = ?, updated_at = ? WHERE id = ? AND status IN ("+makePlaceholders(len(allowed))+")",
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("set translation priority: %w", err)
	}
	return affected(res)
}
