package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"recipeforge/internal/content"
	"recipeforge/internal/services"
)

const generateJobColumns = "id, source_type, collection_id, recipe_names_json, locked_tags_json, status, total_count, success_count, failed_count, results_json, error_message, created_at, started_at, completed_at, updated_at"

func scanGenerateJob(scanner rowScanner) (*content.GenerateJob, error) {
	var (
		j            content.GenerateJob
		sourceType   string
		collectionID sql.NullString
		names        sql.NullString
		locked       sql.NullString
		status       string
		results      sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		startedAt    sql.NullString
		completedAt  sql.NullString
		updatedRaw   string
	)
	if err := scanner.Scan(
		&j.ID, &sourceType, &collectionID, &names, &locked, &status, &j.TotalCount, &j.SuccessCount,
		&j.FailedCount, &results, &errorMessage, &createdRaw, &startedAt, &completedAt, &updatedRaw,
	); err != nil {
		return nil, err
	}
	j.SourceType = content.SourceType(sourceType)
	j.CollectionID = collectionID.String
	j.Status = content.GenerateStatus(status)
	j.ErrorMessage = errorMessage.String
	j.CreatedAt = parseTime(createdRaw)
	j.StartedAt = parseNullTime(startedAt)
	j.CompletedAt = parseNullTime(completedAt)
	j.UpdatedAt = parseTime(updatedRaw)
	if err := unmarshalJSON(names, &j.RecipeNames); err != nil {
		return nil, fmt.Errorf("decode recipe names: %w", err)
	}
	if err := unmarshalJSON(locked, &j.LockedTags); err != nil {
		return nil, fmt.Errorf("decode locked tags: %w", err)
	}
	if err := unmarshalJSON(results, &j.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if j.Results == nil {
		j.Results = []content.ItemResult{}
	}
	return &j, nil
}

// InsertGenerateJob creates a pending job. When another job for the same
// collection is pending or running the insert is refused atomically by the
// partial unique index and a conflict error is returned.
func (s *Store) InsertGenerateJob(ctx context.Context, job *content.GenerateJob) error {
	if job == nil {
		return errors.New("insert generate job: nil job")
	}
	now := s.now()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = content.GeneratePending
	job.TotalCount = len(job.RecipeNames)
	job.SuccessCount, job.FailedCount = 0, 0
	job.Results = []content.ItemResult{}
	job.CreatedAt = now
	job.UpdatedAt = now

	names, err := marshalJSON(job.RecipeNames, "[]")
	if err != nil {
		return err
	}
	locked, err := marshalJSON(job.LockedTags, "{}")
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO generate_jobs (`+generateJobColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, '[]', NULL, ?, NULL, NULL, ?)
        ON CONFLICT DO NOTHING`,
		job.ID, string(job.SourceType), nullableString(job.CollectionID), names, locked,
		string(job.Status), job.TotalCount, formatTime(now), formatTime(now),
	)
	if err != nil {
		return mapWriteError("insert generate job", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return conflict("insert generate job", fmt.Sprintf("collection %s already has a pending or running job", job.CollectionID), nil)
	}
	return nil
}

// GetGenerateJob fetches a generation job.
func (s *Store) GetGenerateJob(ctx context.Context, id string) (*content.GenerateJob, error) {
	return getGenerateJob(ensureContext(ctx), s.conn(), id)
}

func getGenerateJob(ctx context.Context, c conn, id string) (*content.GenerateJob, error) {
	row := c.queryRow(ctx, "SELECT "+generateJobColumns+" FROM generate_jobs WHERE id = ?", id)
	job, err := scanGenerateJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("generate job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get generate job: %w", err)
	}
	return job, nil
}

// GenerateJobFilter narrows ListGenerateJobs.
type GenerateJobFilter struct {
	Statuses     []content.GenerateStatus
	CollectionID string
	Limit        int
}

// ListGenerateJobs lists jobs newest first.
func (s *Store) ListGenerateJobs(ctx context.Context, filter GenerateJobFilter) ([]*content.GenerateJob, error) {
	ctx = ensureContext(ctx)
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		args = append(args, stringArgs(filter.Statuses)...)
	}
	if filter.CollectionID != "" {
		where = append(where, "collection_id = ?")
		args = append(args, filter.CollectionID)
	}
	query := "SELECT " + generateJobColumns + " FROM generate_jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list generate jobs: %w", err)
	}
	defer rows.Close()
	var jobs []*content.GenerateJob
	for rows.Next() {
		job, err := scanGenerateJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GenerateTransition describes side effects applied with a status change.
type GenerateTransition struct {
	ErrorMessage  *string
	MarkStarted   bool
	MarkCompleted bool
}

// TransitionGenerateJob moves a job to status `to` only if it is currently in
// one of `from`. It reports whether the transition happened. Moving a job
// into an active status can violate the one-active-job index, which is
// reported as a conflict.
func (s *Store) TransitionGenerateJob(ctx context.Context, id string, from []content.GenerateStatus, to content.GenerateStatus, opts GenerateTransition) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition generate job: no source statuses")
	}
	now := formatTime(s.now())
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(to), now}
	if opts.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, nullableString(*opts.ErrorMessage))
	}
	if opts.MarkStarted {
		sets = append(sets, "started_at = COALESCE(started_at, ?)")
		args = append(args, now)
	}
	if opts.MarkCompleted {
		sets = append(sets, "completed_at = ?")
		args = append(args, now)
	}
	args = append(args, id)
	args = append(args, stringArgs(from)...)
	res, err := s.execWithRetry(ctx,
		"UPDATE generate_jobs SET "+strings.Join(sets, ", ")+" WHERE id = ? AND status IN ("+makePlaceholders(len(from))+")",
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, conflict("transition generate job", "collection already has a pending or running job", err)
		}
		return false, fmt.Errorf("transition generate job: %w", err)
	}
	return affected(res)
}

// RecordGenerateItem appends an item outcome and bumps the matching counter.
// A successful item passes the recipe it produced, which is inserted in the
// same transaction so a crash cannot leave a recipe without its count.
func (s *Store) RecordGenerateItem(ctx context.Context, jobID string, result content.ItemResult, recipe *content.Recipe) (*content.GenerateJob, error) {
	ctx = ensureContext(ctx)
	var updated *content.GenerateJob
	err := s.withTx(ctx, func(tx conn) error {
		job, err := getGenerateJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Cursor() >= job.TotalCount {
			return services.Wrap(services.ErrInvalidState, "store", "record generate item", "job already processed every item", nil)
		}
		if recipe != nil {
			recipe.GenerateJobID = jobID
			if err := s.insertRecipe(ctx, tx, recipe); err != nil {
				return err
			}
			result.RecipeID = recipe.ID
		}
		results := append(job.Results, result)
		encoded, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		successDelta, failedDelta := 0, 1
		if result.Success {
			successDelta, failedDelta = 1, 0
		}
		if _, err := tx.exec(ctx,
			`UPDATE generate_jobs SET success_count = success_count + ?, failed_count = failed_count + ?,
                results_json = ?, updated_at = ? WHERE id = ?`,
			successDelta, failedDelta, string(encoded), formatTime(s.now()), jobID,
		); err != nil {
			return fmt.Errorf("record generate item: %w", err)
		}
		updated, err = getGenerateJob(ctx, tx, jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
