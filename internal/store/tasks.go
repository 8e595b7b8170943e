package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recipeforge/internal/content"
)

const taskColumns = "id, kind, ref_id, status, priority, ref_created_at, attempts, available_at, last_heartbeat, last_error, rerun, created_at, updated_at"

func scanTask(scanner rowScanner) (*content.Task, error) {
	var (
		task          content.Task
		kind, status  string
		refCreatedRaw string
		availableRaw  string
		heartbeatRaw  sql.NullString
		lastError     sql.NullString
		rerun         int
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&task.ID, &kind, &task.RefID, &status, &task.Priority, &refCreatedRaw,
		&task.Attempts, &availableRaw, &heartbeatRaw, &lastError, &rerun, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	task.Kind = content.TaskKind(kind)
	task.Status = content.TaskStatus(status)
	task.RefCreatedAt = parseTime(refCreatedRaw)
	task.AvailableAt = parseTime(availableRaw)
	task.LastHeartbeat = parseNullTime(heartbeatRaw)
	task.LastError = lastError.String
	task.Rerun = rerun != 0
	task.CreatedAt = parseTime(createdRaw)
	task.UpdatedAt = parseTime(updatedRaw)
	return &task, nil
}

// claimOrder is the order in which queued tasks of a kind are handed out.
// Translation tasks follow the job dequeue order; generation runs oldest first.
func claimOrder(kind content.TaskKind) string {
	if kind == content.TaskTranslate {
		return "priority ASC, ref_created_at DESC, id DESC"
	}
	return "ref_created_at ASC, id ASC"
}

// EnqueueTask adds a queued task for a job. It reports false when an active
// task for the same reference already exists. A running task is flagged for
// rerun instead, so the request is not lost when that run is already past
// its last look at the job.
func (s *Store) EnqueueTask(ctx context.Context, kind content.TaskKind, refID string, priority int, refCreatedAt, availableAt time.Time) (bool, error) {
	now := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`INSERT INTO tasks (kind, ref_id, status, priority, ref_created_at, attempts, available_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
        ON CONFLICT DO NOTHING`,
		string(kind), refID, string(content.TaskQueued), priority,
		formatTime(refCreatedAt), formatTime(availableAt), now, now,
	)
	if err != nil {
		return false, mapWriteError("enqueue task", err)
	}
	queued, err := affected(res)
	if err != nil || queued {
		return queued, err
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET rerun = 1, priority = ?, updated_at = ? WHERE kind = ? AND ref_id = ? AND status = ?`,
		priority, now, string(kind), refID, string(content.TaskRunning),
	); err != nil {
		return false, fmt.Errorf("flag task rerun: %w", err)
	}
	return false, nil
}

// ClaimTask moves the next due queued task of a kind to running and returns
// it. It returns nil when nothing is due.
func (s *Store) ClaimTask(ctx context.Context, kind content.TaskKind) (*content.Task, error) {
	ctx = ensureContext(ctx)
	var claimed *content.Task
	err := s.withTx(ctx, func(tx conn) error {
		claimed = nil
		now := s.now()
		task, err := scanTask(tx.queryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks
            WHERE kind = ? AND status = ? AND available_at <= ?
            ORDER BY `+claimOrder(kind)+` LIMIT 1`,
			string(kind), string(content.TaskQueued), formatTime(now),
		))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select task: %w", err)
		}
		stamp := formatTime(now)
		res, err := tx.exec(ctx,
			`UPDATE tasks SET status = ?, attempts = attempts + 1, last_heartbeat = ?, updated_at = ?
            WHERE id = ? AND status = ?`,
			string(content.TaskRunning), stamp, stamp, task.ID, string(content.TaskQueued),
		)
		if err != nil {
			return fmt.Errorf("claim task: %w", err)
		}
		ok, err := affected(res)
		if err != nil || !ok {
			return err
		}
		task.Status = content.TaskRunning
		task.Attempts++
		task.LastHeartbeat = &now
		task.UpdatedAt = now
		claimed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// HeartbeatTask refreshes the heartbeat of a running task.
func (s *Store) HeartbeatTask(ctx context.Context, id int64) error {
	stamp := formatTime(s.now())
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		stamp, stamp, id, string(content.TaskRunning),
	); err != nil {
		return fmt.Errorf("heartbeat task: %w", err)
	}
	return nil
}

// CompleteTask marks a running task done.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	return s.finishTask(ctx, id, content.TaskDone, "")
}

// FailTask marks a running task failed permanently.
func (s *Store) FailTask(ctx context.Context, id int64, message string) error {
	return s.finishTask(ctx, id, content.TaskFailed, message)
}

// finishTask ends a running task. A task flagged for rerun goes back to the
// queue, due now, with a fresh attempt budget.
func (s *Store) finishTask(ctx context.Context, id int64, status content.TaskStatus, message string) error {
	stamp := formatTime(s.now())
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET
            status = CASE WHEN rerun = 1 THEN ? ELSE ? END,
            attempts = CASE WHEN rerun = 1 THEN 0 ELSE attempts END,
            available_at = CASE WHEN rerun = 1 THEN ? ELSE available_at END,
            last_heartbeat = CASE WHEN rerun = 1 THEN NULL ELSE last_heartbeat END,
            rerun = 0, last_error = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(content.TaskQueued), string(status), stamp,
		nullableString(message), stamp, id, string(content.TaskRunning),
	); err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	return nil
}

// RetryTask returns a running task to the queue, due at retryAt.
func (s *Store) RetryTask(ctx context.Context, id int64, message string, retryAt time.Time) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, last_error = ?, available_at = ?, last_heartbeat = NULL, rerun = 0, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(content.TaskQueued), nullableString(message), formatTime(retryAt), formatTime(s.now()),
		id, string(content.TaskRunning),
	); err != nil {
		return fmt.Errorf("retry task: %w", err)
	}
	return nil
}

// ReclaimStaleTasks requeues running tasks whose heartbeat is older than
// cutoff, returning how many were reclaimed.
func (s *Store) ReclaimStaleTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, available_at = ?, last_error = ?, last_heartbeat = NULL, rerun = 0, updated_at = ?
        WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(content.TaskQueued), stamp, "reclaimed after heartbeat timeout", stamp,
		string(content.TaskRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// CancelTasksForRef drops queued tasks for a job. Running tasks are left to
// their worker, which observes the job status.
func (s *Store) CancelTasksForRef(ctx context.Context, kind content.TaskKind, refID string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, last_error = ?, updated_at = ? WHERE kind = ? AND ref_id = ? AND status = ?`,
		string(content.TaskDone), "cancelled", formatTime(s.now()),
		string(kind), refID, string(content.TaskQueued),
	)
	if err != nil {
		return 0, fmt.Errorf("cancel tasks: %w", err)
	}
	return res.RowsAffected()
}

// SetTaskPriority updates the priority of a queued task.
func (s *Store) SetTaskPriority(ctx context.Context, kind content.TaskKind, refID string, priority int) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE tasks SET priority = ?, updated_at = ? WHERE kind = ? AND ref_id = ? AND status = ?`,
		priority, formatTime(s.now()), string(kind), refID, string(content.TaskQueued),
	); err != nil {
		return fmt.Errorf("set task priority: %w", err)
	}
	return nil
}

// ActiveTask returns the queued or running task for a reference, or nil.
func (s *Store) ActiveTask(ctx context.Context, kind content.TaskKind, refID string) (*content.Task, error) {
	ctx = ensureContext(ctx)
	task, err := scanTask(s.conn().queryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE kind = ? AND ref_id = ? AND status IN (?, ?)`,
		string(kind), refID, string(content.TaskQueued), string(content.TaskRunning),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active task: %w", err)
	}
	return task, nil
}

// TaskCounts tallies tasks per kind and status.
type TaskCounts map[content.TaskKind]map[content.TaskStatus]int

// CountTasks returns task counts grouped by kind and status.
func (s *Store) CountTasks(ctx context.Context) (TaskCounts, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn().query(ctx, `SELECT kind, status, COUNT(1) FROM tasks GROUP BY kind, status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()
	counts := TaskCounts{}
	for rows.Next() {
		var (
			kind, status string
			count        int
		)
		if err := rows.Scan(&kind, &status, &count); err != nil {
			return nil, err
		}
		byStatus, ok := counts[content.TaskKind(kind)]
		if !ok {
			byStatus = map[content.TaskStatus]int{}
			counts[content.TaskKind(kind)] = byStatus
		}
		byStatus[content.TaskStatus(status)] = count
	}
	return counts, rows.Err()
}
