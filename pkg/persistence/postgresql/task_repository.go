package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

const taskColumns = `
	id, session_id, task_name, calculated_date, adjusted_date, offset_days,
	task_order, can_automate, approval_required, estimated_hours,
	requires_human, can_batch, is_completed, completed_at, completed_by,
	automation_status, version, created_at, updated_at
`

// TaskRepository handles timeline and task instance database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// CreateTimeline inserts the timeline head and every task instance in one
// transaction. The primary key on timelines.session_id turns a concurrent
// duplicate create into ErrTimelineExists.
func (tr *TaskRepository) CreateTimeline(ctx context.Context, timeline *models.Timeline) error {
	transaction, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	now := time.Now().UTC()
	timeline.CreatedAt = now
	timeline.UpdatedAt = now

	insertTimeline := `
		INSERT INTO timelines (session_id, session_type, session_date, client_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`

	_, err = transaction.ExecContext(ctx, insertTimeline,
		timeline.SessionID, timeline.SessionType, timeline.SessionDate,
		timeline.ClientID, timeline.CreatedAt, timeline.UpdatedAt)
	if err != nil {
		_ = transaction.Rollback()

		if isUniqueViolation(err) {
			return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, persistence.ErrTimelineExists)
		}

		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	insertTask := `
		INSERT INTO task_instances (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	for _, task := range timeline.Tasks {
		_, err = transaction.ExecContext(ctx, insertTask,
			task.ID, task.SessionID, task.TaskName, task.CalculatedDate, task.AdjustedDate,
			task.OffsetDays, task.Order, task.CanAutomate, task.ApprovalRequired,
			task.EstimatedHours, task.RequiresHuman, task.CanBatch, task.IsCompleted,
			task.CompletedAt, task.CompletedBy, task.AutomationStatus, task.Version,
			task.CreatedAt, task.UpdatedAt)
		if err != nil {
			_ = transaction.Rollback()

			return persistence.NewTaskError("CreateTimeline", timeline.SessionID, task.ID, err)
		}
	}

	err = transaction.Commit()
	if err != nil {
		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	return nil
}

func (tr *TaskRepository) TimelineBySession(ctx context.Context, sessionID string) (*models.Timeline, error) {
	query := `
		SELECT session_id, session_type, session_date, COALESCE(client_id, ''), created_at, updated_at
		FROM timelines
		WHERE session_id = $1
	`

	var timeline models.Timeline

	err := tr.db.QueryRowContext(ctx, query, sessionID).Scan(
		&timeline.SessionID, &timeline.SessionType, &timeline.SessionDate,
		&timeline.ClientID, &timeline.CreatedAt, &timeline.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTimelineError("TimelineBySession", sessionID, persistence.ErrTimelineNotFound)
		}

		return nil, persistence.NewTimelineError("TimelineBySession", sessionID, err)
	}

	tasks, err := tr.tasksBySession(ctx, sessionID)
	if err != nil {
		return nil, persistence.NewTimelineError("TimelineBySession", sessionID, err)
	}

	timeline.Tasks = tasks

	return &timeline, nil
}

func (tr *TaskRepository) tasksBySession(ctx context.Context, sessionID string) ([]*models.TaskInstance, error) {
	query := `SELECT ` + taskColumns + ` FROM task_instances WHERE session_id = $1 ORDER BY task_order`

	rows, err := tr.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task instances: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			tr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	tasks := make([]*models.TaskInstance, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task instance: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task instances: %w", err)
	}

	return tasks, nil
}

func (tr *TaskRepository) TaskByID(ctx context.Context, taskID string) (*models.TaskInstance, error) {
	query := `SELECT ` + taskColumns + ` FROM task_instances WHERE id = $1`

	task, err := scanTask(tr.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTaskError("TaskByID", "", taskID, persistence.ErrTaskNotFound)
		}

		return nil, persistence.NewTaskError("TaskByID", "", taskID, err)
	}

	return task, nil
}

// SaveTask writes one task guarded by the optimistic version stamp.
func (tr *TaskRepository) SaveTask(ctx context.Context, task *models.TaskInstance) error {
	return tr.saveTask(ctx, tr.db, task)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (tr *TaskRepository) saveTask(ctx context.Context, db execer, task *models.TaskInstance) error {
	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE task_instances
		SET task_name = $3, calculated_date = $4, adjusted_date = $5,
			is_completed = $6, completed_at = $7, completed_by = $8,
			automation_status = $9, version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $2
	`

	result, err := db.ExecContext(ctx, query,
		task.ID, task.Version, task.TaskName, task.CalculatedDate, task.AdjustedDate,
		task.IsCompleted, task.CompletedAt, task.CompletedBy, task.AutomationStatus,
		task.UpdatedAt)
	if err != nil {
		return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, err)
	}

	if affected == 0 {
		// Either the row is gone or the version is stale.
		var exists bool

		err = tr.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM task_instances WHERE id = $1)", task.ID).Scan(&exists)
		if err != nil {
			return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, err)
		}

		if !exists {
			return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, persistence.ErrTaskNotFound)
		}

		return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, persistence.ErrConcurrentModification)
	}

	task.Version++

	return nil
}

// RescheduleTimeline moves the session date and writes the recomputed task
// batch in a single transaction; a stale version anywhere rolls back the whole
// batch.
func (tr *TaskRepository) RescheduleTimeline(ctx context.Context, sessionID string, newDate models.Date, tasks []*models.TaskInstance) error {
	transaction, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewTimelineError("RescheduleTimeline", sessionID, err)
	}

	for _, task := range tasks {
		if err := tr.saveTask(ctx, transaction, task); err != nil {
			_ = transaction.Rollback()

			return err
		}
	}

	result, err := transaction.ExecContext(ctx,
		"UPDATE timelines SET session_date = $2, updated_at = $3 WHERE session_id = $1",
		sessionID, newDate, time.Now().UTC())
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewTimelineError("RescheduleTimeline", sessionID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		_ = transaction.Rollback()

		return persistence.NewTimelineError("RescheduleTimeline", sessionID, persistence.ErrTimelineNotFound)
	}

	err = transaction.Commit()
	if err != nil {
		return persistence.NewTimelineError("RescheduleTimeline", sessionID, err)
	}

	return nil
}

func (tr *TaskRepository) ListAutomatable(ctx context.Context, sessionID string) ([]*models.TaskInstance, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM task_instances
		WHERE can_automate
			AND NOT is_completed
			AND automation_status IN ('pending', 'pending_approval')
			AND ($1 = '' OR session_id = $1)
		ORDER BY adjusted_date, task_order
	`

	rows, err := tr.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query automatable tasks: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			tr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	tasks := make([]*models.TaskInstance, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task instance: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automatable tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row rowScanner) (*models.TaskInstance, error) {
	var (
		task        models.TaskInstance
		completedAt sql.NullTime
		completedBy sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.SessionID, &task.TaskName, &task.CalculatedDate,
		&task.AdjustedDate, &task.OffsetDays, &task.Order, &task.CanAutomate,
		&task.ApprovalRequired, &task.EstimatedHours, &task.RequiresHuman,
		&task.CanBatch, &task.IsCompleted, &completedAt, &completedBy,
		&task.AutomationStatus, &task.Version, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	if completedBy.Valid {
		task.CompletedBy = &completedBy.String
	}

	return &task, nil
}
