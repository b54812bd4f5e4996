package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

const approvalColumns = `
	id, task_instance_id, session_id, generated_content, content_type,
	metadata, approval_status, submitted_at, resolved_at
`

// ApprovalRepository handles approval request database operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

func (ar *ApprovalRepository) Save(ctx context.Context, approval *models.ApprovalRequest) error {
	metadata, err := json.Marshal(approval.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal approval metadata: %w", err)
	}

	query := `
		INSERT INTO approval_requests (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			generated_content = EXCLUDED.generated_content,
			content_type = EXCLUDED.content_type,
			metadata = EXCLUDED.metadata,
			approval_status = EXCLUDED.approval_status,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err = ar.db.ExecContext(ctx, query,
		approval.ID, approval.TaskInstanceID, approval.SessionID,
		approval.GeneratedContent, approval.ContentType, metadata,
		approval.ApprovalStatus, approval.SubmittedAt, approval.ResolvedAt)
	if err != nil {
		return persistence.NewTaskError("SaveApproval", approval.SessionID, approval.TaskInstanceID, err)
	}

	return nil
}

func (ar *ApprovalRepository) ByID(ctx context.Context, approvalID string) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`

	approval, err := ar.scanApproval(ar.db.QueryRowContext(ctx, query, approvalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrApprovalNotFound
		}

		return nil, fmt.Errorf("failed to fetch approval %s: %w", approvalID, err)
	}

	return approval, nil
}

func (ar *ApprovalRepository) OpenByTask(ctx context.Context, taskID string) (*models.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE task_instance_id = $1 AND approval_status = 'pending_review'
	`

	approval, err := ar.scanApproval(ar.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrApprovalNotFound
		}

		return nil, fmt.Errorf("failed to fetch open approval for task %s: %w", taskID, err)
	}

	return approval, nil
}

func (ar *ApprovalRepository) ListPending(ctx context.Context) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE approval_status = 'pending_review'
		ORDER BY submitted_at
	`

	rows, err := ar.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			ar.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	approvals := make([]*models.ApprovalRequest, 0)

	for rows.Next() {
		approval, err := ar.scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		approvals = append(approvals, approval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}

func (ar *ApprovalRepository) scanApproval(row rowScanner) (*models.ApprovalRequest, error) {
	var (
		approval   models.ApprovalRequest
		metadata   []byte
		resolvedAt sql.NullTime
	)

	err := row.Scan(
		&approval.ID, &approval.TaskInstanceID, &approval.SessionID,
		&approval.GeneratedContent, &approval.ContentType, &metadata,
		&approval.ApprovalStatus, &approval.SubmittedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &approval.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval metadata: %w", err)
		}
	}

	if resolvedAt.Valid {
		approval.ResolvedAt = &resolvedAt.Time
	}

	return &approval, nil
}
